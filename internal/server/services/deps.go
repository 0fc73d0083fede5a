// Package services contains the server-side credential lifecycle:
// SessionManager (registration, activation, login, logout, refresh) and
// PasswordResetManager (one-time reset tokens).
package services

import (
	"context"
	"time"

	"github.com/dmitrijs2005/credkeeper/internal/common"
	"github.com/dmitrijs2005/credkeeper/internal/logging"
	"github.com/dmitrijs2005/credkeeper/internal/server/auth"
	"github.com/samber/oops"
)

// TokenSigner issues and verifies the three token kinds.
type TokenSigner interface {
	IssueAccessToken(identityID string) (string, error)
	IssueRefreshToken(identityID string) (string, error)
	IssueResetToken(identityID string) (string, error)
	Verify(token string, kind auth.TokenKind) (*auth.Claims, error)
	TTL(kind auth.TokenKind) time.Duration
}

// Mailer sends account e-mails. Implementations own their failures: a
// message that cannot be delivered is logged, never returned.
type Mailer interface {
	SendActivation(ctx context.Context, email, link string)
	SendResetLink(ctx context.Context, email, link string)
	SendResetConfirmation(ctx context.Context, email string)
}

// Recorder observes the outcome and latency of every public operation.
type Recorder interface {
	ObserveOperation(operation, outcome string, elapsed time.Duration)
}

// Dependencies groups the collaborators shared by both managers.
type Dependencies struct {
	Hasher   auth.Hasher
	Signer   TokenSigner
	Mailer   Mailer
	Logger   logging.Logger
	Recorder Recorder
}

func (d *Dependencies) defaults() {
	if d.Logger == nil {
		d.Logger = logging.Nop{}
	}
	if d.Recorder == nil {
		d.Recorder = nopRecorder{}
	}
}

type nopRecorder struct{}

func (nopRecorder) ObserveOperation(string, string, time.Duration) {}

// track starts timing operation; the returned func records the outcome
// held by errp. Use as: defer track(r, "login")(&err).
func track(r Recorder, operation string) func(errp *error) {
	start := time.Now()
	return func(errp *error) {
		outcome := "success"
		if errp != nil && *errp != nil {
			outcome = common.KindOf(*errp)
		}
		r.ObserveOperation(operation, outcome, time.Since(start))
	}
}

// internal marks an unexpected failure, leaving domain errors untouched.
func internal(operation string, err error) error {
	if _, ok := oops.AsOops(err); ok {
		return err
	}
	return oops.Code(common.KindInternal).With("operation", operation).Wrap(err)
}

func unauthenticated(reason string) error {
	return oops.Code(common.KindUnauthenticated).With("reason", reason).Errorf("authentication required")
}
