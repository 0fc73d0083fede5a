package services

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/dmitrijs2005/credkeeper/internal/common"
	"github.com/dmitrijs2005/credkeeper/internal/dbx"
	"github.com/dmitrijs2005/credkeeper/internal/server/auth"
	"github.com/dmitrijs2005/credkeeper/internal/server/config"
	"github.com/dmitrijs2005/credkeeper/internal/server/repositories/repomanager"
	"github.com/google/uuid"
	"github.com/samber/oops"
)

// PasswordResetManager issues and consumes one-time password reset tokens.
// Each user has at most one pending reset; a new request supersedes the old
// one and a successful reset deletes it.
type PasswordResetManager struct {
	db        *sql.DB
	repos     repomanager.RepositoryManager
	deps      Dependencies
	clientURL string
	retry     dbx.RetryPolicy
	now       func() time.Time
}

func NewPasswordResetManager(db *sql.DB, repos repomanager.RepositoryManager, deps Dependencies, cfg *config.Config) *PasswordResetManager {
	deps.defaults()
	return &PasswordResetManager{
		db:        db,
		repos:     repos,
		deps:      deps,
		clientURL: strings.TrimRight(cfg.ClientURL, "/"),
		retry:     dbx.DefaultRetryPolicy,
		now:       time.Now,
	}
}

// ResetURL is the client page a reset link points to.
func (m *PasswordResetManager) ResetURL(token, identityID string) string {
	return m.clientURL + "/reset-password/" + token + "/" + identityID
}

// RequestReset stores a fresh reset token for the owner of email and mails
// the link. The link is returned as well.
func (m *PasswordResetManager) RequestReset(ctx context.Context, email string) (link string, err error) {
	defer track(m.deps.Recorder, "request_reset")(&err)

	email = normalizeEmail(email)
	if err = validateEmail(email); err != nil {
		return "", err
	}

	user, err := m.repos.Users(m.db).GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return "", oops.Code(common.KindUnknownEmail).Errorf("no user with this email")
		}
		return "", internal("get user by email", err)
	}
	if !user.IsActivated {
		return "", oops.Code(common.KindNotActivated).With("user_id", user.ID).Errorf("account is not activated")
	}

	token, err := m.deps.Signer.IssueResetToken(user.ID)
	if err != nil {
		return "", internal("issue reset token", err)
	}

	if err = m.repos.Resets(m.db).Save(ctx, user.ID, token); err != nil {
		return "", internal("save reset", err)
	}

	link = m.ResetURL(token, user.ID)
	m.deps.Mailer.SendResetLink(ctx, user.Email, link)
	m.deps.Logger.Info(ctx, "password reset requested", "user_id", user.ID)

	return link, nil
}

// ResetPassword consumes the pending reset of identityID. The token must
// verify, belong to identityID and be the one on record. Lookup, password
// update and consumption run in one transaction holding the reset row lock,
// so a token can be used only once.
func (m *PasswordResetManager) ResetPassword(ctx context.Context, identityID, resetToken, newPassword string) (err error) {
	defer track(m.deps.Recorder, "reset_password")(&err)

	if err = validatePassword(newPassword); err != nil {
		return err
	}
	if _, perr := uuid.Parse(identityID); perr != nil {
		return noPendingReset(identityID)
	}

	hash, err := m.deps.Hasher.Hash(newPassword)
	if err != nil {
		return internal("hash password", err)
	}

	var email string
	err = dbx.WithTxRetry(ctx, m.db, dbx.Serializable, m.retry, func(ctx context.Context, tx dbx.DBTX) error {
		resets := m.repos.Resets(tx)

		pending, err := resets.FindForUpdate(ctx, identityID)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return noPendingReset(identityID)
			}
			return internal("find reset", err)
		}

		claims, err := m.deps.Signer.Verify(resetToken, auth.KindReset)
		if err != nil {
			return invalidResetToken(common.KindOf(err))
		}
		if claims.IdentityID != identityID || !common.EqualTokens(pending.ResetToken, resetToken) {
			return invalidResetToken("token does not match pending reset")
		}

		users := m.repos.Users(tx)
		user, err := users.GetByID(ctx, identityID)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return noPendingReset(identityID)
			}
			return internal("get user by id", err)
		}
		email = user.Email

		if err := users.UpdatePassword(ctx, identityID, hash); err != nil {
			return internal("update password", err)
		}
		if _, err := resets.Delete(ctx, identityID); err != nil {
			return internal("delete reset", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	m.deps.Mailer.SendResetConfirmation(ctx, email)
	m.deps.Logger.Info(ctx, "password reset", "user_id", identityID)
	return nil
}

// PurgeExpired deletes resets whose token can no longer verify.
func (m *PasswordResetManager) PurgeExpired(ctx context.Context) (int64, error) {
	cutoff := m.now().Add(-m.deps.Signer.TTL(auth.KindReset))
	n, err := m.repos.Resets(m.db).DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return 0, internal("purge resets", err)
	}
	return n, nil
}

func noPendingReset(identityID string) error {
	return oops.Code(common.KindNoPendingReset).With("user_id", identityID).Errorf("no pending password reset")
}

func invalidResetToken(reason string) error {
	return oops.Code(common.KindInvalidOrExpiredToken).With("reason", reason).Errorf("invalid or expired reset token")
}
