package services

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/dmitrijs2005/credkeeper/internal/common"
	"github.com/dmitrijs2005/credkeeper/internal/dbx"
	"github.com/dmitrijs2005/credkeeper/internal/server/auth"
	"github.com/dmitrijs2005/credkeeper/internal/server/config"
	"github.com/dmitrijs2005/credkeeper/internal/server/models"
	"github.com/dmitrijs2005/credkeeper/internal/server/repositories/repomanager"
	"github.com/google/uuid"
	"github.com/samber/oops"
)

// dummyPassword is hashed once at startup; logins for unknown emails verify
// against it so both failure paths cost one hash comparison.
const dummyPassword = "credkeeper-timing-equaliser"

// RegisterInput carries the fields of a registration request.
type RegisterInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	Avatar    string
}

// SessionManager drives registration, activation and the login session of
// each identity. A user holds at most one live refresh token; every login
// and refresh replaces it.
type SessionManager struct {
	db        *sql.DB
	repos     repomanager.RepositoryManager
	deps      Dependencies
	apiURL    string
	dummyHash string
}

// NewSessionManager builds a SessionManager. It fails only when the hasher
// cannot produce the dummy hash used for timing equalisation.
func NewSessionManager(db *sql.DB, repos repomanager.RepositoryManager, deps Dependencies, cfg *config.Config) (*SessionManager, error) {
	deps.defaults()

	dummy, err := deps.Hasher.Hash(dummyPassword)
	if err != nil {
		return nil, err
	}

	return &SessionManager{
		db:        db,
		repos:     repos,
		deps:      deps,
		apiURL:    strings.TrimRight(cfg.APIURL, "/"),
		dummyHash: dummy,
	}, nil
}

// ActivationURL is the link mailed to a freshly registered user.
func (s *SessionManager) ActivationURL(link string) string {
	return s.apiURL + "/api/activate/" + link
}

// Register creates an unactivated identity, opens its first session and
// mails the activation link. Mail failures do not undo the registration.
func (s *SessionManager) Register(ctx context.Context, in RegisterInput) (res *models.AuthResult, err error) {
	defer track(s.deps.Recorder, "register")(&err)

	in.Email = normalizeEmail(in.Email)
	if err = validateEmail(in.Email); err != nil {
		return nil, err
	}
	if err = validatePassword(in.Password); err != nil {
		return nil, err
	}
	if err = validateName("firstName", in.FirstName); err != nil {
		return nil, err
	}
	if err = validateName("lastName", in.LastName); err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.Avatar) == "" {
		in.Avatar = common.DefaultAvatar
	}

	hash, err := s.deps.Hasher.Hash(in.Password)
	if err != nil {
		return nil, internal("hash password", err)
	}

	user := &models.User{
		Email:          in.Email,
		PasswordHash:   hash,
		FirstName:      strings.TrimSpace(in.FirstName),
		LastName:       strings.TrimSpace(in.LastName),
		Avatar:         in.Avatar,
		ActivationLink: uuid.NewString(),
	}

	var pair *models.TokenPair
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		created, err := s.repos.Users(tx).Create(ctx, user)
		if err != nil {
			if errors.Is(err, common.ErrorAlreadyExists) {
				return oops.Code(common.KindDuplicateEmail).With("email", in.Email).Errorf("user with email %s already exists", in.Email)
			}
			return internal("create user", err)
		}
		user = created

		pair, err = s.openSession(ctx, tx, user.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.deps.Mailer.SendActivation(ctx, user.Email, s.ActivationURL(user.ActivationLink))
	s.deps.Logger.Info(ctx, "user registered", "user_id", user.ID)

	return &models.AuthResult{TokenPair: *pair, User: user.Profile()}, nil
}

// Activate flips the activation flag of the owner of link. Repeating it is
// harmless.
func (s *SessionManager) Activate(ctx context.Context, link string) (err error) {
	defer track(s.deps.Recorder, "activate")(&err)

	if link == "" {
		return oops.Code(common.KindInvalidActivationLink).Errorf("invalid activation link")
	}

	ok, err := s.repos.Users(s.db).Activate(ctx, link)
	if err != nil {
		return internal("activate user", err)
	}
	if !ok {
		return oops.Code(common.KindInvalidActivationLink).Errorf("invalid activation link")
	}
	return nil
}

// Login checks credentials and replaces the caller's session. Unknown emails
// and wrong passwords fail identically with INVALID_CREDENTIALS.
func (s *SessionManager) Login(ctx context.Context, email, password string) (res *models.AuthResult, err error) {
	defer track(s.deps.Recorder, "login")(&err)

	email = normalizeEmail(email)
	user, err := s.repos.Users(s.db).GetByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, common.ErrorNotFound) {
			return nil, internal("get user by email", err)
		}
		s.deps.Hasher.Verify(password, s.dummyHash)
		s.deps.Logger.Debug(ctx, "login failed", "reason", "unknown email")
		return nil, invalidCredentials()
	}

	if !s.deps.Hasher.Verify(password, user.PasswordHash) {
		s.deps.Logger.Debug(ctx, "login failed", "reason", "password mismatch", "user_id", user.ID)
		return nil, invalidCredentials()
	}

	pair, err := s.openSession(ctx, s.db, user.ID)
	if err != nil {
		return nil, err
	}

	return &models.AuthResult{TokenPair: *pair, User: user.Profile()}, nil
}

// Logout drops the session holding refreshToken. Unknown or empty tokens
// are ignored.
func (s *SessionManager) Logout(ctx context.Context, refreshToken string) (err error) {
	defer track(s.deps.Recorder, "logout")(&err)

	if refreshToken == "" {
		return nil
	}

	n, err := s.repos.Sessions(s.db).Delete(ctx, refreshToken)
	if err != nil {
		return internal("delete session", err)
	}
	s.deps.Logger.Debug(ctx, "logout", "removed", n)
	return nil
}

// Refresh exchanges a live refresh token for a new pair. The presented token
// must be signed correctly and still be the one on record; the swap happens
// in a single conditional update, so of two concurrent refreshes with the
// same token only one succeeds.
func (s *SessionManager) Refresh(ctx context.Context, refreshToken string) (res *models.AuthResult, err error) {
	defer track(s.deps.Recorder, "refresh")(&err)

	if refreshToken == "" {
		return nil, unauthenticated("missing refresh token")
	}

	claims, err := s.deps.Signer.Verify(refreshToken, auth.KindRefresh)
	if err != nil {
		return nil, unauthenticated(common.KindOf(err))
	}

	sessions := s.repos.Sessions(s.db)

	session, err := sessions.Find(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, unauthenticated("session not found")
		}
		return nil, internal("find session", err)
	}
	if session.UserID != claims.IdentityID {
		return nil, unauthenticated("session owner mismatch")
	}

	user, err := s.repos.Users(s.db).GetByID(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, unauthenticated("user not found")
		}
		return nil, internal("get user by id", err)
	}

	pair, err := s.issuePair(user.ID)
	if err != nil {
		return nil, err
	}

	ok, err := sessions.Rotate(ctx, user.ID, refreshToken, pair.RefreshToken)
	if err != nil {
		return nil, internal("rotate session", err)
	}
	if !ok {
		return nil, unauthenticated("refresh token already rotated")
	}

	return &models.AuthResult{TokenPair: *pair, User: user.Profile()}, nil
}

// Authenticate resolves an access token to the profile of its owner.
func (s *SessionManager) Authenticate(ctx context.Context, accessToken string) (p *models.Profile, err error) {
	defer track(s.deps.Recorder, "authenticate")(&err)

	if accessToken == "" {
		return nil, unauthenticated("missing access token")
	}

	claims, err := s.deps.Signer.Verify(accessToken, auth.KindAccess)
	if err != nil {
		return nil, unauthenticated(common.KindOf(err))
	}

	user, err := s.repos.Users(s.db).GetByID(ctx, claims.IdentityID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, unauthenticated("user not found")
		}
		return nil, internal("get user by id", err)
	}

	profile := user.Profile()
	return &profile, nil
}

func invalidCredentials() error {
	return oops.Code(common.KindInvalidCredentials).Errorf("invalid email or password")
}

func (s *SessionManager) issuePair(userID string) (*models.TokenPair, error) {
	access, err := s.deps.Signer.IssueAccessToken(userID)
	if err != nil {
		return nil, internal("issue access token", err)
	}
	refresh, err := s.deps.Signer.IssueRefreshToken(userID)
	if err != nil {
		return nil, internal("issue refresh token", err)
	}
	return &models.TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// openSession issues a pair and stores its refresh token as the user's only
// session.
func (s *SessionManager) openSession(ctx context.Context, db dbx.DBTX, userID string) (*models.TokenPair, error) {
	pair, err := s.issuePair(userID)
	if err != nil {
		return nil, err
	}
	if err := s.repos.Sessions(db).Save(ctx, userID, pair.RefreshToken); err != nil {
		return nil, internal("save session", err)
	}
	return pair, nil
}
