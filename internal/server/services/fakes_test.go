package services

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/credkeeper/internal/common"
	"github.com/dmitrijs2005/credkeeper/internal/dbx"
	"github.com/dmitrijs2005/credkeeper/internal/server/auth"
	"github.com/dmitrijs2005/credkeeper/internal/server/config"
	"github.com/dmitrijs2005/credkeeper/internal/server/models"
	"github.com/dmitrijs2005/credkeeper/internal/server/repositories/resets"
	"github.com/dmitrijs2005/credkeeper/internal/server/repositories/sessions"
	"github.com/dmitrijs2005/credkeeper/internal/server/repositories/users"
	"github.com/google/uuid"
)

// --- helpers ---

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

func testConfig() *config.Config {
	return &config.Config{
		APIURL:    "http://api.test",
		ClientURL: "http://client.test/",
	}
}

func newTestSigner(t *testing.T) *auth.Signer {
	t.Helper()
	s, err := auth.NewSigner(auth.SignerConfig{
		Access:  auth.KeyConfig{Secret: []byte("access-secret"), TTL: 30 * time.Minute},
		Refresh: auth.KeyConfig{Secret: []byte("refresh-secret"), TTL: 30 * 24 * time.Hour},
		Reset:   auth.KeyConfig{Secret: []byte("reset-secret"), TTL: time.Hour},
	})
	if err != nil {
		t.Fatalf("NewSigner error: %v", err)
	}
	return s
}

type harness struct {
	db       *sql.DB
	mock     sqlmock.Sqlmock
	store    *memStore
	mailer   *fakeMailer
	recorder *fakeRecorder
	signer   *auth.Signer
	sessions *SessionManager
	resets   *PasswordResetManager
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	db, mock := newSQLMockDB(t)
	h := &harness{
		db:       db,
		mock:     mock,
		store:    newMemStore(),
		mailer:   &fakeMailer{},
		recorder: &fakeRecorder{},
		signer:   newTestSigner(t),
	}
	deps := Dependencies{
		Hasher:   auth.NewBcryptHasher(4),
		Signer:   h.signer,
		Mailer:   h.mailer,
		Recorder: h.recorder,
	}
	rm := &fakeRepoManager{store: h.store}

	var err error
	h.sessions, err = NewSessionManager(db, rm, deps, testConfig())
	if err != nil {
		t.Fatalf("NewSessionManager error: %v", err)
	}
	h.resets = NewPasswordResetManager(db, rm, deps, testConfig())
	h.resets.retry = dbx.RetryPolicy{MaxRetries: 0, BaseDelay: time.Millisecond}
	return h
}

// register runs a successful registration and returns its result.
func (h *harness) register(t *testing.T, email, password string) *models.AuthResult {
	t.Helper()
	h.mock.ExpectBegin()
	h.mock.ExpectCommit()
	res, err := h.sessions.Register(context.Background(), RegisterInput{
		Email: email, Password: password, FirstName: "A", LastName: "B", Avatar: "cat",
	})
	if err != nil {
		t.Fatalf("Register error: %v", err)
	}
	return res
}

func (h *harness) activate(t *testing.T, email string) {
	t.Helper()
	u := h.store.userByEmail(email)
	if u == nil {
		t.Fatalf("no user %s", email)
	}
	if err := h.sessions.Activate(context.Background(), u.ActivationLink); err != nil {
		t.Fatalf("Activate error: %v", err)
	}
}

// --- in-memory store shared by the fake repositories ---

type memStore struct {
	mu       sync.Mutex
	users    map[string]*models.User
	sessions map[string]*models.Session
	resets   map[string]*models.PasswordReset

	failWith error
}

func newMemStore() *memStore {
	return &memStore{
		users:    map[string]*models.User{},
		sessions: map[string]*models.Session{},
		resets:   map[string]*models.PasswordReset{},
	}
}

func (s *memStore) userByEmail(email string) *models.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == email {
			c := *u
			return &c
		}
	}
	return nil
}

func (s *memStore) resetCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.resets)
}

type fakeUsersRepo struct{ s *memStore }

func (r *fakeUsersRepo) Create(_ context.Context, u *models.User) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.failWith != nil {
		return nil, r.s.failWith
	}
	for _, existing := range r.s.users {
		if existing.Email == u.Email {
			return nil, common.ErrorAlreadyExists
		}
	}
	c := *u
	c.ID = uuid.NewString()
	c.CreatedAt = time.Now()
	r.s.users[c.ID] = &c
	out := c
	return &out, nil
}

func (r *fakeUsersRepo) GetByEmail(_ context.Context, email string) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.failWith != nil {
		return nil, r.s.failWith
	}
	for _, u := range r.s.users {
		if u.Email == email {
			c := *u
			return &c, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r *fakeUsersRepo) GetByID(_ context.Context, id string) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	c := *u
	return &c, nil
}

func (r *fakeUsersRepo) Activate(_ context.Context, link string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if u.ActivationLink == link {
			u.IsActivated = true
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeUsersRepo) UpdatePassword(_ context.Context, id string, hash string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return common.ErrorNotFound
	}
	u.PasswordHash = hash
	return nil
}

type fakeSessionsRepo struct{ s *memStore }

func (r *fakeSessionsRepo) Save(_ context.Context, userID, token string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.sessions[userID] = &models.Session{UserID: userID, RefreshToken: token, CreatedAt: time.Now()}
	return nil
}

func (r *fakeSessionsRepo) Find(_ context.Context, token string) (*models.Session, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, sess := range r.s.sessions {
		if sess.RefreshToken == token {
			c := *sess
			return &c, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r *fakeSessionsRepo) Rotate(_ context.Context, userID, oldToken, newToken string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	sess, ok := r.s.sessions[userID]
	if !ok || sess.RefreshToken != oldToken {
		return false, nil
	}
	sess.RefreshToken = newToken
	sess.CreatedAt = time.Now()
	return true, nil
}

func (r *fakeSessionsRepo) Delete(_ context.Context, token string) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for id, sess := range r.s.sessions {
		if sess.RefreshToken == token {
			delete(r.s.sessions, id)
			return 1, nil
		}
	}
	return 0, nil
}

type fakeResetsRepo struct{ s *memStore }

func (r *fakeResetsRepo) Save(_ context.Context, userID, token string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.resets[userID] = &models.PasswordReset{UserID: userID, ResetToken: token, CreatedAt: time.Now()}
	return nil
}

func (r *fakeResetsRepo) Find(_ context.Context, userID string) (*models.PasswordReset, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	rec, ok := r.s.resets[userID]
	if !ok {
		return nil, common.ErrorNotFound
	}
	c := *rec
	return &c, nil
}

func (r *fakeResetsRepo) FindForUpdate(ctx context.Context, userID string) (*models.PasswordReset, error) {
	return r.Find(ctx, userID)
}

func (r *fakeResetsRepo) Delete(_ context.Context, userID string) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.resets[userID]; !ok {
		return 0, nil
	}
	delete(r.s.resets, userID)
	return 1, nil
}

func (r *fakeResetsRepo) DeleteOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for id, rec := range r.s.resets {
		if rec.CreatedAt.Before(cutoff) {
			delete(r.s.resets, id)
			n++
		}
	}
	return n, nil
}

type fakeRepoManager struct{ store *memStore }

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (m *fakeRepoManager) Users(dbx.DBTX) users.Repository              { return &fakeUsersRepo{m.store} }
func (m *fakeRepoManager) Sessions(dbx.DBTX) sessions.Repository        { return &fakeSessionsRepo{m.store} }
func (m *fakeRepoManager) Resets(dbx.DBTX) resets.Repository            { return &fakeResetsRepo{m.store} }

// --- collaborators ---

type sentMail struct {
	kind, to, link string
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []sentMail
}

func (m *fakeMailer) record(kind, to, link string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentMail{kind, to, link})
}

func (m *fakeMailer) SendActivation(_ context.Context, email, link string) {
	m.record("activation", email, link)
}
func (m *fakeMailer) SendResetLink(_ context.Context, email, link string) {
	m.record("reset_link", email, link)
}
func (m *fakeMailer) SendResetConfirmation(_ context.Context, email string) {
	m.record("reset_confirmation", email, "")
}

func (m *fakeMailer) last() sentMail {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sent) == 0 {
		return sentMail{}
	}
	return m.sent[len(m.sent)-1]
}

type observation struct {
	operation, outcome string
}

type fakeRecorder struct {
	mu  sync.Mutex
	obs []observation
}

func (r *fakeRecorder) ObserveOperation(op, outcome string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.obs = append(r.obs, observation{op, outcome})
}

func (r *fakeRecorder) last() observation {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.obs) == 0 {
		return observation{}
	}
	return r.obs[len(r.obs)-1]
}
