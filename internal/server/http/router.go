// Package http is the HTTP boundary of the credential services: JSON
// decoding, refresh-token cookies, error to status mapping and the
// middleware stack.
package http

import (
	"context"
	"net/http"
	"time"

	"github.com/dmitrijs2005/credkeeper/internal/logging"
	"github.com/dmitrijs2005/credkeeper/internal/server/models"
	"github.com/dmitrijs2005/credkeeper/internal/server/ratelimit"
	"github.com/dmitrijs2005/credkeeper/internal/server/services"
	"github.com/go-chi/chi/v5"
)

// SessionService is the part of services.SessionManager the router uses.
type SessionService interface {
	Register(ctx context.Context, in services.RegisterInput) (*models.AuthResult, error)
	Activate(ctx context.Context, link string) error
	Login(ctx context.Context, email, password string) (*models.AuthResult, error)
	Logout(ctx context.Context, refreshToken string) error
	Refresh(ctx context.Context, refreshToken string) (*models.AuthResult, error)
	Authenticate(ctx context.Context, accessToken string) (*models.Profile, error)
}

// ResetService is the part of services.PasswordResetManager the router uses.
type ResetService interface {
	RequestReset(ctx context.Context, email string) (string, error)
	ResetPassword(ctx context.Context, identityID, resetToken, newPassword string) error
}

// Instrumentation exposes metrics to the router.
type Instrumentation interface {
	RateLimited(route string)
	Handler() http.Handler
}

// Options configures NewRouter. Limiter, Metrics, Ping and Logger are
// optional.
type Options struct {
	Sessions SessionService
	Resets   ResetService
	Limiter  ratelimit.Limiter
	Metrics  Instrumentation
	Logger   logging.Logger

	// Ping reports storage readiness on /healthz.
	Ping func(context.Context) error

	ClientURL    string
	RefreshTTL   time.Duration
	CookieSecure bool

	// TrustProxy keys rate limits by X-Forwarded-For instead of the peer
	// address. Only safe behind a proxy that overwrites the header.
	TrustProxy bool
}

// Handler holds the dependencies of every route.
type Handler struct {
	opts   Options
	logger logging.Logger
}

// NewRouter registers the API routes and middleware stack.
func NewRouter(opts Options) http.Handler {
	if opts.Logger == nil {
		opts.Logger = logging.Nop{}
	}
	if opts.Limiter == nil {
		opts.Limiter = ratelimit.Unlimited{}
	}
	h := &Handler{opts: opts, logger: opts.Logger.With("module", "http")}

	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(h.recoverMiddleware)
	r.Use(h.loggingMiddleware)

	r.Get("/healthz", h.healthz)
	if opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", opts.Metrics.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		r.With(h.rateLimit("registration")).Post("/registration", h.registration)
		r.With(h.rateLimit("login")).Post("/login", h.login)
		r.With(h.rateLimit("request-reset")).Post("/request-reset", h.requestReset)
		r.Post("/logout", h.logout)
		r.Get("/activate/{link}", h.activate)
		r.Get("/refresh", h.refresh)
		r.Post("/reset-password", h.resetPassword)
		r.Get("/me", h.me)
	})

	return r
}
