// Package server initializes and runs the credkeeper server process.
// It connects storage, builds the credential services, serves the HTTP API
// and the gRPC health endpoint, and handles graceful shutdown.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dmitrijs2005/credkeeper/internal/logging"
	"github.com/dmitrijs2005/credkeeper/internal/server/auth"
	"github.com/dmitrijs2005/credkeeper/internal/server/config"
	"github.com/dmitrijs2005/credkeeper/internal/server/mailer"
	"github.com/dmitrijs2005/credkeeper/internal/server/metrics"
	"github.com/dmitrijs2005/credkeeper/internal/server/ratelimit"
	"github.com/dmitrijs2005/credkeeper/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/credkeeper/internal/server/services"

	gs "github.com/dmitrijs2005/credkeeper/internal/server/grpc"
	hs "github.com/dmitrijs2005/credkeeper/internal/server/http"
)

const (
	dbConnectTimeout = 5 * time.Second
	shutdownTimeout  = 10 * time.Second
)

type App struct {
	config  *config.Config
	logger  logging.Logger
	db      *sql.DB
	router  http.Handler
	resets  *services.PasswordResetManager
	closers []io.Closer

	janitorInterval time.Duration
	// httpListener is set once the HTTP server is listening.
	httpListener chan net.Addr
}

// NewApp connects to Postgres, applies migrations and wires the services.
func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	logger := logging.NewJSON(os.Stdout, c.LogLevel)

	db, err := repomanager.OpenDB(ctx, c.DatabaseDSN, dbConnectTimeout)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrations error: %w", err)
	}

	// newApp closes db on failure
	return newApp(ctx, c, logger, db, rm)
}

// newApp builds every component on top of an open database.
func newApp(ctx context.Context, c *config.Config, logger logging.Logger, db *sql.DB, rm repomanager.RepositoryManager) (*App, error) {
	app := &App{
		config:          c,
		logger:          logger,
		db:              db,
		janitorInterval: c.JanitorInterval,
		httpListener:    make(chan net.Addr, 1),
	}

	m := metrics.New()

	transport, err := app.mailTransport()
	if err != nil {
		app.close()
		return nil, err
	}
	dispatcher := mailer.NewDispatcher(transport, logger, c.MailTimeout, m.MailFailed)

	hasher, err := auth.NewHasher(c.PasswordHasher, c.BcryptCost)
	if err != nil {
		app.close()
		return nil, err
	}

	signer, err := auth.NewSigner(auth.SignerConfig{
		Access:  auth.KeyConfig{Secret: []byte(c.AccessTokenSecret), TTL: c.AccessTokenValidityDuration},
		Refresh: auth.KeyConfig{Secret: []byte(c.RefreshTokenSecret), TTL: c.RefreshTokenValidityDuration},
		Reset:   auth.KeyConfig{Secret: []byte(c.ResetTokenSecret), TTL: c.ResetTokenValidityDuration},
	})
	if err != nil {
		app.close()
		return nil, err
	}

	deps := services.Dependencies{
		Hasher:   hasher,
		Signer:   signer,
		Mailer:   dispatcher,
		Logger:   logger.With("module", "services"),
		Recorder: m,
	}

	sessions, err := services.NewSessionManager(db, rm, deps, c)
	if err != nil {
		app.close()
		return nil, err
	}
	app.resets = services.NewPasswordResetManager(db, rm, deps, c)

	limiter, err := app.rateLimiter(ctx)
	if err != nil {
		app.close()
		return nil, err
	}

	app.router = hs.NewRouter(hs.Options{
		Sessions:     sessions,
		Resets:       app.resets,
		Limiter:      limiter,
		Metrics:      m,
		Logger:       logger,
		Ping:         db.PingContext,
		ClientURL:    c.ClientURL,
		RefreshTTL:   c.RefreshTokenValidityDuration,
		CookieSecure: c.CookieSecure,
		TrustProxy:   c.TrustProxyHeaders,
	})

	return app, nil
}

func (app *App) mailTransport() (mailer.Transport, error) {
	c := app.config
	switch c.MailTransport {
	case config.MailTransportSMTP:
		return mailer.NewSMTPTransport(mailer.SMTPConfig{
			Addr:     c.SMTPAddr,
			Username: c.SMTPUser,
			Password: c.SMTPPassword,
			From:     c.MailFrom,
		})
	case config.MailTransportKafka:
		t, err := mailer.NewKafkaTransport(c.KafkaBrokers, c.KafkaMailTopic)
		if err != nil {
			return nil, err
		}
		app.closers = append(app.closers, t)
		return t, nil
	default:
		return mailer.NewLogTransport(app.logger), nil
	}
}

func (app *App) rateLimiter(ctx context.Context) (ratelimit.Limiter, error) {
	c := app.config
	if c.RateLimitRequests <= 0 {
		return ratelimit.Unlimited{}, nil
	}
	if c.RedisURL == "" {
		return ratelimit.NewMemoryLimiter(c.RateLimitRequests, c.RateLimitWindow), nil
	}

	client, err := ratelimit.Connect(ctx, c.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("redis init error: %w", err)
	}
	app.closers = append(app.closers, client)
	return ratelimit.NewRedisLimiter(client, c.RateLimitRequests, c.RateLimitWindow), nil
}

func (app *App) initSignalHandler(ctx context.Context, cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		defer signal.Stop(sigs)
		select {
		case sig := <-sigs:
			app.logger.Info(ctx, "Signal received", "signal", sig.String())
			cancelFunc()
		case <-ctx.Done():
		}
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) error {
	lis, err := net.Listen("tcp", app.config.HTTPAddr)
	if err != nil {
		cancelFunc()
		return err
	}
	app.httpListener <- lis.Addr()

	srv := &http.Server{
		Handler:           app.router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		app.logger.Info(ctx, "Starting HTTP server", "address", lis.Addr().String())
		errCh <- srv.Serve(lis)
	}()

	select {
	case err := <-errCh:
		cancelFunc()
		return err
	case <-ctx.Done():
	}

	app.logger.Info(ctx, "Stopping HTTP server...")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (app *App) startGRPCServer(ctx context.Context, cancelFunc context.CancelFunc) error {
	s := gs.NewGRPCServer(app.config.GRPCAddr, app.logger)
	if err := s.Run(ctx); err != nil {
		cancelFunc()
		return err
	}
	return nil
}

// startJanitor purges expired password resets until ctx is done.
func (app *App) startJanitor(ctx context.Context) {
	ticker := time.NewTicker(app.janitorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := app.resets.PurgeExpired(ctx)
			if err != nil {
				logging.LogWarn(ctx, app.logger, "purge expired resets failed", err)
				continue
			}
			if n > 0 {
				app.logger.Info(ctx, "purged expired resets", "count", n)
			}
		}
	}
}

// Run serves until ctx is canceled, a termination signal arrives or a
// listener fails. It releases every resource before returning.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(ctx, cancelFunc)

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	record := func(err error) {
		if err != nil {
			mu.Lock()
			errs = append(errs, err)
			mu.Unlock()
		}
	}

	wg.Add(3)
	go func() {
		defer wg.Done()
		record(app.startHTTPServer(ctx, cancelFunc))
	}()
	go func() {
		defer wg.Done()
		record(app.startGRPCServer(ctx, cancelFunc))
	}()
	go func() {
		defer wg.Done()
		app.startJanitor(ctx)
	}()

	wg.Wait()
	app.close()

	app.logger.Info(context.WithoutCancel(ctx), "App stopped")
	return errors.Join(errs...)
}

func (app *App) close() {
	for i := len(app.closers) - 1; i >= 0; i-- {
		if err := app.closers[i].Close(); err != nil {
			app.logger.Warn(context.Background(), "close failed", "error", err)
		}
	}
	app.closers = nil
	if app.db != nil {
		_ = app.db.Close()
	}
}
