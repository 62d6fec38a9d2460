package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	httpapi "github.com/aussiebroadwan/usermgmt/internal/auth/http"
	"github.com/aussiebroadwan/usermgmt/internal/auth/notify"
	"github.com/aussiebroadwan/usermgmt/internal/auth/seed"
	"github.com/aussiebroadwan/usermgmt/internal/auth/service"
	"github.com/aussiebroadwan/usermgmt/internal/auth/store"
	"github.com/aussiebroadwan/usermgmt/internal/auth/store/drivers/sqlite"
	"github.com/aussiebroadwan/usermgmt/pkg/cryptox"
	"github.com/aussiebroadwan/usermgmt/pkg/httpx"
	"github.com/aussiebroadwan/usermgmt/pkg/jwtx"
	"github.com/aussiebroadwan/usermgmt/pkg/slogx"
)

const (
	// BuildVersion should be set at build time via ldflags. Later problem
	BuildVersion = "v0.1.0"
)

// Application encapsulates the auth service application with all its dependencies
type Application struct {
	cfg    Config
	logger *slog.Logger

	// Core dependencies
	db     store.Store
	hasher *cryptox.PasswordHasher
	codec  *jwtx.SessionCodec
	redis  *redis.Client // Optional: only with the redis rate limit backend

	// Mail delivery
	notifier   service.Notifier
	amqp       *notify.AMQPNotifier // Optional: only with the amqp transport
	mailWorker *notify.Worker       // Optional: only with the amqp transport

	// Services
	accountService    *service.AccountService
	permissionService *service.PermissionService
	bootstrapService  *service.BootstrapService

	// HTTP server
	server *http.Server
	router *httpapi.Router
}

// New creates a new Application instance with all dependencies initialized.
// The database is migrated and seeded before New returns.
func New(ctx context.Context, cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "auth-service",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	pepper, err := cryptox.LoadOrCreatePepper(cfg.PepperFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load pepper: %w", err)
	}
	app.hasher = cryptox.NewPasswordHasher(pepper)

	codec, err := initSessionCodec(cfg, app.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize session codec: %w", err)
	}
	app.codec = codec

	if err := app.initDatabase(); err != nil {
		return nil, err
	}

	app.initNotifier()
	app.initServices()

	if err := app.seed(ctx); err != nil {
		_ = app.db.Close()
		return nil, err
	}

	if err := app.initHTTP(ctx); err != nil {
		_ = app.db.Close()
		return nil, err
	}

	return app, nil
}

// Run starts the application and blocks until ctx is cancelled, a shutdown
// signal arrives or the server fails.
func (app *Application) Run(ctx context.Context) error {
	if app.mailWorker != nil {
		app.mailWorker.Start()
	}

	app.logger.Info("auth service starting", "port", app.cfg.Port, "version", BuildVersion)

	// Start server in a goroutine
	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	// Setup signal handling for graceful shutdown
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(shutdown)

	// Block until we receive a shutdown signal or server error
	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-shutdown:
		app.logger.Info("shutdown signal received", "signal", sig)
	case <-ctx.Done():
		app.logger.Info("context cancelled", "cause", context.Cause(ctx))
	}

	if err := app.Shutdown(); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the application
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down auth service...")

	// Give outstanding requests a deadline for completion
	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	// Shutdown the HTTP server
	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	// Stop consuming before the publisher goes away
	if app.mailWorker != nil {
		app.mailWorker.Stop()
	}
	if app.amqp != nil {
		if err := app.amqp.Close(); err != nil {
			app.logger.Warn("error closing mail queue", "error", err)
		}
	}

	if app.redis != nil {
		if err := app.redis.Close(); err != nil {
			app.logger.Warn("error closing redis", "error", err)
		}
	}

	// Close database connection
	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}

	app.logger.Info("auth service stopped")
	return nil
}

// initDatabase initializes the database and applies migrations
func (app *Application) initDatabase() error {
	db, err := sqlite.NewStore(app.cfg.DatabaseFile)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}

	app.logger.Info("database migrations applied successfully")
	return nil
}

// initNotifier selects the verification mail transport.
func (app *Application) initNotifier() {
	var smtpSender notify.Sender
	if app.cfg.SMTPHost != "" {
		smtpSender = &notify.SMTPNotifier{
			Host:     app.cfg.SMTPHost,
			Port:     app.cfg.SMTPPort,
			Username: app.cfg.SMTPUsername,
			Password: app.cfg.SMTPPassword,
			From:     app.cfg.MailFrom,
		}
	}
	logSender := &notify.LogNotifier{Logger: app.logger}

	switch app.cfg.MailTransport {
	case MailTransportSMTP:
		app.notifier = smtpSender
	case MailTransportAMQP:
		app.amqp = notify.NewAMQPNotifier(app.cfg.AMQPURL, app.cfg.MailQueue)
		app.notifier = app.amqp

		// The worker delivers through SMTP when configured, else logs.
		var deliver notify.Sender = logSender
		if smtpSender != nil {
			deliver = smtpSender
		}
		app.mailWorker = notify.NewWorker(app.cfg.AMQPURL, app.cfg.MailQueue, deliver, app.logger, app.cfg.MailTimeout)
	default:
		app.notifier = logSender
	}

	app.logger.Info("mail transport selected", "transport", app.cfg.MailTransport)
}

// initServices initializes all business logic services
func (app *Application) initServices() {
	activity := &service.ActivityLog{Store: app.db}

	app.accountService = &service.AccountService{
		Store:           app.db,
		Hasher:          app.hasher,
		Tokens:          app.codec,
		Notifier:        app.notifier,
		Activity:        activity,
		VerificationTTL: app.cfg.VerificationTTL,
		MailTimeout:     app.cfg.MailTimeout,
	}
	app.permissionService = &service.PermissionService{Store: app.db}
	app.bootstrapService = &service.BootstrapService{
		Store:  app.db,
		Hasher: app.hasher,
	}
}

// seed loads the catalog, applies admin overrides and seeds the database.
func (app *Application) seed(ctx context.Context) error {
	cat, err := seed.Load(app.cfg.SeedFile)
	if err != nil {
		return fmt.Errorf("failed to load seed catalog: %w", err)
	}
	if app.cfg.AdminEmail != "" {
		cat.Admin.Email = normalizeEmail(app.cfg.AdminEmail)
	}
	if app.cfg.AdminName != "" {
		cat.Admin.Name = app.cfg.AdminName
	}
	if app.cfg.AdminPassword != "" {
		cat.Admin.Password = app.cfg.AdminPassword
	}
	app.bootstrapService.Catalog = cat

	ctx = slogx.WithContext(ctx, app.logger)
	if _, err := app.bootstrapService.Seed(ctx); err != nil {
		return fmt.Errorf("failed to seed database: %w", err)
	}
	return nil
}

// initHTTP initializes the HTTP router and server
func (app *Application) initHTTP(ctx context.Context) error {
	limiter, err := app.initRateLimiter(ctx)
	if err != nil {
		return err
	}

	router := httpapi.NewRouter(
		app.codec,
		limiter,
		BuildVersion,
		app.db,
		app.logger,
	)

	// Wire services to router
	router.AccountService = app.accountService
	router.PermissionService = app.permissionService
	router.RequestTimeout = app.cfg.RequestTimeout
	if app.redis != nil {
		router.Cache = httpapi.PingerFunc(func(ctx context.Context) error {
			return app.redis.Ping(ctx).Err()
		})
	}
	router.ApplyRoutes()

	app.router = router

	// Initialize HTTP server
	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
	return nil
}

// initRateLimiter picks the rate limit backend. Redis shares buckets between
// instances; it must be reachable at startup.
func (app *Application) initRateLimiter(ctx context.Context) (*httpx.RateLimiter, error) {
	if app.cfg.RateLimitBackend != RateLimitRedis {
		return httpx.NewRateLimiter(httpx.NewMemoryBackend()), nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     app.cfg.RedisAddr,
		Password: app.cfg.RedisPassword,
		DB:       app.cfg.RedisDB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", app.cfg.RedisAddr, err)
	}
	app.redis = client

	app.logger.Info("redis rate limit backend enabled", "addr", app.cfg.RedisAddr)
	return httpx.NewRateLimiter(httpx.NewRedisBackend(client, "usermgmt:ratelimit:")), nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
