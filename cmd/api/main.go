// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Command api is the entry point for the Trailhead HTTP API server.
//
// # Startup Sequence
//
//  1. Initialize structured logger.
//  2. Load configuration from environment variables.
//  3. Run database migrations (idempotent).
//  4. Connect to PostgreSQL (pgxpool).
//  5. Connect to Redis when configured and pick the rate limiter.
//  6. Build the token service, password hasher and mail sender.
//  7. Wire stores, services and HTTP handlers.
//  8. Start the maintenance scheduler.
//  9. Start HTTP server with graceful shutdown.
//
// No business logic lives here. All wiring is explicit constructor injection.
package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/taibuivan/trailhead/internal/api"
	"github.com/taibuivan/trailhead/internal/core/booking"
	"github.com/taibuivan/trailhead/internal/core/review"
	"github.com/taibuivan/trailhead/internal/core/tour"
	"github.com/taibuivan/trailhead/internal/platform/config"
	"github.com/taibuivan/trailhead/internal/platform/constants"
	"github.com/taibuivan/trailhead/internal/platform/docstore"
	"github.com/taibuivan/trailhead/internal/platform/jobs"
	"github.com/taibuivan/trailhead/internal/platform/mail"
	"github.com/taibuivan/trailhead/internal/platform/migration"
	pgstore "github.com/taibuivan/trailhead/internal/platform/postgres"
	"github.com/taibuivan/trailhead/internal/platform/ratelimit"
	redisstore "github.com/taibuivan/trailhead/internal/platform/redis"
	"github.com/taibuivan/trailhead/internal/platform/sec"
	"github.com/taibuivan/trailhead/internal/users/account"
	"github.com/taibuivan/trailhead/internal/users/auth"
)

// jobTimeout bounds a single run of a scheduled job.
const jobTimeout = 5 * time.Minute

func main() {
	// ── 1. Logger ──────────────────────────────────────────────────────────
	// Initialize first so that subsequent startup errors are structured JSON.
	log := newLogger(os.Stdout, slog.LevelInfo)
	slog.SetDefault(log)

	log.Info("service_initializing", slog.String("version", constants.AppVersion))

	// ── 2. Configuration ──────────────────────────────────────────────────
	cfg, err := config.Load()
	must(log, err, "load configuration")

	if cfg.Debug {
		log = newLogger(os.Stdout, slog.LevelDebug)
		slog.SetDefault(log)
		log.Debug("debug_logging_enabled")
	}

	log.Info("configuration_loaded",
		slog.String("environment", cfg.Environment),
		slog.String("port", cfg.ServerPort),
		slog.String("mail_transport", cfg.MailTransport),
	)

	// Background work (limiter janitor) lives until shutdown.
	rootCtx, stopRoot := context.WithCancel(context.Background())
	defer stopRoot()

	// Root context for startup. Use a 30s deadline so misconfiguration is
	// caught quickly rather than hanging indefinitely.
	startupCtx, startupCancel := context.WithTimeout(rootCtx, 30*time.Second)
	defer startupCancel()

	// ── 3. Migrations ─────────────────────────────────────────────────────
	must(log, migration.RunUp(cfg.DatabaseURL, cfg.MigrationPath, log), "run migrations")

	// ── 4. PostgreSQL ─────────────────────────────────────────────────────
	poolOptions := pgstore.DefaultPoolOptions()
	poolOptions.MaxConns = cfg.DatabaseMaxConns
	poolOptions.MinConns = cfg.DatabaseMinConns
	poolOptions.StatementTimeout = constants.GlobalRequestTimeout

	pool, err := pgstore.NewPool(startupCtx, cfg.DatabaseURL, poolOptions, log)
	must(log, err, "connect to postgres")
	defer func() {
		log.Info("closing postgres pool")
		pool.Close()
	}()

	// ── 5. Redis & Rate Limiter ───────────────────────────────────────────
	var (
		rdb     *redis.Client
		limiter ratelimit.Limiter
	)
	if cfg.RedisURL != "" {
		rdb, err = redisstore.NewClient(startupCtx, cfg.RedisURL, cfg.RedisPoolSize, log)
		must(log, err, "connect to redis")
		defer func() {
			log.Info("closing redis client")
			if cerr := rdb.Close(); cerr != nil {
				log.Error("redis close error", slog.Any("error", cerr))
			}
		}()
		limiter = ratelimit.NewRedisLimiter(rdb, cfg.RateLimitCapacity, cfg.RateLimitWindow)
	} else {
		log.Warn("redis_not_configured", slog.String("rate_limiter", "local"))
		limiter = ratelimit.NewLocalLimiter(rootCtx, cfg.RateLimitCapacity, cfg.RateLimitWindow)
	}

	// ── 6. Security & Mail ────────────────────────────────────────────────
	tokens, err := sec.LoadTokenService(cfg.JWTPrivKeyPath, cfg.JWTPubKeyPath, constants.AuthIssuer, cfg.JWTExpiresIn)
	must(log, err, "initialize jwt service")

	var mailer mail.Sender = mail.NewLogSender(log, cfg.MailFrom)
	if cfg.MailTransport == config.MailTransportAMQP {
		amqpSender, err := mail.NewAMQPSender(cfg.AMQPURL, cfg.MailQueue, cfg.MailFrom)
		must(log, err, "connect to mail broker")
		defer func() {
			if cerr := amqpSender.Close(); cerr != nil {
				log.Error("mail broker close error", slog.Any("error", cerr))
			}
		}()
		mailer = amqpSender
	}

	// ── 7. Health handlers (wired with real dependency checkers) ──────────
	healthDeps := api.HealthDependencies{
		CheckDatabase: func(ctx context.Context) error {
			return pgstore.Ping(ctx, pool)
		},
	}
	if rdb != nil {
		healthDeps.CheckCache = func(ctx context.Context) error {
			return redisstore.Ping(ctx, rdb)
		}
	}
	liveness, readiness := api.NewHealthHandlers(healthDeps, log)

	// ── 8. Domain Wiring ──────────────────────────────────────────────────
	users := account.NewStore(pool)
	rawTours := tour.NewStore(pool)
	rawReviews := review.NewStore(pool)

	reviews := docstore.Populated(rawReviews,
		docstore.PopulateRefs(review.FieldUser, users, account.AuthorFields...))
	tours := docstore.Populated(tour.Public(rawTours),
		docstore.PopulateRefs(tour.FieldGuides, users, account.GuideFields...))
	bookings := docstore.Populated(booking.NewStore(pool),
		docstore.PopulateRefs(booking.FieldUser, users, account.AuthorFields...),
		docstore.PopulateRefs(booking.FieldTour, rawTours, tour.FieldName))

	authService := auth.NewService(auth.NewUserRepository(pool), tokens, sec.NewHasher(cfg.BcryptCost), mailer)
	protect := authService.Protect()

	ratings := review.NewRatings(rawReviews, rawTours)

	handlers := api.Handlers{
		Liveness:  liveness,
		Readiness: readiness,
		Auth: auth.NewHandler(authService, auth.CookiePolicy{
			TTL:    cfg.CookieTTL(),
			Secure: cfg.IsProduction(),
		}, cfg.PublicURL),
		Account: account.NewHandler(account.NewService(users), protect),
		Tour: tour.NewHandler(tours, tour.NewReports(pool), authService,
			docstore.Attach(tour.FieldReviews, reviews, review.FieldTour)),
		Review:  review.NewHandler(reviews, ratings, protect),
		Booking: booking.NewHandler(bookings, protect),
	}

	// ── 9. Scheduler ──────────────────────────────────────────────────────
	scheduler := jobs.NewScheduler(log, jobTimeout)
	if cfg.RatingsReconcileSchedule != "" {
		reconciler := review.NewReconciler(ratings, log)
		must(log, scheduler.Register("ratings_reconcile", cfg.RatingsReconcileSchedule, reconciler.Job()), "register ratings job")
	}
	scheduler.Start()

	// ── 10. HTTP Server ───────────────────────────────────────────────────
	server := api.NewServer(cfg, log, limiter, handlers)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)

	serverErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Block until OS signal or server error.
	select {
	case sig := <-quit:
		log.Info("shutdown signal received", slog.String("signal", sig.String()))
	case err := <-serverErr:
		log.Error("server startup error", slog.Any("error", err))
	}

	// Give in-flight requests enough time to complete.
	shutdownTimeout := constants.ShutdownTimeout
	log.Info("shutting down server", slog.Duration("timeout", shutdownTimeout))

	if err := server.Shutdown(shutdownTimeout); err != nil {
		log.Error("shutdown error", slog.Any("error", err))
	}

	stopCtx, stopCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer stopCancel()
	if err := scheduler.Stop(stopCtx); err != nil {
		log.Error("scheduler stop error", slog.Any("error", err))
	}

	log.Info("server stopped cleanly")
}

// newLogger builds the JSON logger carrying the application name on every entry.
func newLogger(out io.Writer, level slog.Level) *slog.Logger {
	handler := slog.NewJSONHandler(out, &slog.HandlerOptions{Level: level})
	return slog.New(handler).With(slog.String("app", constants.AppName))
}

// must logs a structured fatal error and terminates the process if err is non-nil.
//
// It is intentionally limited to startup wiring. After startup, all errors
// must be returned and handled explicitly (never panic).
func must(log *slog.Logger, err error, context string) {
	if err != nil {
		log.Error("startup failure",
			slog.String("context", context),
			slog.Any("error", err),
		)
		os.Exit(1)
	}
}
