// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package api wires together the HTTP router, middleware chain, and all
domain handlers into a runnable [http.Server].

Architecture:

  - This package is the topmost Presentation layer boundary.
  - It acts as the central composition root for the HTTP transport framework (chi router).
  - chi middleware wraps the whole router. Request guards that need the
    per-request exchange run as the shared base [pipeline.Chain].
  - Only this package and cmd/api are allowed to import net/http server primitives.
*/
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/taibuivan/trailhead/internal/core/booking"
	"github.com/taibuivan/trailhead/internal/core/review"
	"github.com/taibuivan/trailhead/internal/core/tour"
	"github.com/taibuivan/trailhead/internal/platform/apperr"
	"github.com/taibuivan/trailhead/internal/platform/config"
	"github.com/taibuivan/trailhead/internal/platform/constants"
	"github.com/taibuivan/trailhead/internal/platform/middleware"
	"github.com/taibuivan/trailhead/internal/platform/pipeline"
	"github.com/taibuivan/trailhead/internal/platform/ratelimit"
	"github.com/taibuivan/trailhead/internal/platform/respond"
	"github.com/taibuivan/trailhead/internal/users/account"
	"github.com/taibuivan/trailhead/internal/users/auth"
)

// # Server Definitions

// Server wraps the chi router and the [http.Server].
//
// It is constructed once in main.go with all dependencies injected.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	log        *slog.Logger
}

// # Handler Registry

// Handlers groups all domain-specific HTTP handler sets.
type Handlers struct {
	// Liveness is the /health handler. It returns 200 while the process is alive.
	Liveness http.HandlerFunc

	// Readiness is the /ready handler. It returns 200 when all deps are healthy.
	Readiness http.HandlerFunc

	// Auth handles signup, login and password flows under /users.
	Auth *auth.Handler

	// Account handles self-service and administration of accounts under /users.
	Account *account.Handler

	// Tour handles the catalogue, aliases and reports.
	Tour *tour.Handler

	// Review handles reviews, both top-level and nested under a tour.
	Review *review.Handler

	// Booking handles administrative booking CRUD.
	Booking *booking.Handler
}

// # Server Initialization

// NewServer constructs the chi router with the full middleware chain and
// registers all route groups.
func NewServer(cfg *config.Config, log *slog.Logger, limiter ratelimit.Limiter, h Handlers) *Server {
	r := chi.NewRouter()
	errorWriter := respond.ErrorWriter{Verbose: cfg.VerboseErrors()}

	// # Middleware Chain
	// Global middleware applied in order of execution.
	r.Use(middleware.RequestID())
	r.Use(chimw.RealIP)
	r.Use(middleware.StructuredLogger(log))
	r.Use(chimw.Timeout(constants.GlobalRequestTimeout))
	r.Use(middleware.PanicRecovery(errorWriter))
	r.Use(middleware.CORS(cfg, cfg.ExtraOrigins...))
	r.Use(chimw.CleanPath)

	// # Request Guards
	// Every API route extends this chain with its own stages.
	base := pipeline.New(func(exchange *pipeline.Exchange, err error) {
		errorWriter.Write(exchange.Writer, exchange.Request, err)
	},
		middleware.SecurityHeaders(cfg.IsProduction()),
		middleware.RateLimit(limiter),
		middleware.ParseBody(cfg.MaxBodyBytes),
		middleware.Sanitize(constants.PollutionWhitelist...),
	)

	// Unknown routes share the failure envelope. Set before mounting so
	// sub-routers inherit them.
	notFound := unknownRoute(errorWriter)
	r.NotFound(notFound)
	r.MethodNotAllowed(notFound)

	// # Infrastructure Endpoints
	// Unauthenticated health checks for container orchestration.
	r.Get("/health", h.Liveness)
	r.Get("/ready", h.Readiness)

	// # Application API
	// Domain-specific route groups mounted under versioned prefix.
	r.Route("/api/v1", func(api chi.Router) {
		api.Route("/tours", func(tours chi.Router) {
			h.Tour.Register(tours, base, func(reviews chi.Router) {
				h.Review.Register(reviews, base)
			})
		})

		api.Route("/users", func(users chi.Router) {
			h.Auth.Register(users, base)
			h.Account.Register(users, base)
		})

		api.Route("/reviews", func(reviews chi.Router) {
			h.Review.Register(reviews, base)
		})

		api.Route("/bookings", func(bookings chi.Router) {
			h.Booking.Register(bookings, base)
		})
	})

	return &Server{
		router: r,
		log:    log,
		httpServer: &http.Server{
			Addr:              ":" + cfg.ServerPort,
			Handler:           r,
			ReadTimeout:       constants.DefaultReadTimeout,
			WriteTimeout:      constants.DefaultWriteTimeout,
			IdleTimeout:       constants.DefaultIdleTimeout,
			ReadHeaderTimeout: constants.DefaultReadHeaderTimeout,
		},
	}
}

// unknownRoute renders the 404 for paths no route matches.
func unknownRoute(errorWriter respond.ErrorWriter) http.HandlerFunc {
	return func(writer http.ResponseWriter, request *http.Request) {
		message := fmt.Sprintf("Can't find %s on this server!", request.URL.Path)
		errorWriter.Write(writer, request, apperr.NotFound(message))
	}
}

// Handler exposes the fully wired router.
func (s *Server) Handler() http.Handler {
	return s.router
}

// # Server Lifecycle

// ListenAndServe starts the HTTP server.
//
// It blocks until the server is closed or an error occurs.
func (s *Server) ListenAndServe() error {
	s.log.Info("server starting", slog.String("addr", s.httpServer.Addr))
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the server, waiting for in-flight requests.
func (s *Server) Shutdown(timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return s.httpServer.Shutdown(ctx)
}
