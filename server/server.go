// Package server assembles the HTTP server: middleware chain, routes
// and graceful shutdown.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pharmalink/pharmalink-api/config"
	"github.com/pharmalink/pharmalink-api/data"
	"github.com/pharmalink/pharmalink-api/handlers"
	"github.com/pharmalink/pharmalink-api/health"
	"github.com/pharmalink/pharmalink-api/logging"
	"github.com/pharmalink/pharmalink-api/metrics"
	"github.com/pharmalink/pharmalink-api/store"
	"github.com/pharmalink/pharmalink-api/verification"
)

// Server is the HTTP server with its dependencies.
type Server struct {
	server    *http.Server
	router    chi.Router
	container *data.Container
	store     *store.Store
	verifier  *verification.Verifier
	checker   *health.Checker
	config    *config.Config
}

// New creates a server instance with middleware and routes configured.
func New(cfg *config.Config, container *data.Container, st *store.Store) *Server {
	router := chi.NewRouter()

	s := &Server{
		server: &http.Server{
			Handler:      router,
			Addr:         cfg.Address + ":" + cfg.Port,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		router:    router,
		container: container,
		store:     st,
		verifier:  verification.NewVerifier(st, cfg.VerifyTimeout),
		checker:   health.NewChecker(container, st, cfg.RefreshEvery),
		config:    cfg,
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

// setupMiddleware configures the middleware chain.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(RealIPMiddleware)
	s.router.Use(logging.Middleware(logging.DefaultService.Logger))
	s.router.Use(middleware.RedirectSlashes)
	s.router.Use(middleware.Recoverer)
	s.router.Use(RequestSizeMiddleware(s.config))
	s.router.Use(RateLimitHandler)
	s.router.Use(metrics.Middleware)

	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
}

// setupRoutes configures all routes.
func (s *Server) setupRoutes() {
	s.router.Get("/catalog", handlers.ServeCatalog(s.container))
	s.router.Get("/catalog/filter", handlers.FilterCatalog(s.container))
	s.router.Get("/catalog/{pageNumber}", handlers.ServePagedCatalog(s.container))
	s.router.Get("/drug/{id}", handlers.FindGenericDrug(s.store))
	s.router.Get("/brand/{id}", handlers.FindBrandDetails(s.store))
	s.router.Get("/search", handlers.SearchCatalog(s.store, s.config.CatalogLimit))

	s.router.Post("/api/verify", handlers.VerifyCode(s.verifier))
	s.router.Post("/api/verify/batch", handlers.VerifyBatch(s.verifier, s.config.BatchVerifyMax))

	s.router.Get("/health", handlers.HealthCheck(s.checker))
	s.router.Method(http.MethodGet, "/metrics", promhttp.Handler())
}

// Start starts the server.
func (s *Server) Start() error {
	if s.config.Env == "dev" {
		s.startProfilingServer()
	}

	logging.Info(fmt.Sprintf("Starting server at: %s:%s", s.config.Address, s.config.Port))
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	logging.Info("Shutting down server...")

	if err := s.server.Shutdown(ctx); err != nil {
		logging.Error("Server forced to shutdown", "error", err)
		if err := s.server.Close(); err != nil {
			logging.Error("Server close error", "error", err)
			return err
		}
	}

	logging.Info("Server shutdown complete")
	return nil
}

// startProfilingServer starts the pprof server in development mode.
func (s *Server) startProfilingServer() {
	go func() {
		logging.Info("Profiling server started at http://localhost:6060/debug/pprof/")
		if err := http.ListenAndServe("localhost:6060", nil); err != nil {
			logging.Error("Profiling server failed", "error", err)
		}
	}()
}
