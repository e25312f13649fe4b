package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// DefaultAddr is the default server address.
const DefaultAddr = "127.0.0.1:8080"

// Config holds server configuration.
type Config struct {
	Addr           string
	AllowedOrigins []string
	SecureCookies  bool
}

// Server is the HTTP server for the API.
type Server struct {
	router   chi.Router
	server   *http.Server
	sessions SessionManager
	handlers *Handlers
	logger   *zap.Logger
	registry *prometheus.Registry
	metrics  *metrics
}

// NewServer creates a new API server.
func NewServer(cfg Config, svc Services, sessions SessionManager, logger *zap.Logger) *Server {
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	router := chi.NewRouter()

	s := &Server{
		router:   router,
		sessions: sessions,
		handlers: NewHandlers(svc, sessions, cfg.SecureCookies, logger),
		logger:   logger,
		registry: registry,
		metrics:  newMetrics(registry),
	}

	// Configure middleware
	s.setupMiddleware(cfg.AllowedOrigins)

	// Configure routes
	s.setupRoutes()

	// Create HTTP server
	s.server = &http.Server{
		Addr:         cfg.Addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Handler returns the router, for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupMiddleware configures middleware for the router.
func (s *Server) setupMiddleware(allowedOrigins []string) {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(requestLogger(s.logger))
	s.router.Use(s.metrics.middleware)
	s.router.Use(middleware.Recoverer)
	if len(allowedOrigins) > 0 {
		s.router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   allowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-Id"},
			ExposedHeaders:   []string{"Content-Disposition"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}
	s.router.Use(s.loadSession)
}

// setupRoutes configures routes for the application.
func (s *Server) setupRoutes() {
	h := s.handlers

	s.router.Get("/healthz", h.Health)
	s.router.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))

	// Auth routes
	s.router.Get("/auth/login", h.OAuthLogin)
	s.router.Get("/auth/callback", h.Callback)

	s.router.Route("/api", func(r chi.Router) {
		r.Post("/login", h.Login)
		r.Post("/register", h.Register)
		r.Post("/logout", h.Logout)
		r.Post("/password-reset", h.RequestPasswordReset)
		r.Post("/password-reset/confirm", h.ConfirmPasswordReset)

		r.Group(func(r chi.Router) {
			r.Use(requireAuth)

			r.Get("/export", h.Export)
			r.Get("/dashboard", h.Dashboard)
			r.Get("/analytics", h.Analytics)
			r.Get("/today", h.Today)

			r.Route("/habits", func(r chi.Router) {
				r.Get("/", h.ListHabits)
				r.Post("/", h.CreateHabit)
				r.Get("/{id}", h.GetHabit)
				r.Patch("/{id}", h.UpdateHabit)
				r.Delete("/{id}", h.DeleteHabit)
				r.Post("/{id}/archive", h.ArchiveHabit)
				r.Post("/{id}/complete", h.CompleteHabit)
				r.Delete("/{id}/complete", h.UncompleteHabit)
			})

			r.Get("/templates", h.ListTemplates)
			r.Post("/templates/{id}/apply", h.ApplyTemplate)

			r.Get("/schedule", h.ListSchedule)
			r.Post("/schedule", h.CreateEvent)
			r.Get("/schedule/today", h.TodaySchedule)
			r.Delete("/schedule/{id}", h.DeleteEvent)

			r.Get("/profile", h.GetProfile)
			r.Put("/profile", h.UpdateProfile)
		})
	})

	s.router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "not found"})
	})
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.logger.Info("starting server", zap.String("addr", "http://"+s.server.Addr))
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// Run starts the server and shuts it down gracefully when ctx is cancelled
// or an interrupt signal arrives.
func (s *Server) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Start server in goroutine
	errCh := make(chan error, 1)
	go func() {
		if err := s.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// Wait for interrupt or error
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		s.logger.Info("shutting down server")
	}

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	s.logger.Info("server stopped")
	return nil
}
