package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/banzuke/banzuke/internal/config"
	"github.com/banzuke/banzuke/internal/core/sumoapi"
	apperrors "github.com/banzuke/banzuke/internal/errors"
	"github.com/banzuke/banzuke/internal/observability"
	servermw "github.com/banzuke/banzuke/internal/server/middleware"
)

// Deps are the collaborators the HTTP surface serves from.
type Deps struct {
	// API is the governed upstream client. Without it the /api and
	// /ratelimit routes are not registered.
	API *sumoapi.Client

	// AdminToken enables the signal endpoint and guards the limiter reset.
	AdminToken string

	// Now overrides the clock used to resolve the current basho.
	Now func() time.Time
}

// Server represents the HTTP server
type Server struct {
	router   *chi.Mux
	server   *http.Server
	cfg      config.ServerConfig
	deps     Deps
	throttle *rate.Limiter
}

// New creates a new HTTP server instance
func New(cfg config.ServerConfig, deps Deps) *Server {
	r := chi.NewRouter()

	r.Use(middleware.RealIP)

	// RequestID → Metrics → Recovery
	r.Use(servermw.RequestID)
	r.Use(servermw.RequestMetrics)
	r.Use(servermw.Recovery)

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		err := apperrors.NewNotFoundError("The requested resource was not found")
		apperrors.RespondWithError(w, req, err)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		err := apperrors.NewMethodNotAllowedError("The requested method is not allowed for this resource")
		apperrors.RespondWithError(w, req, err)
	})

	s := &Server{
		router:   r,
		cfg:      cfg,
		deps:     deps,
		throttle: servermw.NewThrottle(cfg.RequestsPerSecond, cfg.Burst),
	}

	s.registerRoutes()

	return s
}

// Addr is the host:port the server listens on.
func (s *Server) Addr() string {
	return fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
}

// Start starts the HTTP server
func (s *Server) Start() error {
	addr := s.Addr()

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  config.DurationOrDefault(s.cfg.ReadTimeout, 30*time.Second),
		WriteTimeout: config.DurationOrDefault(s.cfg.WriteTimeout, 30*time.Second),
		IdleTimeout:  config.DurationOrDefault(s.cfg.IdleTimeout, 120*time.Second),
	}

	if observability.ServerLogger != nil {
		observability.ServerLogger.Info("Starting HTTP server",
			zap.String("addr", addr),
			zap.Bool("throttled", s.throttle != nil))
	}

	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	if observability.ServerLogger != nil {
		observability.ServerLogger.Info("Shutting down HTTP server")
	}
	return s.server.Shutdown(ctx)
}

// Handler exposes the underlying router for testing and instrumentation
func (s *Server) Handler() http.Handler {
	return s.router
}

// Port returns the server port for testing
func (s *Server) Port() int {
	return s.cfg.Port
}
