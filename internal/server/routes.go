package server

import (
	"github.com/fulmenhq/gofulmen/signals"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/banzuke/banzuke/internal/config"
	"github.com/banzuke/banzuke/internal/observability"
	"github.com/banzuke/banzuke/internal/server/handlers"
	servermw "github.com/banzuke/banzuke/internal/server/middleware"
)

// registerRoutes registers all HTTP routes
func (s *Server) registerRoutes() {
	s.router.Get("/health", handlers.HealthHandler)
	s.router.Get("/health/live", handlers.LivenessHandler)
	s.router.Get("/health/ready", handlers.ReadinessHandler)
	s.router.Get("/health/startup", handlers.StartupHandler)

	s.router.Get("/version", handlers.VersionHandler)

	// Metrics endpoint, proxied from the exporter
	s.router.Get("/metrics", MetricsHandler)

	if s.deps.API != nil {
		s.registerAPIRoutes()
	}

	s.registerAdminEndpoint()
}

// registerAPIRoutes exposes the upstream resources and the limiter state.
// Only the /api group is throttled; every request there can spend upstream
// budget.
func (s *Server) registerAPIRoutes() {
	api := &handlers.API{Client: s.deps.API, Now: s.deps.Now}

	s.router.Route("/api", func(r chi.Router) {
		r.Use(servermw.Throttle(s.throttle))
		r.Get("/banzuke/{basho}/{division}", api.Banzuke)
		r.Get("/basho/{basho}", api.Basho)
		r.Get("/rikishi", api.RikishiList)
		r.Get("/rikishi/{id}", api.Rikishi)
	})

	limits := &handlers.RateLimit{Limiter: s.deps.API.Limiter()}
	s.router.Get("/ratelimit", limits.Status)
	s.router.With(servermw.BearerToken(s.deps.AdminToken)).Post("/ratelimit/reset", limits.Reset)
}

// registerAdminEndpoint optionally registers the admin signal endpoint
func (s *Server) registerAdminEndpoint() {
	logger := observability.ServerLogger
	tokenEnv := config.EnvPrefix + "_ADMIN_TOKEN"

	if s.deps.AdminToken == "" {
		if logger != nil {
			logger.Debug("Admin signal endpoint disabled (no " + tokenEnv + " set)")
		}
		return
	}

	handler := signals.NewHTTPHandler(signals.HTTPConfig{
		TokenAuth: s.deps.AdminToken,
		RateLimit: 10,  // 10 requests per minute
		RateBurst: 5,   // burst size
		Manager:   nil, // use default global manager
	})

	s.router.Post("/admin/signal", handler.ServeHTTP)

	if logger != nil {
		logger.Info("Admin signal endpoint enabled",
			zap.String("path", "/admin/signal"),
			zap.String("auth", "bearer token"),
			zap.String("rate_limit", "10/min, burst 5"))
		logger.Warn("Admin endpoint enabled - ensure this server is not exposed to public internet")
	}
}
