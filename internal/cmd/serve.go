package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/fulmenhq/gofulmen/signals"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/banzuke/banzuke/internal/config"
	"github.com/banzuke/banzuke/internal/core/ratelimit"
	"github.com/banzuke/banzuke/internal/core/store"
	errwrap "github.com/banzuke/banzuke/internal/errors"
	"github.com/banzuke/banzuke/internal/metrics"
	"github.com/banzuke/banzuke/internal/observability"
	"github.com/banzuke/banzuke/internal/server"
	"github.com/banzuke/banzuke/internal/server/handlers"
)

var (
	serverPort int
	serverHost string
)

// telemetryHealthChecker ensures telemetry system and exporter are available
type telemetryHealthChecker struct{}

func (telemetryHealthChecker) CheckHealth(ctx context.Context) error {
	if observability.TelemetrySystem == nil || observability.PrometheusExporter == nil {
		return errwrap.NewInternalError("telemetry system not initialized")
	}
	return nil
}

// budgetHealthChecker reports degraded while the upstream budget is spent.
type budgetHealthChecker struct {
	limiter *ratelimit.Limiter
}

func (b budgetHealthChecker) CheckHealth(ctx context.Context) error {
	if b.limiter == nil {
		return errwrap.NewInternalError("upstream limiter not initialized")
	}
	if !b.limiter.CanCall() {
		return fmt.Errorf("%w: upstream budget exhausted for %s", handlers.ErrDegraded, b.limiter.UntilNextSlot())
	}
	return nil
}

// storeHealthChecker pings the response cache database.
type storeHealthChecker struct {
	store *store.Store
}

func (s storeHealthChecker) CheckHealth(ctx context.Context) error {
	if s.store == nil || s.store.DB == nil {
		return errwrap.NewInternalError("store not initialized")
	}
	return s.store.DB.PingContext(ctx)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Start the HTTP server with graceful shutdown support.

Every /api request shares one upstream budget with every other request the
process serves. Inbound /api traffic is additionally throttled per
server.requests_per_second and server.burst.

Signal Handling:
  • Ctrl+C (SIGINT) or SIGTERM: Graceful shutdown
  • Ctrl+C twice within 2s: Force quit
  • SIGHUP: Config reload (limiter and server settings need a restart)`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	overrides := map[string]any{}
	serverOverrides := map[string]any{}
	if cmd.Flags().Changed("host") {
		serverOverrides["host"] = serverHost
	}
	if cmd.Flags().Changed("port") {
		serverOverrides["port"] = serverPort
	}
	if len(serverOverrides) > 0 {
		overrides["server"] = serverOverrides
	}

	cfg, err := loadConfig(cmd, overrides)
	if err != nil {
		return err
	}

	observability.InitServerLogger(config.AppName, cfg.Logging.Level, config.AppName)
	logger := observability.ServerLogger

	handlers.InitHealthManager(versionInfo.Version)
	hm := handlers.GetHealthManager()
	if cfg.Metrics.Enabled {
		if err := observability.InitMetrics(config.AppName, cfg.Metrics.Port, config.AppName); err != nil {
			logger.Error("Failed to initialize metrics", zap.Error(err))
			return errwrap.WrapInternal(cmd.Context(), err, "metrics initialization failed")
		}
		hm.RegisterChecker("telemetry", telemetryHealthChecker{})
	}
	metrics.SetServerStartTime(time.Now().Unix())

	session, err := newAPISession(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	if cfg.Health.Enabled {
		hm.RegisterChecker("upstream_budget", budgetHealthChecker{limiter: session.client.Limiter()})
		if session.store != nil {
			hm.RegisterChecker("store", storeHealthChecker{store: session.store})
		}
	}

	logger.Info("Initializing server",
		zap.String("service", config.AppName),
		zap.String("version", versionInfo.Version),
		zap.String("host", cfg.Server.Host),
		zap.Int("port", cfg.Server.Port),
		zap.String("upstream", cfg.API.BaseURL),
		zap.Int("max_calls", cfg.RateLimit.MaxCalls),
		zap.Duration("window", cfg.RateLimit.Window),
		zap.Bool("cache", cfg.Cache.Enabled))

	srv := server.New(cfg.Server, server.Deps{
		API:        session.client,
		AdminToken: os.Getenv(config.EnvPrefix + "_ADMIN_TOKEN"),
	})

	shutdownTimeout := config.DurationOrDefault(cfg.Server.ShutdownTimeout, 10*time.Second)

	// Shutdown handlers run LIFO: HTTP server, then store and metrics, then logger.
	signals.OnShutdown(func(ctx context.Context) error {
		logger.Info("Flushing logger...")
		if err := logger.Sync(); err != nil {
			logger.Warn("Logger sync returned error (may be benign)", zap.Error(err))
		}
		return nil
	})

	signals.OnShutdown(func(ctx context.Context) error {
		session.Close()
		if err := observability.StopMetrics(); err != nil {
			logger.Warn("Metrics exporter did not stop cleanly", zap.Error(err))
		}
		return nil
	})

	signals.OnShutdown(func(ctx context.Context) error {
		logger.Info("Shutting down HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return errwrap.WrapInternal(ctx, err, "server shutdown failed")
		}

		logger.Info("HTTP server stopped gracefully")
		return nil
	})

	signals.OnReload(func(ctx context.Context) error {
		logger.Info("Received SIGHUP: attempting config reload")

		reloaded, err := config.Load(ctx, overrides)
		if err != nil {
			logger.Error("Failed to reload config", zap.Error(err))
			return errwrap.WrapConfigInvalid(ctx, err, "config reload failed")
		}

		if reloaded.RateLimit != cfg.RateLimit || reloaded.Server != cfg.Server {
			logger.Warn("Rate limit or server settings changed; restart to apply",
				zap.Int("max_calls", reloaded.RateLimit.MaxCalls),
				zap.Duration("window", reloaded.RateLimit.Window))
		}
		logger.Info("Configuration reloaded successfully")
		return nil
	})

	if err := signals.EnableDoubleTap(signals.DoubleTapConfig{
		Window:  2 * time.Second,
		Message: "Press Ctrl+C again within 2 seconds to force quit",
	}); err != nil {
		logger.Warn("Failed to enable double-tap force quit", zap.Error(err))
	}

	errChan := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	go func() {
		if err := signals.Listen(cmd.Context()); err != nil {
			logger.Error("Signal handler error", zap.Error(err))
			errChan <- err
		}
	}()

	if err := <-errChan; err != nil {
		return errwrap.WrapInternal(cmd.Context(), err, "server error")
	}

	return nil
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serverHost, "host", "localhost", "server host (overrides server.host)")
	serveCmd.Flags().IntVarP(&serverPort, "port", "p", 8080, "server port (overrides server.port)")
}
