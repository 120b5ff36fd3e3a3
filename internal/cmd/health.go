package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/banzuke/banzuke/internal/core/ratelimit"
	errwrap "github.com/banzuke/banzuke/internal/errors"
	"github.com/banzuke/banzuke/internal/observability"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Run self-health check",
	Long: `Run a self-health check to verify the application can start successfully.

Checks that version information is present, the configuration loads and
describes a usable rate limit, and the response cache store opens when
caching is enabled. No upstream calls are made.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := observability.CLILogger
		if logger == nil {
			return errwrap.NewConfigInvalidError("logger not initialized")
		}
		logger.Info("Running health check...")

		if versionInfo.Version == "" {
			logger.Error("FAIL: Version information missing")
			return errwrap.NewConfigInvalidError("version information missing")
		}
		logger.Debug("Version check passed", zap.String("version", versionInfo.Version))
		logger.Info("OK: Version information available")

		cfg, err := loadConfig(cmd)
		if err != nil {
			logger.Error("FAIL: Configuration did not load", zap.Error(err))
			return errwrap.WrapConfigInvalid(cmd.Context(), err, "configuration did not load")
		}
		logger.Info("OK: Configuration loaded")

		limiter, err := ratelimit.New(cfg.RateLimit.Limiter())
		if err != nil {
			logger.Error("FAIL: Rate limit invalid", zap.Error(err))
			return errwrap.WrapConfigInvalid(cmd.Context(), err, "rate limit invalid")
		}
		logger.Info(fmt.Sprintf("OK: Rate limit %d calls per %s", limiter.Config().MaxCalls, limiter.Config().Window))

		if cfg.Cache.Enabled {
			db, err := openStore(cmd.Context(), cfg)
			if err != nil {
				logger.Error("FAIL: Response cache store unavailable", zap.Error(err))
				return err
			}
			_ = db.Close()
			logger.Info("OK: Response cache store ready", zap.String("driver", db.Driver()))
		}

		logger.Info("All health checks passed")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(healthCmd)
}
