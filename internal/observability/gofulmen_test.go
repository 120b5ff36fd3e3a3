package observability_test

import (
	"testing"

	"github.com/fulmenhq/gofulmen/crucible"
	"github.com/fulmenhq/gofulmen/logging"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/banzuke/banzuke/internal/observability"
)

func TestLoggers(t *testing.T) {
	originalCLI := observability.CLILogger
	originalServer := observability.ServerLogger
	t.Cleanup(func() {
		observability.CLILogger = originalCLI
		observability.ServerLogger = originalServer
	})

	t.Run("CLI logger creation", func(t *testing.T) {
		observability.ServerLogger = nil
		observability.InitCLILogger("banzuke-test", true)

		require.NotNil(t, observability.CLILogger)
		require.Same(t, observability.CLILogger, observability.Current())

		observability.CLILogger.Debug("Rate limit reached, waiting",
			zap.Duration("wait", 0))
	})

	t.Run("Structured logger creation", func(t *testing.T) {
		observability.InitServerLogger("banzuke-test", "WARN", "banzuke")

		require.NotNil(t, observability.ServerLogger)
		require.Same(t, observability.ServerLogger, observability.Current())

		observability.ServerLogger.Info("Upstream call completed",
			zap.String("path", "/rikishis"),
			zap.Int("status", 200))
	})

	t.Run("Logger satisfies client logging surface", func(t *testing.T) {
		logger, err := logging.NewCLI("surface-test")
		require.NoError(t, err)

		var surface interface {
			Debug(msg string, fields ...zap.Field)
			Warn(msg string, fields ...zap.Field)
			Error(msg string, fields ...zap.Field)
		} = logger
		surface.Warn("API error", zap.String("kind", "not_found"))
	})
}

func TestEmbeddedCrucible(t *testing.T) {
	version := crucible.GetVersion()
	require.NotEmpty(t, version.Gofulmen)
	require.NotEmpty(t, version.Crucible)
}
