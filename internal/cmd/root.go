package cmd

import (
	"context"
	"fmt"

	"github.com/fulmenhq/gofulmen/telemetry"
	"github.com/spf13/cobra"

	"github.com/banzuke/banzuke/internal/config"
	"github.com/banzuke/banzuke/internal/observability"
	"github.com/banzuke/banzuke/internal/output"
)

var (
	cfgFile string
	verbose bool

	// Version info set by main package
	versionInfo struct {
		Version   string
		Commit    string
		BuildDate string
	}
)

// SetVersionInfo is called by main package to set version information
func SetVersionInfo(version, commit, buildDate string) {
	versionInfo.Version = version
	versionInfo.Commit = commit
	versionInfo.BuildDate = buildDate
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   config.AppName,
	Short: "Sumo rankings, results and rikishi from the Sumo API",
	Long: `banzuke reads rankings, tournament results and wrestler profiles from the
Sumo API. Every outbound call shares one sliding-window budget
(rate_limit.max_calls per rate_limit.window); callers wait for a free slot
instead of overrunning it.

Use the subcommands to perform specific operations.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

// ExecuteContext is Execute with a caller-supplied context.
func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	// Disable global telemetry early so CLI runs never emit metrics to
	// stdout. Server mode initializes the Prometheus exporter later.
	disabledConfig := &telemetry.Config{Enabled: false}
	if sys, err := telemetry.NewSystem(disabledConfig); err == nil {
		telemetry.SetGlobalSystem(sys)
	}

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", fmt.Sprintf("config file (default is $XDG_CONFIG_HOME/%s/config.yaml)", config.AppName))
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output (sets log level to debug)")
	rootCmd.PersistentFlags().String("output-format", string(output.FormatTable), "Output format: table|json|yaml|markdown")
	rootCmd.PersistentFlags().String("out", "", "Write output to a file (default stdout)")
	rootCmd.PersistentFlags().String("out-dir", "", "Write output to a directory")
}

// initConfig sets up the CLI logger and pins the config file. Commands load
// the layered configuration themselves through loadConfig.
func initConfig() {
	observability.InitCLILogger(config.AppName, verbose)
	config.SetConfigFile(cfgFile)
}

// loadConfig resolves defaults, config file, BANZUKE_* env and overrides.
func loadConfig(cmd *cobra.Command, overrides ...map[string]any) (*config.Config, error) {
	cfg, err := config.Load(cmd.Context(), overrides...)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if verbose && observability.CLILogger != nil {
		observability.CLILogger.Debug("Configuration loaded")
	}
	return cfg, nil
}
