package cmd

import (
	"fmt"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/banzuke/banzuke/internal/config"
	"github.com/banzuke/banzuke/internal/output"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration as YAML",
	Long: `Print the configuration after defaults, the config file and BANZUKE_*
environment overrides are applied. Secrets are redacted.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		settings, err := configSettings(cfg)
		if err != nil {
			return err
		}
		data, err := yaml.Marshal(settings)
		if err != nil {
			return err
		}
		dest, err := destinationFor(cmd, "config", output.FormatYAML)
		if err != nil {
			return err
		}
		return dest.write(cmd.OutOrStdout(), string(data))
	},
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the default config and data locations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := fmt.Fprintf(cmd.OutOrStdout(), "config: %s\ndata:   %s\nstore:  %s\n",
			config.DefaultConfigPath(), config.DefaultDataDir(), config.DefaultStorePath())
		return err
	},
}

// configSettings flattens cfg into the nested map its config file would
// hold, using the mapstructure keys and human durations.
func configSettings(cfg *config.Config) (map[string]any, error) {
	redacted := *cfg
	if redacted.Store.AuthToken != "" {
		redacted.Store.AuthToken = "REDACTED"
	}

	settings := map[string]any{}
	if err := mapstructure.Decode(redacted, &settings); err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	humanizeDurations(settings)
	return settings, nil
}

func humanizeDurations(m map[string]any) {
	for key, value := range m {
		switch v := value.(type) {
		case time.Duration:
			m[key] = v.String()
		case map[string]any:
			humanizeDurations(v)
		}
	}
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configPathCmd)
	rootCmd.AddCommand(configCmd)
}
