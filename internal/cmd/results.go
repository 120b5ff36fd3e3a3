package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/banzuke/banzuke/internal/core/basho"
)

var resultsBasho string

var resultsCmd = &cobra.Command{
	Use:   "results",
	Short: "Show yusho winners and special prizes of a basho",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		bashoID, err := basho.Normalize(resultsBasho, time.Now())
		if err != nil {
			return err
		}

		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		session, err := newAPISession(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer session.Close()

		results, err := session.client.GetBashoResults(cmd.Context(), bashoID)
		if err != nil {
			return fmt.Errorf("fetch results for %s: %w", bashoID, err)
		}
		return writeOutput(cmd, "results-"+bashoID, results)
	},
}

func init() {
	rootCmd.AddCommand(resultsCmd)
	resultsCmd.Flags().StringVar(&resultsBasho, "basho", "", "Basho id YYYYMM (default: current basho)")
}
