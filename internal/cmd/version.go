package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/banzuke/banzuke/internal/config"
	"github.com/banzuke/banzuke/internal/server/handlers"
)

var extended bool

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  "Print version information. Use --extended for full details including Crucible and Go versions.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s %s\n", config.AppName, versionInfo.Version)
		if !extended {
			return nil
		}

		report := handlers.CurrentVersion()
		fmt.Fprintf(out, "Commit: %s\n", versionInfo.Commit)
		fmt.Fprintf(out, "Built: %s\n", versionInfo.BuildDate)
		fmt.Fprintf(out, "Go: %s\n", report.App.GoVersion)
		fmt.Fprintln(out)
		fmt.Fprintf(out, "Gofulmen: %s\n", report.Dependencies.Gofulmen)
		fmt.Fprintf(out, "Crucible: %s\n", report.Dependencies.Crucible)
		if report.Upstream != nil {
			fmt.Fprintf(out, "Upstream: %s (%d calls per %s)\n",
				report.Upstream.BaseURL, report.Upstream.MaxCalls, report.Upstream.Window)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
	versionCmd.Flags().BoolVarP(&extended, "extended", "e", false, "show extended version information")
}
