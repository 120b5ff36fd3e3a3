package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/banzuke/banzuke/internal/core/basho"
	"github.com/banzuke/banzuke/internal/observability"
)

var (
	rankingsBasho    string
	rankingsDivision string
)

var rankingsCmd = &cobra.Command{
	Use:   "rankings",
	Short: "Show the banzuke of one division",
	Long: `Show the banzuke (ranking sheet) of one division for one basho, with each
rikishi's win-loss record.

Examples:
  banzuke rankings
  banzuke rankings --basho 202601 --division juryo
  banzuke rankings --output-format markdown --out-dir ./reports`,
	Args: cobra.NoArgs,
	RunE: runRankings,
}

func init() {
	rootCmd.AddCommand(rankingsCmd)

	rankingsCmd.Flags().StringVar(&rankingsBasho, "basho", "", "Basho id YYYYMM (default: current basho)")
	rankingsCmd.Flags().StringVar(&rankingsDivision, "division", basho.Divisions[0], "Division: "+strings.Join(basho.Divisions, ", "))
}

func runRankings(cmd *cobra.Command, args []string) error {
	bashoID, err := basho.Normalize(rankingsBasho, time.Now())
	if err != nil {
		return err
	}
	division, ok := basho.ValidDivision(rankingsDivision)
	if !ok {
		return fmt.Errorf("unknown division %q: want one of %s", rankingsDivision, strings.Join(basho.Divisions, ", "))
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

	if logger := observability.CLILogger; logger != nil {
		logger.Debug("Fetching banzuke",
			zap.String("basho", bashoID),
			zap.String("division", division))
	}

	banzuke, err := session.client.GetBanzuke(cmd.Context(), bashoID, division)
	if err != nil {
		return fmt.Errorf("fetch %s banzuke for %s: %w", division, bashoID, err)
	}

	return writeOutput(cmd, fmt.Sprintf("banzuke-%s-%s", bashoID, division), banzuke)
}
