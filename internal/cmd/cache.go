package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/fulmenhq/gofulmen/ascii"
	"github.com/spf13/cobra"

	"github.com/banzuke/banzuke/internal/core/store"
	"github.com/banzuke/banzuke/internal/output"
)

var (
	cacheAll     bool
	cacheKey     string
	cachePrefix  string
	cacheExpired bool
	cacheYes     bool
	cacheDryRun  bool
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the response cache",
	Long: `Manage cached upstream responses.

Keys have the form "GET <path>", e.g. "GET /rikishi/19". Only successful
responses are cached, and only when cache.enabled is true.`,
}

var cacheListCmd = &cobra.Command{
	Use:   "list",
	Short: "List cached responses",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		query := cacheQuery()
		if !query.All && query.Key == "" && query.Prefix == "" {
			query.All = true
		}

		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		db, err := openStore(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer db.Close() // nolint:errcheck // best-effort cleanup

		entries, err := db.ListResponses(cmd.Context(), query)
		if err != nil {
			return err
		}
		if entries == nil {
			entries = []store.CacheEntry{}
		}
		return writeOutput(cmd, "cache", entries)
	},
}

var cachePurgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Delete cached responses",
	Long: `Delete cached responses selected by --all, --key or --prefix. --expired
narrows any selector to entries past their expiry; on its own it implies --all.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		query := cacheQuery()
		if query.ExpiredOnly && !query.All && query.Key == "" && query.Prefix == "" {
			query.All = true
		}
		if err := query.Validate(); err != nil {
			return err
		}
		if query.All && !query.ExpiredOnly && !cacheYes && !cacheDryRun {
			return errors.New("--all requires --yes (or use --dry-run)")
		}

		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		db, err := openStore(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer db.Close() // nolint:errcheck // best-effort cleanup

		matched, err := db.CountResponses(cmd.Context(), query)
		if err != nil {
			return err
		}

		result := purgeResult{Matched: matched, DryRun: cacheDryRun}
		if !cacheDryRun {
			result.Deleted, err = db.PurgeResponses(cmd.Context(), query)
			if err != nil {
				return err
			}
		}
		return writePurgeResult(cmd, result)
	},
}

type purgeResult struct {
	Matched int   `json:"matched" yaml:"matched"`
	Deleted int64 `json:"deleted" yaml:"deleted"`
	DryRun  bool  `json:"dry_run" yaml:"dry_run"`
}

func writePurgeResult(cmd *cobra.Command, result purgeResult) error {
	dest, err := resolveDestination(cmd, "cache-purge")
	if err != nil {
		return err
	}
	if dest.format != output.FormatTable {
		return writeOutput(cmd, "cache-purge", result)
	}

	line := fmt.Sprintf("Deleted %d/%d cached response(s)", result.Deleted, result.Matched)
	if result.DryRun {
		line = fmt.Sprintf("Would delete %d cached response(s)", result.Matched)
	}
	return dest.write(cmd.OutOrStdout(), ascii.DrawBox(strings.Join([]string{"Response cache", "", line}, "\n"), 0))
}

func cacheQuery() store.CacheQuery {
	return store.CacheQuery{
		All:         cacheAll,
		Key:         strings.TrimSpace(cacheKey),
		Prefix:      strings.TrimSpace(cachePrefix),
		ExpiredOnly: cacheExpired,
	}
}

func init() {
	for _, c := range []*cobra.Command{cacheListCmd, cachePurgeCmd} {
		c.Flags().BoolVar(&cacheAll, "all", false, "Select every cached response")
		c.Flags().StringVar(&cacheKey, "key", "", "Select one cache key (exact match)")
		c.Flags().StringVar(&cachePrefix, "prefix", "", "Select cache keys with this prefix")
		c.Flags().BoolVar(&cacheExpired, "expired", false, "Only entries past their expiry")
	}
	cachePurgeCmd.Flags().BoolVar(&cacheYes, "yes", false, "Confirm deleting live entries with --all")
	cachePurgeCmd.Flags().BoolVar(&cacheDryRun, "dry-run", false, "Show what would be deleted")

	cacheCmd.AddCommand(cacheListCmd)
	cacheCmd.AddCommand(cachePurgeCmd)
	rootCmd.AddCommand(cacheCmd)
}
