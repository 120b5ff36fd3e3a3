package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/banzuke/banzuke/internal/config"
	"github.com/banzuke/banzuke/internal/core/ratelimit"
	"github.com/banzuke/banzuke/internal/server/handlers"
)

var (
	rateLimitServer string
	rateLimitToken  string
)

var rateLimitCmd = &cobra.Command{
	Use:   "rate-limit",
	Short: "Inspect the upstream rate limit",
	Long: `Inspect the upstream call budget.

Each process owns its own call log. Without --server these commands show the
configured budget of a fresh process; with --server they talk to a running
"banzuke serve" instance.`,
}

var rateLimitStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the budget, calls in window and remaining calls",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if strings.TrimSpace(rateLimitServer) != "" {
			status, err := remoteRateLimit(cmd.Context(), http.MethodGet, "/ratelimit")
			if err != nil {
				return err
			}
			return writeOutput(cmd, "rate-limit", status)
		}

		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		limiter, err := ratelimit.New(cfg.RateLimit.Limiter())
		if err != nil {
			return err
		}
		return writeOutput(cmd, "rate-limit", limiter.Snapshot())
	},
}

var rateLimitResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Empty the call log of a running server",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if strings.TrimSpace(rateLimitServer) == "" {
			return fmt.Errorf("--server is required: a CLI process starts with an empty call log")
		}
		status, err := remoteRateLimit(cmd.Context(), http.MethodPost, "/ratelimit/reset")
		if err != nil {
			return err
		}
		return writeOutput(cmd, "rate-limit", status)
	},
}

var rateLimitHTTPClient = &http.Client{Timeout: 10 * time.Second}

func remoteRateLimit(ctx context.Context, method string, path string) (ratelimit.Status, error) {
	url := strings.TrimRight(strings.TrimSpace(rateLimitServer), "/") + path
	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return ratelimit.Status{}, err
	}
	req.Header.Set("Accept", "application/json")
	if token := strings.TrimSpace(rateLimitToken); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := rateLimitHTTPClient.Do(req)
	if err != nil {
		return ratelimit.Status{}, fmt.Errorf("contact %s: %w", url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return ratelimit.Status{}, fmt.Errorf("%s %s: %s", method, url, resp.Status)
	}

	var body handlers.RateLimitResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return ratelimit.Status{}, fmt.Errorf("decode %s: %w", url, err)
	}
	return ratelimit.Status{
		MaxCalls:  body.MaxCalls,
		Window:    time.Duration(body.WindowSeconds * float64(time.Second)),
		InWindow:  body.InWindow,
		Remaining: body.Remaining,
		RetryIn:   time.Duration(body.RetryInMillis) * time.Millisecond,
	}, nil
}

func init() {
	rateLimitCmd.PersistentFlags().StringVar(&rateLimitServer, "server", "", "Base URL of a running server, e.g. http://localhost:8080")
	rateLimitCmd.PersistentFlags().StringVar(&rateLimitToken, "token", os.Getenv(config.EnvPrefix+"_ADMIN_TOKEN"), "Admin bearer token for --server")

	rateLimitCmd.AddCommand(rateLimitStatusCmd)
	rateLimitCmd.AddCommand(rateLimitResetCmd)
	rootCmd.AddCommand(rateLimitCmd)
}
