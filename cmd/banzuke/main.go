package main

import (
	"github.com/banzuke/banzuke/internal/cmd"
	"github.com/banzuke/banzuke/internal/server/handlers"
)

// Version information set via ldflags during build
// Example: go build -ldflags="-X main.version=1.0.0 -X main.commit=abc123 -X main.buildDate=2026-01-11"
var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func main() {
	cmd.SetVersionInfo(version, commit, buildDate)
	handlers.SetVersionInfo(version, commit, buildDate)

	if err := cmd.Execute(); err != nil {
		// Maps upstream failure kinds and error envelopes to foundry exit codes
		cmd.ExitForError(err)
	}
}
