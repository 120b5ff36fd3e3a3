package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/spf13/cobra"

	"github.com/banzuke/banzuke/internal/output"
)

var (
	errExclusiveTargets = errors.New("--out and --out-dir are mutually exclusive")
	nonFilename         = regexp.MustCompile(`[^a-z0-9._-]+`)
)

// destination is where a command's rendered output goes: stdout when path
// is empty, otherwise a file.
type destination struct {
	format output.Format
	path   string
}

// resolveDestination reads --output-format, --out and --out-dir. With
// --out-dir the file is named after name and the format's extension.
func resolveDestination(cmd *cobra.Command, name string) (destination, error) {
	flags := cmd.Flags()
	rawFormat, err := flags.GetString("output-format")
	if err != nil {
		return destination{}, err
	}
	format, err := output.ParseFormat(rawFormat)
	if err != nil {
		return destination{}, err
	}
	return destinationFor(cmd, name, format)
}

// destinationFor resolves --out and --out-dir for output that is always
// written in format.
func destinationFor(cmd *cobra.Command, name string, format output.Format) (destination, error) {
	flags := cmd.Flags()
	out, err := flags.GetString("out")
	if err != nil {
		return destination{}, err
	}
	dir, err := flags.GetString("out-dir")
	if err != nil {
		return destination{}, err
	}
	out, dir = strings.TrimSpace(out), strings.TrimSpace(dir)

	switch {
	case out != "" && dir != "":
		return destination{}, errExclusiveTargets
	case dir != "":
		if abs, err := filepath.Abs(dir); err == nil {
			dir = abs
		}
		return destination{format: format, path: filepath.Join(dir, sanitizeFilename(name)+"."+format.Extension())}, nil
	case out == "-":
		return destination{format: format}, nil
	default:
		return destination{format: format, path: out}, nil
	}
}

func (d destination) open(stdout io.Writer) (io.Writer, func() error, error) {
	if d.path == "" {
		return stdout, func() error { return nil }, nil
	}
	// #nosec G301 -- output directories are user-chosen
	if err := os.MkdirAll(filepath.Dir(d.path), 0755); err != nil {
		return nil, nil, fmt.Errorf("create output directory: %w", err)
	}
	file, err := os.Create(d.path)
	if err != nil {
		return nil, nil, err
	}
	return file, file.Close, nil
}

// sanitizeFilename lowercases value and collapses anything outside
// [a-z0-9._-] into dashes.
func sanitizeFilename(value string) string {
	clean := nonFilename.ReplaceAllString(strings.ToLower(strings.TrimSpace(value)), "-")
	clean = strings.Trim(clean, "-.")
	if clean == "" {
		return "output"
	}
	return clean
}

// writeOutput renders value in the requested format and writes it to the
// resolved destination.
func writeOutput(cmd *cobra.Command, name string, value any) error {
	dest, err := resolveDestination(cmd, name)
	if err != nil {
		return err
	}
	rendered, err := output.Render(dest.format, value)
	if err != nil {
		return err
	}
	return dest.write(cmd.OutOrStdout(), rendered)
}

// write sends text with a single trailing newline. Empty text still
// creates the file but writes nothing.
func (d destination) write(stdout io.Writer, text string) error {
	w, closeFn, err := d.open(stdout)
	if err != nil {
		return err
	}
	if text = strings.TrimRight(text, "\n"); strings.TrimSpace(text) != "" {
		if _, err := fmt.Fprintln(w, text); err != nil {
			_ = closeFn()
			return err
		}
	}
	return closeFn()
}
