package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// newLogger returns a stderr logger when verbose output is requested.
// Otherwise records are dropped so stderr only carries the outcome line.
func newLogger(w io.Writer, verbose bool, format string) (*slog.Logger, error) {
	if !verbose {
		return slog.New(slog.DiscardHandler), nil
	}

	opts := &slog.HandlerOptions{Level: slog.LevelDebug}
	switch strings.ToLower(format) {
	case "", "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("unsupported log format %q", format)
	}
}
