// Copyright 2026 The EDSST Authors
// SPDX-License-Identifier: Apache-2.0

package console

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// NewLogger creates the process logger writing to w. Interactive
// sessions get slog.TextHandler for human-readable output; piped or
// redirected output gets slog.JSONHandler so service managers and log
// collectors can parse it.
func NewLogger(w io.Writer, interactive bool, level slog.Level) *slog.Logger {
	var handler slog.Handler
	options := &slog.HandlerOptions{Level: level}
	if interactive {
		handler = slog.NewTextHandler(w, options)
	} else {
		handler = slog.NewJSONHandler(w, options)
	}
	return slog.New(handler)
}

// ParseLevel parses a level name ("debug", "info", "warn", "error").
func ParseLevel(name string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(name))); err != nil {
		return 0, fmt.Errorf("invalid log level %q: %w", name, err)
	}
	return level, nil
}
