package main

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// setupLogger writes to w, which is stderr in practice: stdout carries
// released batches when no bridge is configured. level stays adjustable
// so a config reload can change it.
func setupLogger(w io.Writer, level *slog.LevelVar, format string) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level.Level() == slog.LevelDebug,
	}

	var handler slog.Handler
	switch strings.ToLower(format) {
	case "text":
		handler = slog.NewTextHandler(w, opts)
	default:
		handler = slog.NewJSONHandler(w, opts)
	}

	return slog.New(handler).With(
		"service", appName,
		"version", Version,
		"pid", os.Getpid(),
	)
}
