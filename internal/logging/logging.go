// Package logging builds the process-wide structured logger, following
// agent-service/cmd/agent-service/main.go's setupLogger.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// New builds a JSON slog.Logger writing to stdout at the given level
// ("debug", "info", "warn", "error"; unrecognized values default to info).
func New(level string) *slog.Logger {
	var logLevel slog.Level
	switch strings.ToLower(level) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: logLevel}
	var writer io.Writer = os.Stdout

	return slog.New(slog.NewJSONHandler(writer, opts))
}
