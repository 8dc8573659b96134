package app

import (
	"io"
	"log/slog"
	"strings"
)

// logLevels maps the accepted -log-level values to slog levels.
var logLevels = map[string]slog.Level{
	"debug": slog.LevelDebug,
	"info":  slog.LevelInfo,
	"warn":  slog.LevelWarn,
	"error": slog.LevelError,
}

// ValidLogLevel reports whether the CLI may accept the given level name.
func ValidLogLevel(name string) bool {
	_, ok := logLevels[strings.ToLower(name)]
	return ok
}

// newLogger builds the app's isolated slog.Logger; it never touches the
// global logger. An unrecognized level falls back to info, an
// unrecognized format to text.
func newLogger(levelStr, formatStr string, outW io.Writer) *slog.Logger {
	level, ok := logLevels[strings.ToLower(levelStr)]
	if !ok {
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if strings.ToLower(formatStr) == "json" {
		return slog.New(slog.NewJSONHandler(outW, opts))
	}
	return slog.New(slog.NewTextHandler(outW, opts))
}
