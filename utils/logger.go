package utils

import (
	"log/slog"
	"os"
	"strings"
)

// NewLogger writes JSON records to stdout at the named level ("debug",
// "info", "warn", "error"); unknown levels fall back to info.
func NewLogger(level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(level))); err != nil {
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}
