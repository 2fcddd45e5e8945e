// Package logging configures structured logging for the ledger.
//
// Usage:
//
//	logging.Setup()                          // colored tint output, level from LOG_LEVEL
//	logging.SetupWithLevel(slog.LevelDebug)  // explicit level override
//	logging.SetupJSON(slog.LevelInfo)        // JSON output for server mode
//
// Environment variables:
//
//	LOG_LEVEL: debug, info, warn, error (default: info)
package logging

import (
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lmittmann/tint"
)

// Setup configures colored logging at the level specified by LOG_LEVEL
// (default: INFO).
func Setup() {
	SetupWithLevel(LevelFromEnv())
}

// SetupWithLevel configures colored logging at the given level.
func SetupWithLevel(level slog.Level) {
	slog.SetDefault(slog.New(
		tint.NewHandler(os.Stderr, &tint.Options{
			Level:      level,
			TimeFormat: time.Kitchen,
		}),
	))
}

// SetupJSON configures JSON logging at the given level, for server mode
// where logs get scraped rather than read.
func SetupJSON(level slog.Level) {
	slog.SetDefault(slog.New(
		slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}),
	))
}

// LevelFromEnv reads LOG_LEVEL.
func LevelFromEnv() slog.Level {
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
