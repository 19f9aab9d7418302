// Package logging provides the single process-wide zerolog logger used by
// the CLI and build pipeline.
package logging

import (
	"os"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

const envLevel = "SOREX_LOG_LEVEL"

var (
	defaultLogger zerolog.Logger
	once          sync.Once
)

// Init configures the default logger from the single recognized
// environment variable (debug, info, warn, error). Unset or unrecognized
// values fall back to info.
func Init() {
	once.Do(func() {
		level := parseLevel(os.Getenv(envLevel))
		zerolog.SetGlobalLevel(level)
		defaultLogger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}).
			With().Timestamp().Logger()
	})
}

// Get returns the initialized default logger, initializing it if needed.
func Get() *zerolog.Logger {
	Init()
	return &defaultLogger
}

func parseLevel(s string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "":
		return zerolog.InfoLevel
	default:
		return zerolog.InfoLevel
	}
}
