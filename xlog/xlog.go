// Package xlog provides the single zerolog.Logger instance used
// throughout the engine, mirroring activecm/rita's logger package
// convention of a process-wide GetLogger() accessor rather than
// threading a *zerolog.Logger through every call.
package xlog

import (
	"os"
	"sync"

	"github.com/rs/zerolog"
)

var (
	once   sync.Once
	logger zerolog.Logger
)

// Get returns the process-wide logger, initializing it on first use
// with a console-pretty writer. Call Configure before the first Get if
// a different writer or level is required.
func Get() *zerolog.Logger {
	once.Do(func() {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	})
	return &logger
}

// Configure replaces the process-wide logger. Intended for tests and
// for callers that want JSON-structured output in production.
func Configure(l zerolog.Logger) {
	once.Do(func() {})
	logger = l
}
