package mux

import (
	"io"
	"os"

	"github.com/rs/zerolog"
)

// newDefaultLogger returns the logger a Core uses when the caller does
// not supply one via WithLogger: human-readable console output at info
// level, in the same chained-field style other_examples' streaming
// protocol uses for its own lifecycle events.
func newDefaultLogger() zerolog.Logger {
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(zerolog.InfoLevel).
		With().Timestamp().Str("component", "mux").Logger()
}

// discardLogger silences logging entirely; used by tests that don't
// want console noise.
func discardLogger() zerolog.Logger {
	return zerolog.New(io.Discard)
}
