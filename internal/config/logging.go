package config

import (
	"os"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"
)

// NewLogger builds the invocation logger: human-readable console output
// on stderr, tagged with a fresh ULID so concurrent fan-out lines can
// be correlated back to one run. Verbose enables debug-level cache and
// pacing diagnostics.
func NewLogger(verbose bool) zerolog.Logger {
	level := zerolog.WarnLevel
	if verbose {
		level = zerolog.DebugLevel
	}

	writer := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
	}

	return zerolog.New(writer).
		Level(level).
		With().
		Timestamp().
		Str("run_id", ulid.Make().String()).
		Logger()
}
