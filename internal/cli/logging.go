package cli

import (
	"io"
	"time"

	"github.com/rs/zerolog"
)

// newLogger writes human-readable log lines to w. Debug output is only
// emitted when verbose is set.
func newLogger(w io.Writer, verbose bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}

	return zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339Nano, NoColor: true}).
		Level(level).
		With().
		Timestamp().
		Logger()
}
