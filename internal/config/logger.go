package config

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Logger builds a zerolog logger from the logging settings, writing to out
// (stderr when nil).
func (l LoggingConfig) Logger(out io.Writer) zerolog.Logger {
	if out == nil {
		out = os.Stderr
	}
	level, err := zerolog.ParseLevel(l.Level)
	if err != nil || l.Level == "" {
		level = zerolog.InfoLevel
	}

	if l.Format == "console" {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}
	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}
