// Package monitoring provides the bridge's structured logger and Prometheus
// metrics.
package monitoring

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// LoggerConfig holds logger configuration.
type LoggerConfig struct {
	Level  string // debug, info, warn, error
	Format string // json or pretty
}

// NewLogger creates a structured JSON logger; the pretty format is for local
// development.
func NewLogger(config LoggerConfig) zerolog.Logger {
	var output io.Writer = os.Stdout

	level, err := zerolog.ParseLevel(config.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}

	if config.Format == "pretty" {
		output = zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		}
	}

	return zerolog.New(output).
		Level(level).
		With().
		Timestamp().
		Str("service", "cotbridge").
		Logger()
}
