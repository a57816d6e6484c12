// Package logging builds the zerolog loggers used by the command line tools.
package logging

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Config selects level, format and destination of a logger.
type Config struct {
	Level      string `yaml:"level" default:"info" validate:"oneof=trace debug info warn error disabled"`
	Format     string `yaml:"format" default:"console" validate:"oneof=console json"`
	Output     string `yaml:"output" default:"stderr" validate:"required"`
	TimeFormat string `yaml:"time_format"`
}

// New returns a logger for cfg. The returned closer releases a log file
// and is a no-op for stdout and stderr.
func New(cfg Config) (zerolog.Logger, io.Closer, error) {
	level := zerolog.InfoLevel
	if cfg.Level != "" {
		var err error
		if level, err = zerolog.ParseLevel(cfg.Level); err != nil {
			return zerolog.Nop(), nil, fmt.Errorf("invalid log level: %w", err)
		}
	}

	var (
		output io.Writer
		closer io.Closer = nopCloser{}
	)
	switch cfg.Output {
	case "", "stderr":
		output = os.Stderr
	case "stdout":
		output = os.Stdout
	default:
		file, err := os.OpenFile(cfg.Output, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return zerolog.Nop(), nil, fmt.Errorf("could not open log file: %w", err)
		}
		output, closer = file, file
	}

	return NewWriter(output, level, cfg.Format, cfg.TimeFormat), closer, nil
}

// NewWriter returns a logger writing to w. Format "console" selects the
// human-readable writer, anything else emits JSON lines.
func NewWriter(w io.Writer, level zerolog.Level, format, timeFormat string) zerolog.Logger {
	if timeFormat == "" {
		timeFormat = time.RFC3339
	}
	if format == "console" {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: timeFormat, NoColor: true}
	}
	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
