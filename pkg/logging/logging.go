package logging

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Config selects level, output format and destination.
type Config struct {
	Level  string    // trace | debug | info | warn | error; empty means info
	Format string    // console | json; empty means console
	Writer io.Writer // defaults to os.Stderr
}

// New returns a timestamped logger.
func New(cfg Config) (zerolog.Logger, error) {
	w := cfg.Writer
	if w == nil {
		w = os.Stderr
	}

	level := zerolog.InfoLevel
	if cfg.Level != "" {
		l, err := zerolog.ParseLevel(cfg.Level)
		if err != nil {
			return zerolog.Nop(), fmt.Errorf("log level: %w", err)
		}
		level = l
	}

	switch cfg.Format {
	case "", "console":
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
	case "json":
	default:
		return zerolog.Nop(), fmt.Errorf("log format %q: want console or json", cfg.Format)
	}

	return zerolog.New(w).Level(level).With().Timestamp().Logger(), nil
}

// Default returns the stderr JSON logger used before configuration is read.
func Default() zerolog.Logger {
	return zerolog.New(os.Stderr).With().Timestamp().Logger()
}
