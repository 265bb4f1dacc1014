package config

import (
	"io"

	"github.com/rs/zerolog"
)

// NewLogger builds the process logger described by cfg. Console output is
// meant for humans and json output for log collectors.
func NewLogger(cfg LoggingConfig, w io.Writer) (zerolog.Logger, error) {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		return zerolog.Nop(), err
	}
	if cfg.Format == "console" {
		w = zerolog.ConsoleWriter{Out: w, NoColor: true}
	}
	return zerolog.New(w).Level(level).With().Timestamp().Logger(), nil
}
