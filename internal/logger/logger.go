package logger

import (
	"io"
	"os"

	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

// New builds the root logger. LOG_LEVEL is read directly because the
// config loader itself logs through this logger.
func New() zerolog.Logger {
	level, err := zerolog.ParseLevel(os.Getenv("LOG_LEVEL"))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	return WithLevel(os.Stdout, level)
}

func WithLevel(w io.Writer, level zerolog.Level) zerolog.Logger {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	return zerolog.New(w).
		With().
		Timestamp().
		Caller().
		Str("service", "tft-tracker").
		Logger().
		Level(level)
}

var Module = fx.Provide(New)
