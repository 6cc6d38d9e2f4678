package logger

import (
	"os"

	"github.com/gigcatalog/ingestor/config"
	"github.com/rs/zerolog"
)

// New returns a configured zerolog.Logger. Development mode uses a
// human-readable console writer; production emits plain JSON lines
// suitable for the run/error/perf log files in observability.
func New(cfg *config.Config) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	if cfg.Mode == config.ModeDevelopment {
		lvl = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(lvl)

	if cfg.Mode == config.ModeDevelopment {
		out := zerolog.ConsoleWriter{Out: os.Stderr}
		return zerolog.New(out).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stderr).With().Timestamp().Logger()
}
