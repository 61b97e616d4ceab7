package logger

import (
	"io"
	"os"
	"time"

	"github.com/dt-jamiem/jira-dashboard/internal/config"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// New builds the process logger: human readable in dev, JSON elsewhere.
// It also becomes the global zerolog logger.
func New(cfg config.Config) zerolog.Logger {
	return newTo(os.Stdout, cfg)
}

func newTo(out io.Writer, cfg config.Config) zerolog.Logger {
	level := zerolog.InfoLevel
	if cfg.AppEnv == "dev" {
		level = zerolog.DebugLevel
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	} else {
		zerolog.TimeFieldFormat = time.RFC3339
	}
	logger := zerolog.New(out).Level(level).With().Timestamp().Str("service", "jira-dashboard").Logger()
	log.Logger = logger
	return logger
}
