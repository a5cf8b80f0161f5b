package logger

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Config represents logger configuration
type Config struct {
	Level   string // debug, info, warn, error
	Pretty  bool   // console writer for local development
	Service string // service name attached to every event
}

// Init configures the global zerolog logger. Unknown levels fall back to
// info so a typo in LOG_LEVEL never silences the service.
func Init(cfg Config) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	logger := log.Logger
	if cfg.Pretty {
		logger = logger.Output(zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: "15:04:05",
		})
	}
	if cfg.Service != "" {
		logger = logger.With().Str("service", cfg.Service).Logger()
	}
	log.Logger = logger
}
