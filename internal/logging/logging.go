package logging

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"smartmoney-collector/internal/config"
)

// Setup configures the global zerolog logger from config. The "text"
// format writes console output; "json" writes structured lines.
func Setup(cfg config.LoggingConfig) {
	switch cfg.Level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	if cfg.Format == "text" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	} else {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	}
}

// ForRun returns a logger carrying the run_id on every line.
func ForRun(runID string) zerolog.Logger {
	return log.With().Str("run_id", runID).Logger()
}
