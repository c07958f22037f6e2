package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/guttosm/tickerql/config"
)

// base starts as an info-level JSON logger on stdout so packages can log before Init runs.
var base = newLogger(config.LogConfig{Level: "info"}, os.Stdout)

// Init configures the global JSON logger from cfg.
//
// Level accepts debug|info|warn|error (anything else means info). Pretty switches
// to zerolog's ConsoleWriter for local development.
func Init(cfg config.LogConfig) {
	initWithWriter(cfg, os.Stdout)
}

func initWithWriter(cfg config.LogConfig, out io.Writer) {
	base = newLogger(cfg, out)
}

func newLogger(cfg config.LogConfig, out io.Writer) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339Nano
	w := out
	if cfg.Pretty {
		w = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}
	return zerolog.New(w).With().Timestamp().Str("service", "tickerql").Logger().Level(parseLevel(cfg.Level))
}

// L returns the global logger. Call Init() once on startup.
func L() *zerolog.Logger {
	return &base
}

func parseLevel(s string) zerolog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error", "err":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
