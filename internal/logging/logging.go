// Package logging provides structured logging using zerolog.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Logger is the global logger instance.
var Logger zerolog.Logger

// Config holds logger configuration.
type Config struct {
	// Level is the minimum level to emit.
	Level zerolog.Level
	// Output is where logs are written. Defaults to os.Stderr.
	Output io.Writer
	// Pretty enables human-readable console output.
	Pretty bool
}

// Init initializes the global logger.
func Init(cfg Config) {
	if cfg.Output == nil {
		cfg.Output = os.Stderr
	}

	zerolog.TimeFieldFormat = time.RFC3339

	out := cfg.Output
	if cfg.Pretty {
		out = zerolog.ConsoleWriter{Out: cfg.Output, TimeFormat: time.Kitchen}
	}

	Logger = zerolog.New(out).Level(cfg.Level).With().Timestamp().Logger()
}

// ParseLevel maps a level string to a zerolog level, defaulting to info.
func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "fatal":
		return zerolog.FatalLevel
	default:
		return zerolog.InfoLevel
	}
}

// Debug starts a debug level event on the global logger.
func Debug() *zerolog.Event { return Logger.Debug() }

// Info starts an info level event on the global logger.
func Info() *zerolog.Event { return Logger.Info() }

// Warn starts a warn level event on the global logger.
func Warn() *zerolog.Event { return Logger.Warn() }

// Error starts an error level event on the global logger.
func Error() *zerolog.Event { return Logger.Error() }

// Fatal starts a fatal level event; Msg/Send will exit the process.
func Fatal() *zerolog.Event { return Logger.Fatal() }

// With creates a child logger context with additional fields.
func With() zerolog.Context { return Logger.With() }

func init() {
	Init(Config{Level: zerolog.InfoLevel})
}
