// Package logging provides structured logging configuration using zerolog.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LogLevel represents the logging level.
type LogLevel string

const (
	// LevelDebug logs debug messages and above.
	LevelDebug LogLevel = "debug"

	// LevelInfo logs info messages and above.
	LevelInfo LogLevel = "info"

	// LevelWarn logs warning messages and above.
	LevelWarn LogLevel = "warn"

	// LevelError logs error messages only.
	LevelError LogLevel = "error"
)

// Config holds logger configuration.
type Config struct {
	// Level is the minimum log level to output.
	Level LogLevel

	// Pretty enables human-readable console output (default: false for JSON).
	Pretty bool

	// Output is the writer to output logs to (default: os.Stderr).
	Output io.Writer
}

// DefaultConfig returns a default logger configuration.
func DefaultConfig() Config {
	return Config{
		Level:  LevelInfo,
		Pretty: false,
		Output: os.Stderr,
	}
}

// Setup configures the global zerolog logger.
func Setup(cfg Config) zerolog.Logger {
	level, err := ParseLevel(string(cfg.Level))
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	output := cfg.Output
	if output == nil {
		output = os.Stderr
	}
	if cfg.Pretty {
		output = zerolog.ConsoleWriter{Out: output}
	}

	logger := zerolog.New(output).With().Timestamp().Logger()
	log.Logger = logger

	return logger
}

// ParseLevel converts a level name to zerolog.Level.
func ParseLevel(level string) (zerolog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zerolog.DebugLevel, nil
	case "info", "":
		return zerolog.InfoLevel, nil
	case "warn", "warning":
		return zerolog.WarnLevel, nil
	case "error":
		return zerolog.ErrorLevel, nil
	default:
		return zerolog.InfoLevel, fmt.Errorf("unknown log level %q", level)
	}
}

// NewLogger creates a new logger with the given component name.
func NewLogger(component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}

// NewRunLogger creates a component logger tagged with a fresh run id and
// returns the id, so every line of one invocation can be correlated.
func NewRunLogger(component string) (zerolog.Logger, string) {
	runID := uuid.NewString()
	return log.With().
		Str("component", component).
		Str("run_id", runID).
		Logger(), runID
}

// Log Level Guidelines:
//
// Debug: Detailed information for debugging
//   - Individual requests and extract pages
//   - Continuation tokens followed
//   - Pages skipped for missing attributes
//
// Info: Normal operation events
//   - Run start/finish and elapsed time
//   - Top-articles fetch and filtering summary
//   - Titles skipped by the legality filter
//   - Output written
//
// Warn: Warning conditions that don't prevent operation
//   - Non-2xx responses (before the run aborts)
//   - Empty result, no output written
//
// Error: Error conditions requiring attention
//   - Failed requests
//   - Continuation limit exceeded
//   - Configuration errors
//
// Context Fields:
//   - component: emitting package
//   - run_id: invocation id
//   - url / project: request target
//   - chunk / page: pagination position
//   - excontinue: continuation token
//   - duration: elapsed time
