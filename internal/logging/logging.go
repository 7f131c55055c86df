// Package logging wires the workspace's structured logger, configured from
// the mcp_server.log_level / log_file sections of the workspace config.
package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Logger is the process-wide logger. Init replaces it at startup; components
// that run before Init (or in tests) get a sane default.
var Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).With().Timestamp().Logger()

// Level mirrors the log_level values recognized by mcp_server config.
type Level string

const (
	DebugLevel Level = "debug"
	InfoLevel  Level = "info"
	WarnLevel  Level = "warn"
	ErrorLevel Level = "error"
)

// Config holds the options needed to (re)configure the global logger.
type Config struct {
	Level  Level
	Output io.Writer // defaults to os.Stderr; MCP servers must not write logs to stdout
	JSON   bool
}

// Init (re)configures the global Logger from workspace config.
func Init(cfg Config) {
	var level zerolog.Level
	switch cfg.Level {
	case DebugLevel:
		level = zerolog.DebugLevel
	case WarnLevel:
		level = zerolog.WarnLevel
	case ErrorLevel:
		level = zerolog.ErrorLevel
	default:
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	output := cfg.Output
	if output == nil {
		output = os.Stderr
	}

	if cfg.JSON {
		Logger = zerolog.New(output).With().Timestamp().Logger()
		return
	}
	Logger = zerolog.New(zerolog.ConsoleWriter{Out: output, TimeFormat: time.RFC3339}).With().Timestamp().Logger()
}

// WithComponent returns a child logger tagged with the emitting component,
// e.g. WithComponent("indexer") or WithComponent("linksync").
func WithComponent(component string) zerolog.Logger {
	return Logger.With().Str("component", component).Logger()
}

// WithVault returns a child logger tagged with the vault id.
func WithVault(vaultID string) zerolog.Logger {
	return Logger.With().Str("vault_id", vaultID).Logger()
}
