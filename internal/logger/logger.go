// Package logger configures the global zerolog logger for the server and CLI.
package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"

	"fpl-cache-api/internal/config"
)

const ServiceName = "fpl-cache-api"

// Version is stamped at build time with -ldflags.
var Version = "dev"

// Init installs the global logger. Output goes to stderr and, when enabled,
// to a rotated app.log under cfg.FilePath.
func Init(cfg config.LoggingConfig) error {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339

	var writers []io.Writer
	if cfg.Format == "pretty" {
		writers = append(writers, zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"})
	} else {
		writers = append(writers, os.Stderr)
	}

	if cfg.FileEnabled {
		if err := os.MkdirAll(cfg.FilePath, 0o755); err != nil {
			return fmt.Errorf("failed to create log directory: %w", err)
		}
		writers = append(writers, rotated(cfg, "app.log"))
	}

	log.Logger = zerolog.New(zerolog.MultiLevelWriter(writers...)).With().
		Timestamp().
		Str("service", ServiceName).
		Str("version", Version).
		Logger()

	log.Debug().
		Str("level", cfg.Level).
		Str("format", cfg.Format).
		Bool("file_enabled", cfg.FileEnabled).
		Msg("logger initialized")
	return nil
}

// NewAccessLogger returns the HTTP access logger. Without file output it is
// the global logger tagged with type=access.
func NewAccessLogger(cfg config.LoggingConfig) zerolog.Logger {
	if !cfg.FileEnabled {
		return log.With().Str("type", "access").Logger()
	}
	if err := os.MkdirAll(cfg.FilePath, 0o755); err != nil {
		log.Warn().Err(err).Msg("failed to create access log directory, using default logger")
		return log.With().Str("type", "access").Logger()
	}
	return zerolog.New(rotated(cfg, "access.log")).With().
		Timestamp().
		Str("type", "access").
		Logger()
}

func rotated(cfg config.LoggingConfig, name string) *lumberjack.Logger {
	return &lumberjack.Logger{
		Filename:   filepath.Join(cfg.FilePath, name),
		MaxSize:    cfg.RotationSize,
		MaxAge:     cfg.RetentionDays,
		MaxBackups: 10,
		Compress:   true,
	}
}
