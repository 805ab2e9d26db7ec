// Package log provides configurable slog logging for pgfngen. Generated
// SQL goes to stdout, so log records default to stderr.
package log

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

// Config holds logging configuration.
type Config struct {
	Level  string `env:"LEVEL"  envDefault:"warn"` // "debug", "info", "warn", "error"
	Format string `env:"FORMAT" envDefault:"text"` // "text", "json"
}

// DefaultConfig returns the default logging configuration.
func DefaultConfig() *Config {
	return &Config{
		Level:  "warn",
		Format: "text",
	}
}

// ParseLevel converts a string level to slog.Level.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ValidLevel reports whether level is one ParseLevel understands.
func ValidLevel(level string) bool {
	switch strings.ToLower(level) {
	case "debug", "info", "warn", "warning", "error":
		return true
	}
	return false
}

var (
	defaultLogger *slog.Logger
	mu            sync.RWMutex
)

// Init initializes the global logger writing to stderr.
func Init(cfg *Config) error {
	return InitWriter(os.Stderr, cfg)
}

// InitWriter initializes the global logger writing to w. A nil cfg
// means DefaultConfig.
func InitWriter(w io.Writer, cfg *Config) error {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	mu.Lock()
	defer mu.Unlock()

	handler := NewConsoleHandler(w, cfg, ParseLevel(cfg.Level))
	defaultLogger = slog.New(handler)
	slog.SetDefault(defaultLogger)
	return nil
}

// Logger returns the current default logger.
func Logger() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	if defaultLogger == nil {
		return slog.Default()
	}
	return defaultLogger
}

// Debug logs at debug level.
func Debug(msg string, args ...any) {
	Logger().Debug(msg, args...)
}

// Info logs at info level.
func Info(msg string, args ...any) {
	Logger().Info(msg, args...)
}
