// Package logging provides structured logging functionality using Go's slog package.
// It supports both text and JSON output formats, configurable log levels,
// and context-aware logging for the scansage application.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

const (
	// File permissions for directories and log files.
	logDirPerm  = 0750
	logFilePerm = 0600
)

// LogLevel represents the available log levels.
type LogLevel string

const (
	LevelDebug LogLevel = "debug"
	LevelInfo  LogLevel = "info"
	LevelWarn  LogLevel = "warn"
	LevelError LogLevel = "error"
)

// LogFormat represents the available log formats.
type LogFormat string

const (
	FormatText LogFormat = "text"
	FormatJSON LogFormat = "json"
)

// Config holds logging configuration.
type Config struct {
	Level     LogLevel  `yaml:"level" json:"level"`
	Format    LogFormat `yaml:"format" json:"format"`
	Output    string    `yaml:"output" json:"output"`
	AddSource bool      `yaml:"add_source" json:"add_source"`
}

// DefaultConfig returns a default logging configuration.
func DefaultConfig() Config {
	return Config{
		Level:     LevelInfo,
		Format:    FormatText,
		Output:    "stdout",
		AddSource: false,
	}
}

// Logger wraps slog.Logger with additional functionality.
type Logger struct {
	*slog.Logger
	config Config
}

// New creates a new structured logger with the given configuration.
func New(cfg Config) (*Logger, error) {
	// Parse log level
	var level slog.Level
	switch strings.ToLower(string(cfg.Level)) {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	// Determine output writer
	var writer io.Writer
	switch cfg.Output {
	case "stdout":
		writer = os.Stdout
	case "stderr":
		writer = os.Stderr
	default:
		// Assume it's a file path
		if err := os.MkdirAll(filepath.Dir(cfg.Output), logDirPerm); err != nil {
			return nil, err
		}
		file, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePerm)
		if err != nil {
			return nil, err
		}
		writer = file
	}

	// Create handler options
	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: cfg.AddSource,
	}

	// Create handler based on format
	var handler slog.Handler
	switch cfg.Format {
	case FormatJSON:
		handler = slog.NewJSONHandler(writer, opts)
	default:
		handler = slog.NewTextHandler(writer, opts)
	}

	return &Logger{
		Logger: slog.New(handler),
		config: cfg,
	}, nil
}

// NewDefault creates a logger with default configuration.
func NewDefault() *Logger {
	logger, _ := New(DefaultConfig())
	return logger
}

// WithContext adds context to the logger for structured logging.
func (l *Logger) WithContext(ctx context.Context) *Logger {
	return &Logger{
		Logger: l.With(),
		config: l.config,
	}
}

// WithFields adds structured fields to the logger.
func (l *Logger) WithFields(fields ...any) *Logger {
	return &Logger{
		Logger: l.With(fields...),
		config: l.config,
	}
}

// WithComponent adds a component field to the logger.
func (l *Logger) WithComponent(component string) *Logger {
	return l.WithFields("component", component)
}

// WithIngestID adds an ingest ID field to the logger.
func (l *Logger) WithIngestID(ingestID string) *Logger {
	return l.WithFields("ingest_id", ingestID)
}

// WithFormat adds a payload format field to the logger.
func (l *Logger) WithFormat(format string) *Logger {
	return l.WithFields("format", format)
}

// WithError adds an error field to the logger.
func (l *Logger) WithError(err error) *Logger {
	return l.WithFields("error", err)
}

// InfoIngest logs ingestion-related information.
func (l *Logger) InfoIngest(msg, format string, fields ...any) {
	allFields := append([]any{"format", format}, fields...)
	l.Info(msg, allFields...)
}

// ErrorIngest logs ingestion-related errors.
func (l *Logger) ErrorIngest(msg, format string, err error, fields ...any) {
	allFields := append([]any{"format", format, "error", err}, fields...)
	l.Error(msg, allFields...)
}

// WarnAudit logs audit sink warnings.
func (l *Logger) WarnAudit(msg, kind string, err error, fields ...any) {
	allFields := append([]any{"component", "audit", "kind", kind, "error", err}, fields...)
	l.Warn(msg, allFields...)
}

// InfoStore logs retention store information.
func (l *Logger) InfoStore(msg string, fields ...any) {
	allFields := append([]any{"component", "store"}, fields...)
	l.Info(msg, allFields...)
}

// ErrorStore logs retention store errors.
func (l *Logger) ErrorStore(msg string, err error, fields ...any) {
	allFields := append([]any{"component", "store", "error", err}, fields...)
	l.Error(msg, allFields...)
}

// InfoServer logs API server information.
func (l *Logger) InfoServer(msg string, fields ...any) {
	allFields := append([]any{"component", "server"}, fields...)
	l.Info(msg, allFields...)
}

// ErrorServer logs API server errors.
func (l *Logger) ErrorServer(msg string, err error, fields ...any) {
	allFields := append([]any{"component", "server", "error", err}, fields...)
	l.Error(msg, allFields...)
}

// Global logger instance - can be replaced for testing.
var defaultLogger = NewDefault()

// SetDefault sets the default logger instance.
func SetDefault(logger *Logger) {
	defaultLogger = logger
}

// Default returns the default logger instance.
func Default() *Logger {
	return defaultLogger
}

// Debug logs at debug level using the default logger.
func Debug(msg string, fields ...any) {
	defaultLogger.Debug(msg, fields...)
}

// Info logs at info level using the default logger.
func Info(msg string, fields ...any) {
	defaultLogger.Info(msg, fields...)
}

// Warn logs at warn level using the default logger.
func Warn(msg string, fields ...any) {
	defaultLogger.Warn(msg, fields...)
}

// Error logs at error level using the default logger.
func Error(msg string, fields ...any) {
	defaultLogger.Error(msg, fields...)
}

// InfoIngest logs ingestion-related information using the default logger.
func InfoIngest(msg, format string, fields ...any) {
	defaultLogger.InfoIngest(msg, format, fields...)
}

// ErrorIngest logs ingestion-related errors using the default logger.
func ErrorIngest(msg, format string, err error, fields ...any) {
	defaultLogger.ErrorIngest(msg, format, err, fields...)
}

// WarnAudit logs audit sink warnings using the default logger.
func WarnAudit(msg, kind string, err error, fields ...any) {
	defaultLogger.WarnAudit(msg, kind, err, fields...)
}

// InfoServer logs API server information using the default logger.
func InfoServer(msg string, fields ...any) {
	defaultLogger.InfoServer(msg, fields...)
}

// ErrorServer logs API server errors using the default logger.
func ErrorServer(msg string, err error, fields ...any) {
	defaultLogger.ErrorServer(msg, err, fields...)
}
