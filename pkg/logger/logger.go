// Package logger provides structured logging utilities.
package logger

import (
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is a wrapper around zap.Logger.
type Logger struct {
	*zap.Logger
}

// New creates a new structured logger.
func New(level string) (*Logger, error) {
	config := zap.Config{
		Level:       zap.NewAtomicLevelAt(ParseLevel(level)),
		Development: false,
		Encoding:    "json",
		EncoderConfig: zapcore.EncoderConfig{
			TimeKey:        "ts",
			LevelKey:       "level",
			NameKey:        "logger",
			CallerKey:      "caller",
			MessageKey:     "msg",
			StacktraceKey:  "stacktrace",
			LineEnding:     zapcore.DefaultLineEnding,
			EncodeLevel:    zapcore.LowercaseLevelEncoder,
			EncodeTime:     zapcore.ISO8601TimeEncoder,
			EncodeDuration: zapcore.SecondsDurationEncoder,
			EncodeCaller:   zapcore.ShortCallerEncoder,
		},
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
	}

	logger, err := config.Build()
	if err != nil {
		return nil, err
	}

	return &Logger{Logger: logger}, nil
}

// NewDevelopment creates a development logger with pretty output.
func NewDevelopment() (*Logger, error) {
	config := zap.NewDevelopmentConfig()
	config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder

	logger, err := config.Build()
	if err != nil {
		return nil, err
	}

	return &Logger{Logger: logger}, nil
}

// NewNop returns a logger that discards everything. Used by tests.
func NewNop() *Logger {
	return &Logger{Logger: zap.NewNop()}
}

// With creates a child logger with additional fields.
func (l *Logger) With(fields ...zap.Field) *Logger {
	return &Logger{Logger: l.Logger.With(fields...)}
}

// WithEvent creates a child logger scoped to one webhook event.
func (l *Logger) WithEvent(eventID, eventType, conversationID string) *Logger {
	return l.With(
		zap.String("event_id", eventID),
		zap.String("event_type", eventType),
		zap.String("conversation_id", conversationID),
	)
}

// WithRequest creates a child logger with request context fields.
func (l *Logger) WithRequest(correlationID, subject string) *Logger {
	return l.With(
		zap.String("correlation_id", correlationID),
		zap.String("subject", subject),
	)
}

// ParseLevel maps a level name to a zap level, defaulting to info.
func ParseLevel(level string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zapcore.DebugLevel
	case "info":
		return zapcore.InfoLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	case "fatal":
		return zapcore.FatalLevel
	default:
		return zapcore.InfoLevel
	}
}

// Global logger instance for convenience.
var global *Logger

func init() {
	if os.Getenv("ENV") == "development" {
		global, _ = NewDevelopment()
	} else {
		global, _ = New("info")
	}
}

// Global returns the global logger instance, or a no-op logger when none is set.
func Global() *Logger {
	if global == nil {
		return NewNop()
	}
	return global
}

// SetGlobal sets the global logger instance.
func SetGlobal(l *Logger) {
	global = l
}
