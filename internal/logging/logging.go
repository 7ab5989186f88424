// Package logging wraps the process-wide structured logger.
package logging

import (
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

var logger = log.NewWithOptions(os.Stderr, log.Options{
	ReportTimestamp: true,
	TimeFormat:      time.RFC3339,
	Level:           log.InfoLevel,
})

// SetLevel adjusts the global log level ("debug", "info", "warn", "error").
func SetLevel(level string) {
	switch strings.ToLower(level) {
	case "debug":
		logger.SetLevel(log.DebugLevel)
	case "warn":
		logger.SetLevel(log.WarnLevel)
	case "error":
		logger.SetLevel(log.ErrorLevel)
	default:
		logger.SetLevel(log.InfoLevel)
	}
}

// Debug logs a debug message with key/value pairs.
func Debug(msg string, keyvals ...interface{}) { logger.Debug(msg, keyvals...) }

// Info logs an info message with key/value pairs.
func Info(msg string, keyvals ...interface{}) { logger.Info(msg, keyvals...) }

// Warn logs a warning with key/value pairs.
func Warn(msg string, keyvals ...interface{}) { logger.Warn(msg, keyvals...) }

// Error logs an error with key/value pairs.
func Error(msg string, keyvals ...interface{}) { logger.Error(msg, keyvals...) }
