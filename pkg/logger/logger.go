package logger

import (
	"os"

	"github.com/go-logr/logr"
	"github.com/go-logr/zerologr"
	"github.com/rs/zerolog"
)

// Logger is the logging front-end used across the project. It is a plain
// logr.Logger so callers can use WithName/WithValues/V directly.
type Logger = logr.Logger

var defaultLogger = newZerologr("info")

// GetLogger returns the process-wide logger.
func GetLogger() Logger {
	return defaultLogger
}

// SetLogger replaces the process-wide logger, mainly for tests.
func SetLogger(l Logger) {
	defaultLogger = l
}

// Init configures the default logger from a level string ("debug", "info",
// "warn", "error"). Unknown levels fall back to info.
func Init(level string) {
	defaultLogger = newZerologr(level)
}

func newZerologr(level string) Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	zl := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(lvl).
		With().Timestamp().Logger()
	return zerologr.New(&zl)
}

func Debugw(msg string, keysAndValues ...interface{}) {
	defaultLogger.V(1).Info(msg, keysAndValues...)
}

func Infow(msg string, keysAndValues ...interface{}) {
	defaultLogger.Info(msg, keysAndValues...)
}

func Warnw(msg string, err error, keysAndValues ...interface{}) {
	if err != nil {
		keysAndValues = append(keysAndValues, "error", err)
	}
	defaultLogger.Info(msg, keysAndValues...)
}

func Errorw(msg string, err error, keysAndValues ...interface{}) {
	defaultLogger.Error(err, msg, keysAndValues...)
}
