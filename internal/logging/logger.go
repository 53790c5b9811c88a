// Package logging wraps logrus with the application's defaults.
package logging

import (
	"os"

	"ledgerpay/internal/config"

	"github.com/sirupsen/logrus"
)

type Logger struct {
	*logrus.Logger
}

// NewLogger builds the application logger. JSON output in production,
// human-readable text otherwise. Level comes from LOG_LEVEL.
func NewLogger() *Logger {
	log := logrus.New()
	log.SetOutput(os.Stdout)

	level, err := logrus.ParseLevel(config.GetEnv("LOG_LEVEL", "info"))
	if err != nil {
		level = logrus.InfoLevel
	}
	log.SetLevel(level)

	if config.IsProduction() {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	return &Logger{log}
}

// WithField returns an entry scoped to a single field.
func (l *Logger) Field(key string, value interface{}) *logrus.Entry {
	return l.WithField(key, value)
}
