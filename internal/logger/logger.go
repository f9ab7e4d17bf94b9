package logger

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// TimestampFormat is the layout used by both formatters
const TimestampFormat = "2006-01-02T15:04:05.000Z07:00"

// New creates a logger writing to stdout
func New(level, format string) *logrus.Logger {
	return NewWithOutput(level, format, os.Stdout)
}

// NewWithOutput creates a logger writing to w. Unknown levels fall back to info.
func NewWithOutput(level, format string, w io.Writer) *logrus.Logger {
	logger := logrus.New()

	logLevel, err := logrus.ParseLevel(level)
	if err != nil {
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)
	logger.SetOutput(w)

	switch strings.ToLower(format) {
	case "json":
		logger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: TimestampFormat,
		})
	default:
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: TimestampFormat,
		})
	}

	return logger
}

// Discard returns a logger that drops everything, for tests
func Discard() *logrus.Logger {
	return NewWithOutput("panic", "text", io.Discard)
}

// ForLookup creates an entry carrying the identifier being verified
func ForLookup(logger *logrus.Logger, gstin string, fields logrus.Fields) *logrus.Entry {
	entry := logger.WithField("gstin", gstin)
	if len(fields) > 0 {
		entry = entry.WithFields(fields)
	}
	return entry
}
