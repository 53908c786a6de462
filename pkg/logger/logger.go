package logger

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

var log = newLogger()

func newLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stdout)
	l.SetLevel(logrus.InfoLevel)
	l.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: time.RFC3339,
		DisableQuote:    true,
		PadLevelText:    true,
	})
	return l
}

// Init applies the configured level and output format.
func Init(level string, json bool) error {
	if err := SetLevel(level); err != nil {
		return err
	}
	if json {
		log.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339})
	}
	return nil
}

// SetLevel sets the log level directly
func SetLevel(levelStr string) error {
	if strings.TrimSpace(levelStr) == "" {
		return nil
	}
	level, err := logrus.ParseLevel(levelStr)
	if err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}
	log.SetLevel(level)
	return nil
}

// SetOutput redirects every log line, mostly for tests.
func SetOutput(w io.Writer) {
	log.SetOutput(w)
}

// getCallerInfo returns the file and line number of the calling function
func getCallerInfo() (string, int) {
	_, file, line, ok := runtime.Caller(2)
	if !ok {
		return "unknown", 0
	}
	parts := strings.Split(file, "/")
	return parts[len(parts)-1], line
}

func Debug(format string, args ...any) {
	file, line := getCallerInfo()
	log.Debugf("%s:%d "+format, append([]any{file, line}, args...)...)
}

func Info(format string, args ...any) {
	file, line := getCallerInfo()
	log.Infof("%s:%d "+format, append([]any{file, line}, args...)...)
}

func Warn(format string, args ...any) {
	file, line := getCallerInfo()
	log.Warnf("%s:%d "+format, append([]any{file, line}, args...)...)
}

// Error logs with the error attached as a field.
func Error(err error, format string, args ...any) {
	file, line := getCallerInfo()
	fields := logrus.Fields{}
	if err != nil {
		fields["error"] = err.Error()
	}
	log.WithFields(fields).Errorf("%s:%d "+format, append([]any{file, line}, args...)...)
}

func Fatal(err error, format string, args ...any) {
	file, line := getCallerInfo()
	fields := logrus.Fields{}
	if err != nil {
		fields["error"] = err.Error()
	}
	log.WithFields(fields).Fatalf("%s:%d "+format, append([]any{file, line}, args...)...)
}

// WithField adds a field to the logger
func WithField(key string, value any) *logrus.Entry {
	return log.WithField(key, value)
}

// WithFields adds multiple fields to the logger
func WithFields(fields logrus.Fields) *logrus.Entry {
	return log.WithFields(fields)
}

// Module returns an entry tagged with the component name, e.g. "ingest".
func Module(name string) *logrus.Entry {
	return log.WithField("module", name)
}

// GetLogger returns the underlying logrus logger
func GetLogger() *logrus.Logger {
	return log
}
