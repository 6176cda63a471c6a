package observability

import (
	"time"

	"github.com/sirupsen/logrus"
)

// Logger is the narrow logging surface the services depend on; the
// concrete sink stays behind it.
type Logger interface {
	Debug(args ...interface{})
	Info(args ...interface{})
	Warn(args ...interface{})
	Error(args ...interface{})
	WithField(key string, value interface{}) Logger
}

type entryLogger struct {
	entry *logrus.Entry
}

// NewLogger returns a JSON logger tagged with the emitting service, so
// lines from the api and the workers can be told apart downstream.
func NewLogger(service string) Logger {
	base := logrus.New()
	base.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339Nano})
	base.SetLevel(logrus.InfoLevel)
	return &entryLogger{entry: base.WithField("service", service)}
}

func (l *entryLogger) Debug(args ...interface{}) { l.entry.Debug(args...) }
func (l *entryLogger) Info(args ...interface{})  { l.entry.Info(args...) }
func (l *entryLogger) Warn(args ...interface{})  { l.entry.Warn(args...) }
func (l *entryLogger) Error(args ...interface{}) { l.entry.Error(args...) }

// WithField returns a child logger; the receiver keeps its own fields.
func (l *entryLogger) WithField(key string, value interface{}) Logger {
	return &entryLogger{entry: l.entry.WithField(key, value)}
}
