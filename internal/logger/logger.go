package logger

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

type Logger struct {
	level string
	entry *logrus.Entry
}

// New builds a leveled logger. Production environments log JSON, everything
// else logs text.
func New(level string, env ...string) *Logger {
	base := logrus.New()
	base.SetOutput(os.Stdout)

	if len(env) > 0 && env[0] == "production" {
		base.SetFormatter(&logrus.JSONFormatter{})
	} else {
		base.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		parsed = logrus.InfoLevel
	}
	base.SetLevel(parsed)

	return &Logger{
		level: parsed.String(),
		entry: logrus.NewEntry(base).WithField("source", "spire-sync"),
	}
}

// Discard returns a logger that drops everything. Used by tests.
func Discard() *Logger {
	l := New("panic")
	l.entry.Logger.SetOutput(io.Discard)
	return l
}

// WithField returns a logger that tags every line with key=value.
func (l *Logger) WithField(key string, value interface{}) *Logger {
	return &Logger{
		level: l.level,
		entry: l.entry.WithField(key, value),
	}
}

func (l *Logger) Level() string {
	return l.level
}

func (l *Logger) Info(msg string, args ...interface{}) {
	l.entry.Infof(msg, args...)
}

func (l *Logger) Debug(msg string, args ...interface{}) {
	l.entry.Debugf(msg, args...)
}

func (l *Logger) Warn(msg string, args ...interface{}) {
	l.entry.Warnf(msg, args...)
}

func (l *Logger) Error(msg string, args ...interface{}) {
	l.entry.Errorf(msg, args...)
}

func (l *Logger) Fatal(msg string, args ...interface{}) {
	l.entry.Fatalf(msg, args...)
}
