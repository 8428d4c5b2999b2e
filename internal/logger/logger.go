package logger

import (
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// New builds the process logger. Every entry is JSON and carries the
// instance name so lines from several replicas can be told apart.
func New(instance, level string) *logrus.Entry {
	l := logrus.New()
	l.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: time.RFC3339,
		FieldMap: logrus.FieldMap{
			logrus.FieldKeyTime: "timestamp",
			logrus.FieldKeyMsg:  "message",
		},
	})

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	l.SetLevel(lvl)

	return l.WithField("instance", instance)
}

// JSONLogger adapts the standard library logger so that log.Printf calls
// from dependencies end up in the same JSON stream.
type JSONLogger struct {
	Entry *logrus.Entry
}

func (l *JSONLogger) Write(p []byte) (n int, err error) {
	l.Entry.Info(strings.TrimRight(string(p), "\n"))
	return len(p), nil
}
