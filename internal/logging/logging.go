package logging

import (
	"os"

	"github.com/sirupsen/logrus"
)

// New builds the shared JSON logger for a service binary.
func New(service string) *logrus.Entry {
	l := logrus.New()
	l.SetFormatter(&logrus.JSONFormatter{})
	l.SetOutput(os.Stdout)

	level := logrus.InfoLevel
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		if parsed, err := logrus.ParseLevel(v); err == nil {
			level = parsed
		}
	}
	l.SetLevel(level)

	return l.WithField("service", service)
}
