// Package logging configures the process-wide structured logger. All
// binaries emit JSON lines so log collectors can index fields directly.
package logging

import (
	"os"

	"github.com/sirupsen/logrus"
)

// Init configures the global logrus instance. levelStr is one of
// logrus's level names; anything unparseable falls back to info.
func Init(levelStr string) {
	logrus.SetFormatter(&logrus.JSONFormatter{
		FieldMap: logrus.FieldMap{
			logrus.FieldKeyTime:  "timestamp",
			logrus.FieldKeyLevel: "level",
			logrus.FieldKeyMsg:   "message",
		},
	})
	logrus.SetOutput(os.Stdout)

	level, err := logrus.ParseLevel(levelStr)
	if err != nil {
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)
}

// Component returns an entry tagged with the owning component, so every
// line carries where it came from.
func Component(name string) *logrus.Entry {
	return logrus.WithField("component", name)
}
