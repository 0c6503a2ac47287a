// Package logging builds the logrus logger used by both services.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// New returns a logger writing to stderr at level.  Outside the dev
// environment it emits JSON.  An unknown level falls back to info.
func New(level, env string) *logrus.Logger {
	return NewWithOutput(os.Stderr, level, env)
}

func NewWithOutput(out io.Writer, level, env string) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(out)

	lvl, err := logrus.ParseLevel(strings.TrimSpace(level))
	if err != nil {
		lvl = logrus.InfoLevel
	}
	log.SetLevel(lvl)

	switch strings.ToLower(env) {
	case "dev", "development", "local", "test":
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	default:
		log.SetFormatter(&logrus.JSONFormatter{})
	}
	return log
}
