// Package logging provides a shared logrus setup so every subsystem logs
// through a component-scoped entry instead of the standard library logger.
package logging

import (
	"os"

	"github.com/sirupsen/logrus"
)

var base = newBase()

func newBase() *logrus.Logger {
	l := logrus.New()
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	l.SetOutput(os.Stdout)
	if os.Getenv("LOG_LEVEL") != "" {
		if lvl, err := logrus.ParseLevel(os.Getenv("LOG_LEVEL")); err == nil {
			l.SetLevel(lvl)
		}
	}
	return l
}

// For returns a component-scoped logger entry, e.g. logging.For("matching").
func For(component string) *logrus.Entry {
	return base.WithField("component", component)
}
