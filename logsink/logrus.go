// Package logsink adapts github.com/sirupsen/logrus to the collab.LogSink
// interface, the way the carbon-relay-ng aggregator imports
// "log github.com/sirupsen/logrus" directly for its leveled, printf-style
// logging.
package logsink

import "github.com/sirupsen/logrus"

// Logrus is the default collab.LogSink.
type Logrus struct {
	entry *logrus.Entry
}

// New wraps logger, defaulting to logrus.StandardLogger() when logger is
// nil.
func New(logger *logrus.Logger) *Logrus {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Logrus{entry: logrus.NewEntry(logger)}
}

// WithField returns a Logrus sink that attaches key=value to every
// subsequent message, useful for tagging log lines with the owning
// sampler or elider instance.
func (l *Logrus) WithField(key string, value interface{}) *Logrus {
	return &Logrus{entry: l.entry.WithField(key, value)}
}

func (l *Logrus) Debugf(format string, args ...interface{}) {
	l.entry.Debugf(format, args...)
}

func (l *Logrus) Infof(format string, args ...interface{}) {
	l.entry.Infof(format, args...)
}

func (l *Logrus) Errorf(format string, args ...interface{}) {
	l.entry.Errorf(format, args...)
}
