package inproc

import (
	"github.com/ThreeDotsLabs/watermill"
	"github.com/sirupsen/logrus"
)

// logrusAdapter bridges the bus's watermill logging onto the logrus
// configuration shared by the rest of the module.
type logrusAdapter struct {
	entry *logrus.Entry
}

func newLoggerAdapter() watermill.LoggerAdapter {
	return &logrusAdapter{entry: logrus.WithField("component", "inproc.bus")}
}

func (l *logrusAdapter) Error(msg string, err error, fields watermill.LogFields) {
	l.entry.WithFields(toLogrusFields(fields)).WithError(err).Error(msg)
}

func (l *logrusAdapter) Info(msg string, fields watermill.LogFields) {
	l.entry.WithFields(toLogrusFields(fields)).Info(msg)
}

func (l *logrusAdapter) Debug(msg string, fields watermill.LogFields) {
	l.entry.WithFields(toLogrusFields(fields)).Debug(msg)
}

func (l *logrusAdapter) Trace(msg string, fields watermill.LogFields) {
	l.entry.WithFields(toLogrusFields(fields)).Trace(msg)
}

func (l *logrusAdapter) With(fields watermill.LogFields) watermill.LoggerAdapter {
	return &logrusAdapter{entry: l.entry.WithFields(toLogrusFields(fields))}
}

func toLogrusFields(fields watermill.LogFields) logrus.Fields {
	out := make(logrus.Fields, len(fields))
	for k, v := range fields {
		out[k] = v
	}
	return out
}
