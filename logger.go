package emitter

import (
	"github.com/sirupsen/logrus"
)

// Logger is the logging surface used by the registry and by wsclient. Its shape
// matches logrus so that a *logrus.Entry can be plugged in through NewLogrusLogger.
type Logger interface {
	WithField(key string, value any) Logger
	Debug(args ...any)
	Debugf(format string, args ...any)
	Debugln(args ...any)
	Info(args ...any)
	Infof(format string, args ...any)
	Infoln(args ...any)
	Warn(args ...any)
	Warnf(format string, args ...any)
	Warnln(args ...any)
	Error(args ...any)
	Errorf(format string, args ...any)
	Errorln(args ...any)
}

type logrusLogger struct {
	logrus.FieldLogger
}

func (l logrusLogger) WithField(key string, value any) Logger {
	return logrusLogger{FieldLogger: l.FieldLogger.WithField(key, value)}
}

// NewLogrusLogger adapts a logrus logger or entry. A nil logger falls back to
// the logrus standard logger.
func NewLogrusLogger(l logrus.FieldLogger) Logger {
	if l == nil {
		l = logrus.StandardLogger()
	}
	return logrusLogger{FieldLogger: l}
}

type noopLogger struct{}

// NoopLogger returns a Logger that discards everything.
func NoopLogger() Logger { return noopLogger{} }

func (n noopLogger) WithField(string, any) Logger { return n }
func (noopLogger) Debug(...any)                   {}
func (noopLogger) Debugf(string, ...any)          {}
func (noopLogger) Debugln(...any)                 {}
func (noopLogger) Info(...any)                    {}
func (noopLogger) Infof(string, ...any)           {}
func (noopLogger) Infoln(...any)                  {}
func (noopLogger) Warn(...any)                    {}
func (noopLogger) Warnf(string, ...any)           {}
func (noopLogger) Warnln(...any)                  {}
func (noopLogger) Error(...any)                   {}
func (noopLogger) Errorf(string, ...any)          {}
func (noopLogger) Errorln(...any)                 {}
