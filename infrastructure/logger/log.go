package logger

import (
	"sync/atomic"
)

// Logger is a subsystem logger. All messages are tagged with the
// subsystem's tag and filtered by the logger's current level before being
// handed to the backend.
type Logger struct {
	level   uint32 // Level, used atomically
	tag     string
	backend *Backend
}

// Level returns the current logging level
func (l *Logger) Level() Level {
	return Level(atomic.LoadUint32(&l.level))
}

// SetLevel changes the logging level to the passed level
func (l *Logger) SetLevel(level Level) {
	atomic.StoreUint32(&l.level, uint32(level))
}

// Backend returns the backend this logger writes to
func (l *Logger) Backend() *Backend {
	return l.backend
}

// Trace formats a message using the default format for its operands and
// writes it with LevelTrace
func (l *Logger) Trace(args ...interface{}) {
	if l.Level() <= LevelTrace {
		l.backend.print(LevelTrace, l.tag, 2, args...)
	}
}

// Tracef formats a message according to a format specifier and writes it
// with LevelTrace
func (l *Logger) Tracef(format string, args ...interface{}) {
	if l.Level() <= LevelTrace {
		l.backend.printf(LevelTrace, l.tag, 2, format, args...)
	}
}

// Debug formats a message using the default format for its operands and
// writes it with LevelDebug
func (l *Logger) Debug(args ...interface{}) {
	if l.Level() <= LevelDebug {
		l.backend.print(LevelDebug, l.tag, 2, args...)
	}
}

// Debugf formats a message according to a format specifier and writes it
// with LevelDebug
func (l *Logger) Debugf(format string, args ...interface{}) {
	if l.Level() <= LevelDebug {
		l.backend.printf(LevelDebug, l.tag, 2, format, args...)
	}
}

// Info formats a message using the default format for its operands and
// writes it with LevelInfo
func (l *Logger) Info(args ...interface{}) {
	if l.Level() <= LevelInfo {
		l.backend.print(LevelInfo, l.tag, 2, args...)
	}
}

// Infof formats a message according to a format specifier and writes it
// with LevelInfo
func (l *Logger) Infof(format string, args ...interface{}) {
	if l.Level() <= LevelInfo {
		l.backend.printf(LevelInfo, l.tag, 2, format, args...)
	}
}

// Warn formats a message using the default format for its operands and
// writes it with LevelWarn
func (l *Logger) Warn(args ...interface{}) {
	if l.Level() <= LevelWarn {
		l.backend.print(LevelWarn, l.tag, 2, args...)
	}
}

// Warnf formats a message according to a format specifier and writes it
// with LevelWarn
func (l *Logger) Warnf(format string, args ...interface{}) {
	if l.Level() <= LevelWarn {
		l.backend.printf(LevelWarn, l.tag, 2, format, args...)
	}
}

// Error formats a message using the default format for its operands and
// writes it with LevelError
func (l *Logger) Error(args ...interface{}) {
	if l.Level() <= LevelError {
		l.backend.print(LevelError, l.tag, 2, args...)
	}
}

// Errorf formats a message according to a format specifier and writes it
// with LevelError
func (l *Logger) Errorf(format string, args ...interface{}) {
	if l.Level() <= LevelError {
		l.backend.printf(LevelError, l.tag, 2, format, args...)
	}
}

// Critical formats a message using the default format for its operands and
// writes it with LevelCritical
func (l *Logger) Critical(args ...interface{}) {
	if l.Level() <= LevelCritical {
		l.backend.print(LevelCritical, l.tag, 2, args...)
	}
}

// Criticalf formats a message according to a format specifier and writes it
// with LevelCritical
func (l *Logger) Criticalf(format string, args ...interface{}) {
	if l.Level() <= LevelCritical {
		l.backend.printf(LevelCritical, l.tag, 2, format, args...)
	}
}
