/*
 * This file is subject to the terms and conditions defined in
 * file 'LICENSE.md', which is part of this source code package.
 */

package common

import "github.com/sirupsen/logrus"

// LogrusLogger adapts a *logrus.Logger to the Logger interface, for
// callers who already run logrus elsewhere in their process and want
// this module's output folded into it rather than printed separately.
type LogrusLogger struct {
	Entry *logrus.Logger
}

// NewLogrusLogger wraps l as a Logger.
func NewLogrusLogger(l *logrus.Logger) *LogrusLogger {
	return &LogrusLogger{Entry: l}
}

// IsLogLevel reports whether logrus's configured level would emit at
// the given level.
func (l *LogrusLogger) IsLogLevel(level LogLevel) bool {
	switch {
	case level >= LogLevelTrace:
		return l.Entry.IsLevelEnabled(logrus.TraceLevel)
	case level >= LogLevelDebug:
		return l.Entry.IsLevelEnabled(logrus.DebugLevel)
	case level >= LogLevelInfo:
		return l.Entry.IsLevelEnabled(logrus.InfoLevel)
	case level >= LogLevelNotice:
		return l.Entry.IsLevelEnabled(logrus.InfoLevel)
	case level >= LogLevelWarning:
		return l.Entry.IsLevelEnabled(logrus.WarnLevel)
	default:
		return l.Entry.IsLevelEnabled(logrus.ErrorLevel)
	}
}

// Error logs at logrus error level.
func (l *LogrusLogger) Error(format string, args ...interface{}) { l.Entry.Errorf(format, args...) }

// Warning logs at logrus warn level.
func (l *LogrusLogger) Warning(format string, args ...interface{}) { l.Entry.Warnf(format, args...) }

// Notice logs at logrus info level; logrus has no distinct notice level.
func (l *LogrusLogger) Notice(format string, args ...interface{}) { l.Entry.Infof(format, args...) }

// Info logs at logrus info level.
func (l *LogrusLogger) Info(format string, args ...interface{}) { l.Entry.Infof(format, args...) }

// Debug logs at logrus debug level.
func (l *LogrusLogger) Debug(format string, args ...interface{}) { l.Entry.Debugf(format, args...) }

// Trace logs at logrus trace level.
func (l *LogrusLogger) Trace(format string, args ...interface{}) { l.Entry.Tracef(format, args...) }
