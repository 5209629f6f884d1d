// Basic logging infrastructure shared by all the verbs.
//
// Everything logs through the package-level Log.  By default messages at warning level and up go to
// stderr; the daemon additionally installs a syslog backend via StartSyslog, and -v lowers the
// level to include progress information.

package common

import (
	"fmt"
	"io"
	"log/syslog"
	"os"
	"sync"
)

// LogLevel indicates the level of logging that should be done.

type LogLevel int

const (
	LogLevelDebug LogLevel = iota
	LogLevelInfo
	LogLevelWarning
	LogLevelError
	LogLevelCritical
)

// Implementations of this must be thread-safe.
type Logger interface {
	// Print only messages at level l or above
	SetLevel(l LogLevel)

	// Lower log level at least to l
	LowerLevelTo(l LogLevel)

	// Print on this stream, if installed
	SetStderr(w io.Writer)

	// Print on this underlying (simpler) logger, if installed - often syslog.
	SetUnderlying(w UnderlyingLogger)

	// Print at various levels.  None of these exit or panic, the name indicates the log level
	// only.
	Debug(xs ...any)
	Debugf(format string, args ...any)

	Info(xs ...any)
	Infof(format string, args ...any)

	Warning(xs ...any)
	Warningf(format string, args ...any)

	Error(xs ...any)
	Errorf(format string, args ...any)

	Critical(xs ...any)
	Criticalf(format string, args ...any)
}

// Typically the underlying logger is a syslog thing, and it has a simpler interface.  In
// particular, log/syslog implements UnderlyingLogger.  An underlying logger must be thread-safe.
type UnderlyingLogger interface {
	Debug(m string) error
	Info(m string) error
	Warning(m string) error
	Err(m string) error
	Crit(m string) error
}

type StandardLogger struct {
	sync.Mutex
	level      LogLevel
	stderr     io.Writer
	underlying UnderlyingLogger
}

// MT: Constant after initialization, thread-safe.
var Log Logger = &StandardLogger{
	level:  LogLevelWarning,
	stderr: os.Stderr,
}

// StartSyslog connects Log to the local syslog daemon under the given tag.  The priority (INFO) is
// a placeholder, it is overridden by the individual logger methods.
func StartSyslog(logTag string) error {
	logger, err := syslog.Dial("", "", syslog.LOG_INFO|syslog.LOG_USER, logTag)
	if err != nil {
		return fmt.Errorf("While opening syslog: %w", err)
	}
	Log.SetUnderlying(logger)
	return nil
}

func (sl *StandardLogger) SetLevel(l LogLevel) {
	sl.Lock()
	defer sl.Unlock()

	sl.level = l
}

func (sl *StandardLogger) LowerLevelTo(l LogLevel) {
	sl.Lock()
	defer sl.Unlock()

	if sl.level > l {
		sl.level = l
	}
}

func (sl *StandardLogger) SetStderr(stderr io.Writer) {
	sl.Lock()
	defer sl.Unlock()

	sl.stderr = stderr
}

func (sl *StandardLogger) SetUnderlying(underlying UnderlyingLogger) {
	sl.Lock()
	defer sl.Unlock()

	sl.underlying = underlying
}

func (sl *StandardLogger) Critical(xs ...any) {
	sl.emit(LogLevelCritical, fmt.Sprint(xs...))
}

func (sl *StandardLogger) Criticalf(format string, args ...any) {
	sl.emit(LogLevelCritical, fmt.Sprintf(format, args...))
}

func (sl *StandardLogger) Error(xs ...any) {
	sl.emit(LogLevelError, fmt.Sprint(xs...))
}

func (sl *StandardLogger) Errorf(format string, args ...any) {
	sl.emit(LogLevelError, fmt.Sprintf(format, args...))
}

func (sl *StandardLogger) Warning(xs ...any) {
	sl.emit(LogLevelWarning, fmt.Sprint(xs...))
}

func (sl *StandardLogger) Warningf(format string, args ...any) {
	sl.emit(LogLevelWarning, fmt.Sprintf(format, args...))
}

func (sl *StandardLogger) Info(xs ...any) {
	sl.emit(LogLevelInfo, fmt.Sprint(xs...))
}

func (sl *StandardLogger) Infof(format string, args ...any) {
	sl.emit(LogLevelInfo, fmt.Sprintf(format, args...))
}

func (sl *StandardLogger) Debug(xs ...any) {
	sl.emit(LogLevelDebug, fmt.Sprint(xs...))
}

func (sl *StandardLogger) Debugf(format string, args ...any) {
	sl.emit(LogLevelDebug, fmt.Sprintf(format, args...))
}

func (sl *StandardLogger) emit(level LogLevel, s string) {
	sl.Lock()
	defer sl.Unlock()

	if level < sl.level {
		return
	}
	if sl.stderr != nil {
		fmt.Fprintln(sl.stderr, s)
	}
	if sl.underlying != nil {
		switch level {
		case LogLevelCritical:
			sl.underlying.Crit(s)
		case LogLevelError:
			sl.underlying.Err(s)
		case LogLevelWarning:
			sl.underlying.Warning(s)
		case LogLevelInfo:
			sl.underlying.Info(s)
		default:
			sl.underlying.Debug(s)
		}
	}
}
