// logging.go - structured logging interface for the alarm package.
//
// A small Logger interface is kept independent of any one backend, plus a
// package-level default; the concrete backend wired in here is zerolog
// rather than a hand-rolled stdlib writer.
package alarm

import (
	"sync"

	"github.com/rs/zerolog"
)

// LogLevel is the severity of a LogEntry.
type LogLevel int32

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l LogLevel) zerolog() zerolog.Level {
	switch l {
	case LevelDebug:
		return zerolog.DebugLevel
	case LevelInfo:
		return zerolog.InfoLevel
	case LevelWarn:
		return zerolog.WarnLevel
	case LevelError:
		return zerolog.ErrorLevel
	default:
		return zerolog.NoLevel
	}
}

// LogEntry is a structured log record. Category identifies which
// component emitted it: "pending", "wake", "dispatch", "queue", "api".
type LogEntry struct {
	Level    LogLevel
	Category string
	Message  string
	Err      error
	Context  map[string]any
}

// Logger is the structured logging interface the alarm package depends
// on. Implementations must tolerate a nil or zero-value receiver's
// methods being called (IsEnabled in particular) without panicking.
type Logger interface {
	Log(entry LogEntry)
	IsEnabled(level LogLevel) bool
}

// NewNoopLogger returns a Logger that discards everything, with no
// per-call allocation.
func NewNoopLogger() Logger { return noopLogger{} }

type noopLogger struct{}

func (noopLogger) Log(LogEntry)            {}
func (noopLogger) IsEnabled(LogLevel) bool { return false }

// NewZerologLogger adapts a zerolog.Logger to the Logger interface.
func NewZerologLogger(zl zerolog.Logger) Logger {
	return &zerologAdapter{zl: zl}
}

type zerologAdapter struct {
	zl zerolog.Logger
}

func (a *zerologAdapter) IsEnabled(level LogLevel) bool {
	return a.zl.GetLevel() <= level.zerolog()
}

func (a *zerologAdapter) Log(entry LogEntry) {
	ev := a.zl.WithLevel(entry.Level.zerolog())
	if entry.Category != "" {
		ev = ev.Str("category", entry.Category)
	}
	if entry.Err != nil {
		ev = ev.Err(entry.Err)
	}
	for k, v := range entry.Context {
		ev = ev.Interface(k, v)
	}
	ev.Msg(entry.Message)
}

var (
	globalLoggerMu sync.RWMutex
	globalLogger   Logger = NewNoopLogger()
)

// SetStructuredLogger sets the package-level default logger used by
// components constructed via New without an explicit WithLogger option.
func SetStructuredLogger(logger Logger) {
	if logger == nil {
		logger = NewNoopLogger()
	}
	globalLoggerMu.Lock()
	globalLogger = logger
	globalLoggerMu.Unlock()
}

func getGlobalLogger() Logger {
	globalLoggerMu.RLock()
	defer globalLoggerMu.RUnlock()
	return globalLogger
}
