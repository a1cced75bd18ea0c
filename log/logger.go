package log

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"log/syslog"
	"math"
	"os"
	"runtime"
	"sync"
	"sync/atomic"
	"time"
)

const (
	levelMaxVerbosity slog.Level = math.MinInt
	LevelTrace        slog.Level = -8
	LevelDebug                   = slog.LevelDebug
	LevelInfo                    = slog.LevelInfo
	LevelWarn                    = slog.LevelWarn
	LevelError                   = slog.LevelError
	LevelCrit         slog.Level = 12
)

// LevelAlignedString returns a 5-character string containing the name of a Lvl.
func LevelAlignedString(l slog.Level) string {
	switch l {
	case LevelTrace:
		return "TRACE"
	case slog.LevelDebug:
		return "DEBUG"
	case slog.LevelInfo:
		return "INFO "
	case slog.LevelWarn:
		return "WARN "
	case slog.LevelError:
		return "ERROR"
	case LevelCrit:
		return "CRIT "
	default:
		return "unknown level"
	}
}

func LevelString(l slog.Level) string {
	switch l {
	case LevelTrace:
		return "trace"
	case slog.LevelDebug:
		return "debug"
	case slog.LevelInfo:
		return "info"
	case slog.LevelWarn:
		return "warn"
	case slog.LevelError:
		return "error"
	case LevelCrit:
		return "crit"
	default:
		return "unknown"
	}
}

// Logger writes key/value pairs to a Handler
type Logger interface {
	// With returns a new Logger that has this logger's attributes plus the given attributes
	With(ctx ...interface{}) Logger

	// Log logs a message at the specified level with context key/value pairs
	Log(level slog.Level, module string, msg string, ctx ...interface{})

	Trace(module string, msg string, ctx ...interface{})
	Debug(module string, msg string, ctx ...interface{})
	Info(module string, msg string, ctx ...interface{})
	Warn(module string, msg string, ctx ...interface{})
	Error(module string, msg string, ctx ...interface{})

	// Crit logs a message at the crit level with context key/value pairs, and exits
	Crit(module string, msg string, ctx ...interface{})

	// Write logs a message at the specified level
	Write(level slog.Level, module string, msg string, attrs ...any)

	// Enabled reports whether l emits log records at the given context and level.
	Enabled(ctx context.Context, level slog.Level) bool

	// Handler returns the underlying handler of the inner logger.
	Handler() slog.Handler

	// RecordLogs starts keeping every written record in memory.
	RecordLogs()

	// GetRecordedLogs returns the kept records as a JSON array.
	GetRecordedLogs() ([]byte, error)
}

// Record is the in-memory form of a log line kept while recording.
type Record struct {
	Time   time.Time         `json:"time"`
	Level  string            `json:"level"`
	Module string            `json:"module"`
	Msg    string            `json:"msg"`
	Attrs  map[string]string `json:"attrs,omitempty"`
}

type recorder struct {
	mu      sync.Mutex
	records []Record
}

type logger struct {
	inner    *slog.Logger
	writer   *syslog.Writer
	recorder *atomic.Pointer[recorder] // shared with loggers derived by With
}

// NewLogger returns a logger with the specified handler set
func NewLogger(h slog.Handler) Logger {
	return &logger{inner: slog.New(h), recorder: new(atomic.Pointer[recorder])}
}

// NewLoggerWithSyslog returns a logger that also forwards every record to
// the syslog daemon at addr (tcp).
func NewLoggerWithSyslog(h slog.Handler, addr string) (Logger, error) {
	writer, err := syslog.Dial("tcp", addr, syslog.LOG_INFO, "avacore")
	if err != nil {
		return nil, fmt.Errorf("syslog dial %s: %w", addr, err)
	}
	return &logger{inner: slog.New(h), writer: writer, recorder: new(atomic.Pointer[recorder])}, nil
}

func (l *logger) Handler() slog.Handler {
	return l.inner.Handler()
}

// Write logs a message at the specified level.
func (l *logger) Write(level slog.Level, module string, msg string, attrs ...any) {
	rc := l.recorder.Load()
	if rc == nil && !l.inner.Enabled(context.Background(), level) {
		return
	}

	var pcs [1]uintptr
	runtime.Callers(3, pcs[:])
	r := slog.NewRecord(time.Now(), level, msg, pcs[0])
	r.Add(attrs...)

	if rc != nil {
		rc.add(r, module)
	}
	if !l.inner.Enabled(context.Background(), level) {
		return
	}

	if l.writer != nil {
		str := fmt.Sprintf("%s|%s|%s|%s\n", LevelAlignedString(r.Level), module, r.Message, attrs)
		switch r.Level {
		case LevelCrit:
			l.writer.Crit(str)
		case slog.LevelError:
			l.writer.Err(str)
		case slog.LevelWarn:
			l.writer.Warning(str)
		case slog.LevelInfo:
			l.writer.Info(str)
		default:
			l.writer.Debug(str)
		}
	}
	l.inner.Handler().Handle(context.Background(), r)
}

func (l *logger) Log(level slog.Level, module string, msg string, attrs ...any) {
	l.Write(level, module, msg, attrs...)
}

func (l *logger) With(ctx ...interface{}) Logger {
	return &logger{inner: l.inner.With(ctx...), writer: l.writer, recorder: l.recorder}
}

// Enabled reports whether l emits log records at the given context and level.
func (l *logger) Enabled(ctx context.Context, level slog.Level) bool {
	return l.inner.Enabled(ctx, level)
}

func (l *logger) Trace(module string, msg string, ctx ...interface{}) {
	l.Write(LevelTrace, module, msg, ctx...)
}

func (l *logger) Debug(module string, msg string, ctx ...interface{}) {
	l.Write(slog.LevelDebug, module, msg, ctx...)
}

func (l *logger) Info(module string, msg string, ctx ...interface{}) {
	l.Write(slog.LevelInfo, module, msg, ctx...)
}

func (l *logger) Warn(module string, msg string, ctx ...any) {
	l.Write(slog.LevelWarn, module, msg, ctx...)
}

func (l *logger) Error(module string, msg string, ctx ...interface{}) {
	l.Write(slog.LevelError, module, msg, ctx...)
}

func (l *logger) Crit(module string, msg string, ctx ...interface{}) {
	l.Write(LevelCrit, module, msg, ctx...)
	os.Exit(1)
}

func (l *logger) RecordLogs() {
	l.recorder.CompareAndSwap(nil, &recorder{})
}

func (l *logger) GetRecordedLogs() ([]byte, error) {
	rc := l.recorder.Load()
	if rc == nil {
		return []byte("[]"), nil
	}
	rc.mu.Lock()
	defer rc.mu.Unlock()
	if rc.records == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(rc.records)
}

func (rc *recorder) add(r slog.Record, module string) {
	rec := Record{
		Time:   r.Time,
		Level:  LevelString(r.Level),
		Module: module,
		Msg:    r.Message,
	}
	if r.NumAttrs() > 0 {
		rec.Attrs = make(map[string]string, r.NumAttrs())
		r.Attrs(func(a slog.Attr) bool {
			rec.Attrs[a.Key] = a.Value.String()
			return true
		})
	}
	rc.mu.Lock()
	rc.records = append(rc.records, rec)
	rc.mu.Unlock()
}
