package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Logger wraps zerolog.Logger with convenience methods matching the
// key-value calling convention used throughout this module: every method
// takes a message followed by alternating string keys and values.
type Logger struct {
	zl     zerolog.Logger
	fields map[string]interface{}
}

var global *Logger

func init() {
	global = NewDevelopment()
}

// NewProduction creates a production logger with JSON output at info level.
func NewProduction() *Logger {
	zl := zerolog.New(os.Stdout).
		Level(zerolog.InfoLevel).
		With().
		Timestamp().
		Logger()

	return &Logger{zl: zl, fields: make(map[string]interface{})}
}

// NewDevelopment creates a development logger with pretty console output
// at debug level.
func NewDevelopment() *Logger {
	output := zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: time.RFC3339,
	}

	zl := zerolog.New(output).
		Level(zerolog.DebugLevel).
		With().
		Timestamp().
		Logger()

	return &Logger{zl: zl, fields: make(map[string]interface{})}
}

// NewWithWriter creates a logger writing to an arbitrary writer, used by
// tests that want to inspect log output.
func NewWithWriter(w io.Writer, level zerolog.Level) *Logger {
	zl := zerolog.New(w).
		Level(level).
		With().
		Timestamp().
		Logger()

	return &Logger{zl: zl, fields: make(map[string]interface{})}
}

// SetGlobal replaces the package-level logger.
func SetGlobal(l *Logger) { global = l }

// Global returns the package-level logger.
func Global() *Logger { return global }

func (l *Logger) applyStoredFields(e *zerolog.Event) {
	for k, v := range l.fields {
		e.Interface(k, v)
	}
}

func (l *Logger) applyPairs(e *zerolog.Event, fields []interface{}) {
	l.applyStoredFields(e)
	for i := 0; i+1 < len(fields); i += 2 {
		key, _ := fields[i].(string)
		value := fields[i+1]
		if key == "error" {
			if err, ok := value.(error); ok {
				e.Str("error", err.Error())
				continue
			}
		}
		e.Interface(key, value)
	}
}

func (l *Logger) Debug(msg string, fields ...interface{}) {
	e := l.zl.Debug()
	l.applyPairs(e, fields)
	e.Msg(msg)
}

func (l *Logger) Info(msg string, fields ...interface{}) {
	e := l.zl.Info()
	l.applyPairs(e, fields)
	e.Msg(msg)
}

func (l *Logger) Warn(msg string, fields ...interface{}) {
	e := l.zl.Warn()
	l.applyPairs(e, fields)
	e.Msg(msg)
}

func (l *Logger) Error(msg string, fields ...interface{}) {
	e := l.zl.Error()
	l.applyPairs(e, fields)
	e.Msg(msg)
}

// Fatal logs at fatal level and exits the process.
func (l *Logger) Fatal(msg string, fields ...interface{}) {
	e := l.zl.Fatal()
	l.applyPairs(e, fields)
	e.Msg(msg)
}

func (l *Logger) Panic(msg string, fields ...interface{}) {
	e := l.zl.Panic()
	l.applyPairs(e, fields)
	e.Msg(msg)
}

// With returns a child logger carrying additional fields on every
// subsequent call.
func (l *Logger) With(fields ...interface{}) *Logger {
	newFields := make(map[string]interface{}, len(l.fields)+len(fields)/2)
	for k, v := range l.fields {
		newFields[k] = v
	}
	for i := 0; i+1 < len(fields); i += 2 {
		key, _ := fields[i].(string)
		newFields[key] = fields[i+1]
	}
	return &Logger{zl: l.zl, fields: newFields}
}

// Sync is a no-op; zerolog writes synchronously.
func (l *Logger) Sync() error { return nil }

func Debug(msg string, fields ...interface{}) { global.Debug(msg, fields...) }
func Info(msg string, fields ...interface{})  { global.Info(msg, fields...) }
func Warn(msg string, fields ...interface{})  { global.Warn(msg, fields...) }
func Error(msg string, fields ...interface{}) { global.Error(msg, fields...) }
func Fatal(msg string, fields ...interface{}) { global.Fatal(msg, fields...) }
func With(fields ...interface{}) *Logger       { return global.With(fields...) }
func Sync() error                              { return global.Sync() }
