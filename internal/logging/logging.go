// Package logging provides structured logging for sqlgate.
package logging

import (
	"io"
	"os"
	"sort"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Level represents a log level.
type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// Logger provides structured logging with map-style fields.
type Logger struct {
	z *zap.Logger
}

// Options controls logger construction.
type Options struct {
	Level  Level
	Format string // console or json
	Output io.Writer
}

// New creates a logger writing to opts.Output (stderr when nil).
func New(opts Options) *Logger {
	out := opts.Output
	if out == nil {
		out = os.Stderr
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "timestamp"
	encCfg.MessageKey = "message"
	encCfg.EncodeTime = zapcore.RFC3339NanoTimeEncoder

	var enc zapcore.Encoder
	if opts.Format == "json" {
		enc = zapcore.NewJSONEncoder(encCfg)
	} else {
		encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
		enc = zapcore.NewConsoleEncoder(encCfg)
	}

	core := zapcore.NewCore(enc, zapcore.AddSync(out), zapLevel(opts.Level))
	return &Logger{z: zap.New(core)}
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	return &Logger{z: zap.NewNop()}
}

func zapLevel(l Level) zapcore.Level {
	switch l {
	case LevelDebug:
		return zapcore.DebugLevel
	case LevelWarn:
		return zapcore.WarnLevel
	case LevelError:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// WithFields returns a new logger with additional fields.
func (l *Logger) WithFields(fields map[string]any) *Logger {
	return &Logger{z: l.z.With(toZap(fields)...)}
}

// Debug logs a debug message.
func (l *Logger) Debug(msg string, fields ...map[string]any) {
	l.z.Debug(msg, toZap(fields...)...)
}

// Info logs an info message.
func (l *Logger) Info(msg string, fields ...map[string]any) {
	l.z.Info(msg, toZap(fields...)...)
}

// Warn logs a warning message.
func (l *Logger) Warn(msg string, fields ...map[string]any) {
	l.z.Warn(msg, toZap(fields...)...)
}

// Error logs an error message.
func (l *Logger) Error(msg string, fields ...map[string]any) {
	l.z.Error(msg, toZap(fields...)...)
}

// ErrorErr logs an error message with an error value.
func (l *Logger) ErrorErr(msg string, err error, fields ...map[string]any) {
	l.z.Error(msg, append(toZap(fields...), zap.Error(err))...)
}

// Sync flushes buffered entries.
func (l *Logger) Sync() error {
	return l.z.Sync()
}

// toZap flattens field maps in key order so output is stable.
func toZap(fields ...map[string]any) []zap.Field {
	var keys []string
	merged := make(map[string]any)
	for _, f := range fields {
		for k, v := range f {
			if _, seen := merged[k]; !seen {
				keys = append(keys, k)
			}
			merged[k] = v
		}
	}
	sort.Strings(keys)
	out := make([]zap.Field, 0, len(keys))
	for _, k := range keys {
		out = append(out, zap.Any(k, merged[k]))
	}
	return out
}

var (
	globalMu sync.RWMutex
	global   = New(Options{Level: LevelInfo})
)

// SetGlobal sets the global logger.
func SetGlobal(l *Logger) {
	globalMu.Lock()
	defer globalMu.Unlock()
	global = l
}

// Global returns the global logger.
func Global() *Logger {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return global
}

// Info logs to the global logger.
func Info(msg string, fields ...map[string]any) {
	Global().Info(msg, fields...)
}

// Warn logs to the global logger.
func Warn(msg string, fields ...map[string]any) {
	Global().Warn(msg, fields...)
}

// ErrorErr logs to the global logger with an error.
func ErrorErr(msg string, err error, fields ...map[string]any) {
	Global().ErrorErr(msg, err, fields...)
}
