// Package logging defines the structured logging contract used across the
// grading platform and its zap-backed implementation. Components depend on
// the Logger interface, never on zap directly; only this package imports
// go.uber.org/zap.
package logging

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Field is a typed key-value pair attached to a log entry.
type Field struct {
	Key   string
	Value interface{}
}

// String returns a string-valued field.
func String(key, val string) Field { return Field{Key: key, Value: val} }

// Int returns an int-valued field.
func Int(key string, val int) Field { return Field{Key: key, Value: val} }

// Int64 returns an int64-valued field.
func Int64(key string, val int64) Field { return Field{Key: key, Value: val} }

// Float64 returns a float64-valued field.
func Float64(key string, val float64) Field { return Field{Key: key, Value: val} }

// Bool returns a bool-valued field.
func Bool(key string, val bool) Field { return Field{Key: key, Value: val} }

// Duration returns a time.Duration-valued field.
func Duration(key string, val time.Duration) Field { return Field{Key: key, Value: val} }

// Any returns a field holding an arbitrary value. Prefer the typed
// constructors; Any falls back to reflection-based encoding.
func Any(key string, val interface{}) Field { return Field{Key: key, Value: val} }

// Err returns a field carrying err under the canonical "error" key.
func Err(err error) Field {
	if err == nil {
		return Field{Key: "error", Value: "<nil>"}
	}
	return Field{Key: "error", Value: err.Error()}
}

// Logger is the logging contract injected into every component. With and
// Named return child loggers and leave the receiver untouched. Fatal logs
// and then exits the process; it belongs in main, not in request paths.
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
	Fatal(msg string, fields ...Field)
	With(fields ...Field) Logger
	Named(name string) Logger
}

// LogConfig holds the construction parameters for NewLogger. Zero values
// select the production defaults: info level, JSON encoding, stdout.
type LogConfig struct {
	// Level is the minimum severity emitted: debug, info, warn or error.
	Level string `yaml:"level" json:"level"`

	// Format is "json" for aggregation pipelines or "console" for
	// human-readable local output.
	Format string `yaml:"format" json:"format"`

	// OutputPaths lists sinks for log entries; "stdout" and "stderr" are
	// recognized alongside file paths.
	OutputPaths []string `yaml:"output_paths" json:"output_paths"`

	// ErrorOutputPaths lists sinks for zap's own internal errors.
	ErrorOutputPaths []string `yaml:"error_output_paths" json:"error_output_paths"`
}

type zapLogger struct {
	z *zap.Logger
}

func fieldsToZap(fields []Field) []zap.Field {
	zs := make([]zap.Field, 0, len(fields))
	for _, f := range fields {
		switch v := f.Value.(type) {
		case string:
			zs = append(zs, zap.String(f.Key, v))
		case int:
			zs = append(zs, zap.Int(f.Key, v))
		case int64:
			zs = append(zs, zap.Int64(f.Key, v))
		case float64:
			zs = append(zs, zap.Float64(f.Key, v))
		case bool:
			zs = append(zs, zap.Bool(f.Key, v))
		case time.Duration:
			zs = append(zs, zap.Duration(f.Key, v))
		case error:
			zs = append(zs, zap.NamedError(f.Key, v))
		default:
			zs = append(zs, zap.Any(f.Key, v))
		}
	}
	return zs
}

func (l *zapLogger) Debug(msg string, fields ...Field) { l.z.Debug(msg, fieldsToZap(fields)...) }
func (l *zapLogger) Info(msg string, fields ...Field)  { l.z.Info(msg, fieldsToZap(fields)...) }
func (l *zapLogger) Warn(msg string, fields ...Field)  { l.z.Warn(msg, fieldsToZap(fields)...) }
func (l *zapLogger) Error(msg string, fields ...Field) { l.z.Error(msg, fieldsToZap(fields)...) }
func (l *zapLogger) Fatal(msg string, fields ...Field) { l.z.Fatal(msg, fieldsToZap(fields)...) }

func (l *zapLogger) With(fields ...Field) Logger {
	return &zapLogger{z: l.z.With(fieldsToZap(fields)...)}
}

func (l *zapLogger) Named(name string) Logger {
	return &zapLogger{z: l.z.Named(name)}
}

// parseLevel maps a config string to a zap level. Unknown values fall back
// to info so a typo in config never silences the logger.
func parseLevel(s string) zapcore.Level {
	switch strings.ToLower(s) {
	case "debug":
		return zapcore.DebugLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// NewLogger builds a zap-backed Logger from cfg, applying defaults for any
// unset field. It fails only when an output path cannot be opened.
func NewLogger(cfg LogConfig) (Logger, error) {
	if len(cfg.OutputPaths) == 0 {
		cfg.OutputPaths = []string{"stdout"}
	}
	if len(cfg.ErrorOutputPaths) == 0 {
		cfg.ErrorOutputPaths = []string{"stderr"}
	}

	console := cfg.Format == "console"

	var encCfg zapcore.EncoderConfig
	if console {
		encCfg = zap.NewDevelopmentEncoderConfig()
	} else {
		encCfg = zap.NewProductionEncoderConfig()
	}
	encCfg.TimeKey = "ts"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	encoding := "json"
	if console {
		encoding = "console"
	}

	z, err := zap.Config{
		Level:            zap.NewAtomicLevelAt(parseLevel(cfg.Level)),
		Development:      console,
		Encoding:         encoding,
		EncoderConfig:    encCfg,
		OutputPaths:      cfg.OutputPaths,
		ErrorOutputPaths: cfg.ErrorOutputPaths,
	}.Build(zap.AddCallerSkip(1))
	if err != nil {
		return nil, fmt.Errorf("logging: build zap logger: %w", err)
	}
	return &zapLogger{z: z}, nil
}

// NewLoggerFromCore wraps an existing zapcore.Core. Tests use this with
// zaptest/observer to assert on emitted entries.
func NewLoggerFromCore(core zapcore.Core) Logger {
	return &zapLogger{z: zap.New(core, zap.AddCallerSkip(1))}
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...Field) {}
func (nopLogger) Info(string, ...Field)  {}
func (nopLogger) Warn(string, ...Field)  {}
func (nopLogger) Error(string, ...Field) {}
func (nopLogger) Fatal(string, ...Field) {}

func (n nopLogger) With(...Field) Logger { return n }
func (n nopLogger) Named(string) Logger  { return n }

// NewNopLogger returns a Logger that discards everything. Intended for
// tests and benchmarks.
func NewNopLogger() Logger { return nopLogger{} }

var (
	defaultMu sync.RWMutex
	// nop until main installs the real logger.
	defaultLogger Logger = nopLogger{}
)

// SetDefault installs the process-wide default Logger. Call once during
// startup, before any goroutine reads Default().
func SetDefault(l Logger) {
	if l == nil {
		return
	}
	defaultMu.Lock()
	defaultLogger = l
	defaultMu.Unlock()
}

// Default returns the process-wide default Logger. Constructor injection is
// preferred; Default exists for code with no injection point.
func Default() Logger {
	defaultMu.RLock()
	l := defaultLogger
	defaultMu.RUnlock()
	return l
}
