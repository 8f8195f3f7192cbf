// Package logging defines the structured logging contract used across the
// evaluation service and a zap-backed implementation of it. Components take a
// Logger through their constructors; only this package imports go.uber.org/zap
// directly, so encoder and sink choices stay in one place.
//
// Startup wiring (cmd/apiserver, cli serve): load configuration, build the
// logger with NewLogger, register it via SetDefault, then construct everything
// else with the instance injected.
package logging

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is the logging contract injected into every component. Tests pass
// NewNopLogger or a buffer-backed logger from NewLoggerFromCore.
type Logger interface {
	// Debug records high-volume diagnostic detail, normally filtered out in
	// production by running at "info" or above.
	Debug(msg string, fields ...Field)

	// Info records routine operational events.
	Info(msg string, fields ...Field)

	// Warn records recoverable conditions worth surfacing, such as a slow
	// request or a degraded benchmark match.
	Warn(msg string, fields ...Field)

	// Error records a failure scoped to one request or operation.
	Error(msg string, fields ...Field)

	// Fatal records the message and exits the process. Startup-only; must not
	// appear on any request path.
	Fatal(msg string, fields ...Field)

	// With returns a child logger that attaches the given fields to every
	// entry it emits. The receiver is unchanged.
	With(fields ...Field) Logger

	// Named returns a child logger with name joined onto the receiver's name
	// ("app" becomes "app.http").
	Named(name string) Logger
}

// Field is one structured key/value attached to a log entry. A small concrete
// struct keeps call sites explicit and lets the zap adapter pick typed
// encoders without reflection for the common cases.
type Field struct {
	Key   string
	Value interface{}
}

// String builds a string-valued Field.
func String(key, val string) Field { return Field{Key: key, Value: val} }

// Int builds an int-valued Field.
func Int(key string, val int) Field { return Field{Key: key, Value: val} }

// Int64 builds an int64-valued Field.
func Int64(key string, val int64) Field { return Field{Key: key, Value: val} }

// Float64 builds a float64-valued Field.
func Float64(key string, val float64) Field { return Field{Key: key, Value: val} }

// Bool builds a bool-valued Field.
func Bool(key string, val bool) Field { return Field{Key: key, Value: val} }

// Duration builds a time.Duration-valued Field.
func Duration(key string, val time.Duration) Field { return Field{Key: key, Value: val} }

// Any builds a Field from an arbitrary value. Prefer the typed constructors;
// this one ends up in zap.Any.
func Any(key string, val interface{}) Field { return Field{Key: key, Value: val} }

// Err builds a Field under the canonical "error" key. A nil error is rendered
// as the string "<nil>" so the key is always present.
func Err(err error) Field {
	if err == nil {
		return Field{Key: "error", Value: "<nil>"}
	}
	return Field{Key: "error", Value: err.Error()}
}

// LogConfig carries the parameters NewLogger needs. It is populated from the
// log section of the service configuration.
type LogConfig struct {
	// Level is the minimum severity to emit: "debug", "info", "warn" or
	// "error". Empty or unknown values fall back to "info".
	Level string `yaml:"level" json:"level"`

	// Format selects the encoding: "json" for aggregation pipelines or
	// "console" for local development. Anything else means "json".
	Format string `yaml:"format" json:"format"`

	// OutputPaths lists sinks for log entries. "stdout" and "stderr" are
	// recognised; other entries are treated as file paths. Nil means
	// ["stdout"].
	OutputPaths []string `yaml:"output_paths" json:"output_paths"`

	// ErrorOutputPaths lists sinks for zap's own failures, such as a write
	// error on a primary sink. Nil means ["stderr"].
	ErrorOutputPaths []string `yaml:"error_output_paths" json:"error_output_paths"`
}

func levelFromString(s string) zapcore.Level {
	switch s {
	case "debug", "DEBUG":
		return zapcore.DebugLevel
	case "warn", "WARN":
		return zapcore.WarnLevel
	case "error", "ERROR":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// NewLogger builds a zap-backed Logger from cfg, applying the defaults
// documented on LogConfig. It fails only when zap cannot open one of the
// configured sinks.
func NewLogger(cfg LogConfig) (Logger, error) {
	outputs := cfg.OutputPaths
	if len(outputs) == 0 {
		outputs = []string{"stdout"}
	}
	errOutputs := cfg.ErrorOutputPaths
	if len(errOutputs) == 0 {
		errOutputs = []string{"stderr"}
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

	zapCfg := zap.Config{
		Level:            zap.NewAtomicLevelAt(levelFromString(cfg.Level)),
		Development:      console,
		Encoding:         encoding,
		EncoderConfig:    encCfg,
		OutputPaths:      outputs,
		ErrorOutputPaths: errOutputs,
	}

	z, err := zapCfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		return nil, fmt.Errorf("logging: build zap logger: %w", err)
	}
	return &zapLogger{z: z}, nil
}

// NewLoggerFromCore wraps an existing zapcore.Core. Tests use it with an
// in-memory buffer to assert on emitted entries.
func NewLoggerFromCore(core zapcore.Core) Logger {
	return &zapLogger{z: zap.New(core, zap.AddCallerSkip(1))}
}

// zapLogger adapts a *zap.Logger (unsugared) to the Logger interface.
type zapLogger struct {
	z *zap.Logger
}

func (l *zapLogger) Debug(msg string, fields ...Field) { l.z.Debug(msg, zapFields(fields)...) }
func (l *zapLogger) Info(msg string, fields ...Field)  { l.z.Info(msg, zapFields(fields)...) }
func (l *zapLogger) Warn(msg string, fields ...Field)  { l.z.Warn(msg, zapFields(fields)...) }
func (l *zapLogger) Error(msg string, fields ...Field) { l.z.Error(msg, zapFields(fields)...) }
func (l *zapLogger) Fatal(msg string, fields ...Field) { l.z.Fatal(msg, zapFields(fields)...) }

func (l *zapLogger) With(fields ...Field) Logger {
	return &zapLogger{z: l.z.With(zapFields(fields)...)}
}

func (l *zapLogger) Named(name string) Logger {
	return &zapLogger{z: l.z.Named(name)}
}

// zapFields maps Field values onto typed zap encoders where the dynamic type
// is one of the common kinds, with zap.Any as the catch-all.
func zapFields(fields []Field) []zap.Field {
	out := make([]zap.Field, 0, len(fields))
	for _, f := range fields {
		switch v := f.Value.(type) {
		case string:
			out = append(out, zap.String(f.Key, v))
		case int:
			out = append(out, zap.Int(f.Key, v))
		case int64:
			out = append(out, zap.Int64(f.Key, v))
		case float64:
			out = append(out, zap.Float64(f.Key, v))
		case bool:
			out = append(out, zap.Bool(f.Key, v))
		case time.Duration:
			out = append(out, zap.Duration(f.Key, v))
		case error:
			out = append(out, zap.NamedError(f.Key, v))
		default:
			out = append(out, zap.Any(f.Key, v))
		}
	}
	return out
}

// nopLogger discards everything. It keeps tests quiet and backs the default
// logger until SetDefault runs.
type nopLogger struct{}

func (nopLogger) Debug(string, ...Field) {}
func (nopLogger) Info(string, ...Field)  {}
func (nopLogger) Warn(string, ...Field)  {}
func (nopLogger) Error(string, ...Field) {}
func (nopLogger) Fatal(string, ...Field) {}

func (n nopLogger) With(...Field) Logger { return n }
func (n nopLogger) Named(string) Logger  { return n }

// NewNopLogger returns a Logger that drops every entry.
func NewNopLogger() Logger { return nopLogger{} }

var (
	defaultMu     sync.RWMutex
	defaultLogger Logger = nopLogger{}
)

// SetDefault installs the process-wide default Logger. Call it once during
// startup, before goroutines that read Default are running. A nil argument is
// ignored.
func SetDefault(l Logger) {
	if l == nil {
		return
	}
	defaultMu.Lock()
	defaultLogger = l
	defaultMu.Unlock()
}

// Default returns the process-wide default Logger. It exists for the few
// places that cannot take an injected instance; constructor injection is the
// norm.
func Default() Logger {
	defaultMu.RLock()
	l := defaultLogger
	defaultMu.RUnlock()
	return l
}
