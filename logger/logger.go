package logger

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync/atomic"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
)

const (
	FormatPretty  = "pretty"
	FormatConsole = "console"
	FormatJSON    = "json"

	serviceName = "vaultkit"
)

// Logger is a zerolog logger bound to a service name. Values logged under
// FieldToken are masked with RedactToken.
type Logger struct {
	zl      zerolog.Logger
	service string
}

// Init replaces the global logger with one built from cfg.
func Init(cfg Config) {
	cfg.ApplyDefaults()
	SetGlobalLogger(New(&cfg, serviceName))
}

// New creates a logger writing to cfg.Output ("stdout" or "stderr").
func New(cfg *Config, service string) *Logger {
	w := io.Writer(os.Stderr)
	if strings.EqualFold(cfg.Output, "stdout") {
		w = os.Stdout
	}
	return NewWithWriter(cfg, service, w)
}

// NewWithWriter creates a logger writing to w. An unknown level falls back
// to info.
func NewWithWriter(cfg *Config, service string, w io.Writer) *Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}
	if f := strings.ToLower(cfg.Format); f == FormatConsole || f == FormatPretty {
		w = consoleWriter(w, cfg.NoColor)
	}

	zc := zerolog.New(w).Level(level).With()
	if cfg.Timestamp {
		zc = zc.Timestamp()
	}
	if cfg.Caller {
		zc = zc.Caller()
	}
	if service != "" {
		zc = zc.Str("service", service)
	}
	return &Logger{zl: zc.Logger(), service: service}
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	return &Logger{zl: zerolog.Nop()}
}

func (l *Logger) derive(zc zerolog.Context) *Logger {
	return &Logger{zl: zc.Logger(), service: l.service}
}

// WithContext tags the logger with the trace and span of the span active in
// ctx. Without one it returns l unchanged.
func (l *Logger) WithContext(ctx context.Context) *Logger {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return l
	}
	return l.derive(l.zl.With().
		Str(FieldTraceID, sc.TraceID().String()).
		Str(FieldSpanID, sc.SpanID().String()))
}

// WithComponent tags the logger with a component name.
func (l *Logger) WithComponent(name string) *Logger {
	return l.derive(l.zl.With().Str(FieldComponent, name))
}

// WithFields attaches fields to every later message.
func (l *Logger) WithFields(fields map[string]interface{}) *Logger {
	zc := l.zl.With()
	for k, v := range fields {
		zc = zc.Interface(k, redact(k, v))
	}
	return l.derive(zc)
}

// WithError attaches err to every later message.
func (l *Logger) WithError(err error) *Logger {
	return l.derive(l.zl.With().Err(err))
}

// GetLogger returns the underlying zerolog.Logger.
func (l *Logger) GetLogger() zerolog.Logger { return l.zl }

// Enabled reports whether messages at level would be written.
func (l *Logger) Enabled(level zerolog.Level) bool {
	return level >= l.zl.GetLevel() && level >= zerolog.GlobalLevel()
}

func (l *Logger) Debug(msg string, fields ...map[string]interface{}) {
	l.emit(zerolog.DebugLevel, msg, fields)
}

func (l *Logger) Info(msg string, fields ...map[string]interface{}) {
	l.emit(zerolog.InfoLevel, msg, fields)
}

func (l *Logger) Warn(msg string, fields ...map[string]interface{}) {
	l.emit(zerolog.WarnLevel, msg, fields)
}

func (l *Logger) Error(msg string, fields ...map[string]interface{}) {
	l.emit(zerolog.ErrorLevel, msg, fields)
}

func (l *Logger) emit(level zerolog.Level, msg string, fields []map[string]interface{}) {
	ev := l.zl.WithLevel(level)
	if ev == nil {
		return
	}
	for _, fm := range fields {
		for k, v := range fm {
			ev.Interface(k, redact(k, v))
		}
	}
	ev.Msg(msg)
}

func redact(key string, v interface{}) interface{} {
	if s, ok := v.(string); ok && key == FieldToken {
		return RedactToken(s)
	}
	return v
}

var global atomic.Pointer[Logger]

// SetGlobalLogger replaces the global logger. A nil l restores the default.
func SetGlobalLogger(l *Logger) { global.Store(l) }

// GetGlobalLogger returns the global logger, a json logger on stderr unless
// Init or SetGlobalLogger ran.
func GetGlobalLogger() *Logger {
	if l := global.Load(); l != nil {
		return l
	}
	cfg := &Config{}
	cfg.ApplyDefaults()
	l := New(cfg, serviceName)
	if global.CompareAndSwap(nil, l) {
		return l
	}
	return global.Load()
}

func Debug(msg string, fields ...map[string]interface{}) { GetGlobalLogger().Debug(msg, fields...) }
func Info(msg string, fields ...map[string]interface{})  { GetGlobalLogger().Info(msg, fields...) }
func Warn(msg string, fields ...map[string]interface{})  { GetGlobalLogger().Warn(msg, fields...) }
func Error(msg string, fields ...map[string]interface{}) { GetGlobalLogger().Error(msg, fields...) }

// WithComponent tags the global logger with a component name.
func WithComponent(name string) *Logger {
	return GetGlobalLogger().WithComponent(name)
}

const colorReset = "\033[0m"

// levelStyle maps a level to its bracketed tag and ANSI color.
func levelStyle(level string) (tag, color string) {
	switch lvl, _ := zerolog.ParseLevel(level); lvl {
	case zerolog.TraceLevel:
		return "[TRC]", ""
	case zerolog.DebugLevel:
		return "[DBG]", "\033[36m"
	case zerolog.InfoLevel:
		return "[INF]", "\033[32m"
	case zerolog.WarnLevel:
		return "[WRN]", "\033[33m"
	case zerolog.ErrorLevel:
		return "[ERR]", "\033[31m"
	case zerolog.FatalLevel, zerolog.PanicLevel:
		return "[FTL]", "\033[35m"
	}
	return "[" + strings.ToUpper(level) + "]", ""
}

func consoleWriter(w io.Writer, noColor bool) zerolog.ConsoleWriter {
	return zerolog.ConsoleWriter{
		Out:           w,
		TimeFormat:    "15:04:05",
		NoColor:       noColor,
		FieldsExclude: []string{"service"},
		FormatLevel: func(i interface{}) string {
			tag, color := levelStyle(fmt.Sprint(i))
			if noColor || color == "" {
				return tag
			}
			return color + tag + colorReset
		},
		FormatFieldName: func(i interface{}) string { return fmt.Sprint(i) + ":" },
		FormatFieldValue: func(i interface{}) string {
			if i == nil {
				return ""
			}
			return fmt.Sprint(i)
		},
	}
}
