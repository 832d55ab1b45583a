package logger

import (
	"context"
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Logger is the structured logging interface used across every
// SkillMeat component instead of calling fmt/log directly.
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
	Fatal(msg string, fields ...Field)

	WithContext(ctx context.Context) Logger
	WithFields(fields ...Field) Logger
	WithError(err error) Logger
	WithTraceID(traceID string) Logger
}

// Field represents a logging field.
type Field struct {
	Key   string
	Value interface{}
}

// ZeroLogger implements Logger using zerolog.
type ZeroLogger struct {
	logger  zerolog.Logger
	fields  []Field
	context context.Context
}

var (
	globalLogger *ZeroLogger
	once         sync.Once
)

type traceIDKey struct{}

// WithTraceContext stores a trace/operation id on a context so that
// logger.Get().WithContext(ctx) picks it up automatically. The
// orchestrator assigns one uuid per capability operation.
func WithTraceContext(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceIDKey{}, traceID)
}

func traceIDFromContext(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(traceIDKey{}).(string)
	return v, ok
}

// Config configures the global logger.
type Config struct {
	Level      string `yaml:"level" json:"level"`
	Format     string `yaml:"format" json:"format"`
	Output     string `yaml:"output" json:"output"`
	TimeFormat string `yaml:"time_format" json:"time_format"`
	Caller     bool   `yaml:"caller" json:"caller"`
}

// Initialize sets up the process-wide logger. Safe to call more than
// once; only the first call takes effect.
func Initialize(config Config) {
	once.Do(func() {
		var output io.Writer

		switch config.Output {
		case "stdout", "":
			output = os.Stdout
		case "stderr":
			output = os.Stderr
		default:
			file, err := os.OpenFile(config.Output, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
			if err != nil {
				output = os.Stdout
			} else {
				output = file
			}
		}

		if config.Format == "console" {
			tf := config.TimeFormat
			if tf == "" {
				tf = time.RFC3339
			}
			output = zerolog.ConsoleWriter{Out: output, TimeFormat: tf}
		}

		zerolog.SetGlobalLevel(parseLevel(config.Level))

		built := zerolog.New(output).With().Timestamp()
		if config.Caller {
			built = built.Caller()
		}

		globalLogger = &ZeroLogger{logger: built.Logger()}
		log.Logger = globalLogger.logger
	})
}

// Get returns the global logger, initializing defaults if needed.
func Get() Logger {
	if globalLogger == nil {
		Initialize(Config{
			Level:      "info",
			Format:     "json",
			Output:     "stdout",
			TimeFormat: time.RFC3339,
			Caller:     true,
		})
	}
	return globalLogger
}

// New returns a logger tagged with a component name.
func New(component string) Logger {
	return Get().WithFields(String("component", component))
}

func (l *ZeroLogger) WithContext(ctx context.Context) Logger {
	newLogger := &ZeroLogger{
		logger:  l.logger,
		fields:  append([]Field{}, l.fields...),
		context: ctx,
	}
	if traceID, ok := traceIDFromContext(ctx); ok {
		newLogger.fields = append(newLogger.fields, String("trace_id", traceID))
	}
	return newLogger
}

func (l *ZeroLogger) WithFields(fields ...Field) Logger {
	return &ZeroLogger{
		logger:  l.logger,
		fields:  append(append([]Field{}, l.fields...), fields...),
		context: l.context,
	}
}

func (l *ZeroLogger) WithError(err error) Logger {
	if err == nil {
		return l
	}
	fields := []Field{String("error", err.Error()), String("error_type", fmt.Sprintf("%T", err))}
	if _, file, line, ok := runtime.Caller(1); ok {
		fields = append(fields, String("error_location", fmt.Sprintf("%s:%d", file, line)))
	}
	return l.WithFields(fields...)
}

func (l *ZeroLogger) WithTraceID(traceID string) Logger {
	return l.WithFields(String("trace_id", traceID))
}

func (l *ZeroLogger) Debug(msg string, fields ...Field) { l.logEvent(l.logger.Debug(), msg, fields...) }
func (l *ZeroLogger) Info(msg string, fields ...Field)  { l.logEvent(l.logger.Info(), msg, fields...) }
func (l *ZeroLogger) Warn(msg string, fields ...Field)  { l.logEvent(l.logger.Warn(), msg, fields...) }
func (l *ZeroLogger) Error(msg string, fields ...Field) { l.logEvent(l.logger.Error(), msg, fields...) }
func (l *ZeroLogger) Fatal(msg string, fields ...Field) { l.logEvent(l.logger.Fatal(), msg, fields...) }

func (l *ZeroLogger) logEvent(event *zerolog.Event, msg string, fields ...Field) {
	for _, field := range l.fields {
		event = addField(event, field)
	}
	for _, field := range fields {
		event = addField(event, field)
	}
	event.Msg(msg)
}

func addField(event *zerolog.Event, field Field) *zerolog.Event {
	switch v := field.Value.(type) {
	case string:
		return event.Str(field.Key, v)
	case int:
		return event.Int(field.Key, v)
	case int64:
		return event.Int64(field.Key, v)
	case float64:
		return event.Float64(field.Key, v)
	case bool:
		return event.Bool(field.Key, v)
	case time.Time:
		return event.Time(field.Key, v)
	case time.Duration:
		return event.Dur(field.Key, v)
	case error:
		return event.Err(v)
	default:
		return event.Interface(field.Key, v)
	}
}

func parseLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "info", "":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "fatal":
		return zerolog.FatalLevel
	case "panic":
		return zerolog.PanicLevel
	default:
		return zerolog.InfoLevel
	}
}

func String(key, value string) Field        { return Field{Key: key, Value: value} }
func Int(key string, value int) Field       { return Field{Key: key, Value: value} }
func Int64(key string, value int64) Field   { return Field{Key: key, Value: value} }
func Float64(key string, value float64) Field { return Field{Key: key, Value: value} }
func Bool(key string, value bool) Field     { return Field{Key: key, Value: value} }
func Time(key string, value time.Time) Field { return Field{Key: key, Value: value} }
func Duration(key string, value time.Duration) Field { return Field{Key: key, Value: value} }
func Error(err error) Field                  { return Field{Key: "error", Value: err} }
func Any(key string, value interface{}) Field { return Field{Key: key, Value: value} }

// Printf is a drop-in replacement for fmt.Printf that routes through
// the structured logger at info level.
func Printf(format string, args ...interface{}) {
	Get().Info(fmt.Sprintf(format, args...))
}

// Println is a drop-in replacement for fmt.Println / log.Println.
func Println(args ...interface{}) {
	Get().Info(fmt.Sprint(args...))
}

// Fatalf logs at fatal level and exits the process via zerolog's Fatal.
func Fatalf(format string, args ...interface{}) {
	Get().Fatal(fmt.Sprintf(format, args...))
}
