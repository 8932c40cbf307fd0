// Package logger wraps zerolog with file rotation and the numeric
// severity scale used by the nvnmos facade's host log callback.
package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Severity is the numeric log level delivered to an embedding host,
// per the facade's external contract: fatal=40, severe=30, error=20,
// warning=10, info=0, verbose=-10, devel=-40.
type Severity int

const (
	SeverityDevel   Severity = -40
	SeverityVerbose Severity = -10
	SeverityInfo    Severity = 0
	SeverityWarning Severity = 10
	SeverityError   Severity = 20
	SeveritySevere  Severity = 30
	SeverityFatal   Severity = 40
)

func severityOf(level zerolog.Level) Severity {
	switch level {
	case zerolog.TraceLevel:
		return SeverityDevel
	case zerolog.DebugLevel:
		return SeverityVerbose
	case zerolog.InfoLevel:
		return SeverityInfo
	case zerolog.WarnLevel:
		return SeverityWarning
	case zerolog.ErrorLevel:
		return SeverityError
	case zerolog.FatalLevel:
		return SeverityFatal
	case zerolog.PanicLevel:
		return SeverityFatal
	default:
		return SeverityInfo
	}
}

// CallbackFunc is the host log sink: categories as a CSV string, the
// numeric severity, and the rendered message.
type CallbackFunc func(categories string, level Severity, message string)

// Config holds logger construction parameters.
type Config struct {
	Path       string // empty means stdout
	Level      string // zerolog level name, e.g. "info"; empty or unknown means "info"
	Format     string // "json" or "console"
	Categories string // CSV categories handed to Callback with every record from this logger
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
	Callback   CallbackFunc // optional: mirrors every record to an embedding host
}

// Logger wraps a zerolog.Logger plus the rotating writer backing it.
type Logger struct {
	logger     zerolog.Logger
	writer     io.Writer
	categories string
	mu         sync.Mutex
}

var (
	globalLogger *Logger
	once         sync.Once
)

// Init initializes the process-wide default logger exactly once.
func Init(cfg Config) error {
	var err error
	once.Do(func() {
		globalLogger, err = New(cfg)
	})
	return err
}

// Get returns the process-wide default logger, falling back to a
// bare stdout logger if Init was never called.
func Get() *Logger {
	if globalLogger == nil {
		globalLogger = &Logger{
			logger: zerolog.New(os.Stdout).With().Timestamp().Logger(),
			writer: os.Stdout,
		}
	}
	return globalLogger
}

// New creates a standalone logger instance, independent of the global.
func New(cfg Config) (*Logger, error) {
	if cfg.Path != "" {
		dir := filepath.Dir(cfg.Path)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create log directory: %w", err)
		}
	}

	var writer io.Writer
	if cfg.Path != "" {
		writer = &lumberjack.Logger{
			Filename:   cfg.Path,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   cfg.Compress,
		}
	} else {
		writer = os.Stdout
	}

	zerolog.TimeFieldFormat = time.RFC3339Nano

	var zlog zerolog.Logger
	if cfg.Format == "console" {
		zlog = zerolog.New(zerolog.ConsoleWriter{Out: writer, TimeFormat: time.RFC3339}).
			With().Timestamp().Logger()
	} else {
		zlog = zerolog.New(writer).With().Timestamp().Logger()
	}

	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zlog = zlog.Level(level)

	if cfg.Callback != nil {
		cb := cfg.Callback
		categories := cfg.Categories
		zlog = zlog.Hook(zerolog.HookFunc(func(e *zerolog.Event, level zerolog.Level, msg string) {
			cb(categories, severityOf(level), msg)
		}))
	}

	return &Logger{logger: zlog, writer: writer, categories: cfg.Categories}, nil
}

func (l *Logger) addFields(event *zerolog.Event, fields ...interface{}) {
	if len(fields)%2 != 0 {
		event.Interface("invalid_fields", fields)
		return
	}
	for i := 0; i < len(fields); i += 2 {
		key, ok := fields[i].(string)
		if !ok {
			continue
		}
		event.Interface(key, fields[i+1])
	}
}

func (l *Logger) Debug(msg string, fields ...interface{}) {
	event := l.logger.Debug()
	l.addFields(event, fields...)
	event.Msg(msg)
}

func (l *Logger) Info(msg string, fields ...interface{}) {
	event := l.logger.Info()
	l.addFields(event, fields...)
	event.Msg(msg)
}

func (l *Logger) Warn(msg string, fields ...interface{}) {
	event := l.logger.Warn()
	l.addFields(event, fields...)
	event.Msg(msg)
}

func (l *Logger) Error(msg string, err error, fields ...interface{}) {
	event := l.logger.Error().Err(err)
	l.addFields(event, fields...)
	event.Msg(msg)
}

// Severe logs at the spec's "severe" level, between error and fatal,
// mapped onto zerolog's error level with an explicit field since
// zerolog has no native severe level.
func (l *Logger) Severe(msg string, err error, fields ...interface{}) {
	event := l.logger.Error().Err(err).Str("severity", "severe")
	l.addFields(event, fields...)
	event.Msg(msg)
}

func (l *Logger) Fatal(msg string, err error, fields ...interface{}) {
	event := l.logger.Fatal().Err(err)
	l.addFields(event, fields...)
	event.Msg(msg)
}

// WithComponent returns a child logger tagging every record with a
// component field, e.g. logger.Get().WithComponent("node-api").
func (l *Logger) WithComponent(component string) *Logger {
	return &Logger{
		logger:     l.logger.With().Str("component", component).Logger(),
		writer:     l.writer,
		categories: l.categories,
	}
}

// WithFields returns a child logger with additional persistent fields.
func (l *Logger) WithFields(fields map[string]interface{}) *Logger {
	ctx := l.logger.With()
	for k, v := range fields {
		ctx = ctx.Interface(k, v)
	}
	return &Logger{logger: ctx.Logger(), writer: l.writer, categories: l.categories}
}

// Zerolog exposes the underlying zerolog.Logger for packages that want
// to build structured events directly (e.g. per-request HTTP logging).
func (l *Logger) Zerolog() zerolog.Logger {
	return l.logger
}
