// Package log provides the structured logging facade used throughout
// forge: a small ILogger/IEvent chaining API (Debug()/Info()/Warn()/
// Error()/Fatal() returning an Event whose Msg/Msgf emits) backed by
// go.uber.org/zap, with optional rotation via
// gopkg.in/natefinch/lumberjack.v2 for file sinks.
package log

import (
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// ILogger is the interface that wraps the basic logging methods.
type ILogger interface {
	Debug() IEvent
	Info() IEvent
	Warn() IEvent
	Error() IEvent
	Fatal() IEvent
	SetLevel(level Level)
	GetLevel() Level
}

// IEvent is the interface that wraps the basic event methods.
type IEvent interface {
	Err(err error) IEvent
	Msg(msg string)
	Msgf(format string, v ...interface{})
}

// LoggerConfig represents the configuration for a logger.
type LoggerConfig struct {
	Writer     io.Writer
	Level      Level
	TimeFormat string
	NoColor    bool
}

// DefaultLoggerConfig returns the default configuration for a logger.
func DefaultLoggerConfig() LoggerConfig {
	return LoggerConfig{
		Writer:     nil,
		Level:      InfoLevel,
		TimeFormat: "2006-01-02 15:04:05",
		NoColor:    false,
	}
}

// Level represents the log level.
type Level int8

const (
	DebugLevel Level = iota
	InfoLevel
	WarnLevel
	ErrorLevel
	FatalLevel
)

var levelNames = map[Level]string{
	DebugLevel: "DEBUG",
	InfoLevel:  "INFO",
	WarnLevel:  "WARN",
	ErrorLevel: "ERROR",
	FatalLevel: "FATAL",
}

func (l Level) String() string {
	if name, ok := levelNames[l]; ok {
		return name
	}
	return fmt.Sprintf("LEVEL(%d)", l)
}

func (l Level) zapLevel() zapcore.Level {
	switch l {
	case DebugLevel:
		return zapcore.DebugLevel
	case InfoLevel:
		return zapcore.InfoLevel
	case WarnLevel:
		return zapcore.WarnLevel
	case ErrorLevel:
		return zapcore.ErrorLevel
	case FatalLevel:
		return zapcore.FatalLevel
	default:
		return zapcore.InfoLevel
	}
}

// Logger is the concrete ILogger, a thin chaining facade over a zap
// core whose sink and level can be swapped without touching call sites.
type Logger struct {
	zap   *zap.Logger
	level *zap.AtomicLevel
}

// newCore builds a zap core with plain (uncolored) level text — coloring,
// when wanted, is applied downstream by ConsoleWriter, not by zap itself.
func newCore(w io.Writer, timeFormat string, atom zap.AtomicLevel) zapcore.Core {
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "time"
	encCfg.NameKey = ""
	encCfg.CallerKey = ""
	encCfg.StacktraceKey = ""
	encCfg.EncodeTime = zapcore.TimeEncoderOfLayout(timeFormat)
	encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
	encCfg.ConsoleSeparator = " | "
	enc := zapcore.NewConsoleEncoder(encCfg)
	return zapcore.NewCore(enc, zapcore.AddSync(w), atom)
}

// New creates a new logger writing to writer (stdout if nil) at level.
func New(writer io.Writer, level Level) *Logger {
	if writer == nil {
		writer = os.Stdout
	}
	atom := zap.NewAtomicLevelAt(level.zapLevel())
	core := newCore(writer, "2006-01-02 15:04:05", atom)
	return &Logger{zap: zap.New(core, zap.OnFatal(zapcore.WriteThenNoop)), level: &atom}
}

// NewWithConfig creates a new logger from an explicit LoggerConfig.
func NewWithConfig(config LoggerConfig) *Logger {
	if config.Writer == nil {
		config.Writer = os.Stdout
	}
	if config.TimeFormat == "" {
		config.TimeFormat = "2006-01-02 15:04:05"
	}
	atom := zap.NewAtomicLevelAt(config.Level.zapLevel())
	core := newCore(config.Writer, config.TimeFormat, atom)
	return &Logger{zap: zap.New(core, zap.OnFatal(zapcore.WriteThenNoop)), level: &atom}
}

// NewFileLogger creates a logger that writes to a rotated log file via
// lumberjack, rotating at 100MB, keeping 7 backups for up to 28 days.
func NewFileLogger(path string, level Level) *Logger {
	rotator := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    100,
		MaxBackups: 7,
		MaxAge:     28,
		Compress:   true,
	}
	atom := zap.NewAtomicLevelAt(level.zapLevel())
	core := newCore(rotator, "2006-01-02 15:04:05", atom)
	return &Logger{zap: zap.New(core, zap.OnFatal(zapcore.WriteThenNoop)), level: &atom}
}

// SetLevel sets the log level.
func (l *Logger) SetLevel(level Level) {
	l.level.SetLevel(level.zapLevel())
}

// GetLevel returns the current log level.
func (l *Logger) GetLevel() Level {
	switch l.level.Level() {
	case zapcore.DebugLevel:
		return DebugLevel
	case zapcore.WarnLevel:
		return WarnLevel
	case zapcore.ErrorLevel:
		return ErrorLevel
	case zapcore.FatalLevel:
		return FatalLevel
	default:
		return InfoLevel
	}
}

// Event accumulates fields for one log line before Msg/Msgf emits it.
type Event struct {
	logger *Logger
	level  Level
	err    error
}

func (l *Logger) Debug() IEvent { return &Event{logger: l, level: DebugLevel} }
func (l *Logger) Info() IEvent  { return &Event{logger: l, level: InfoLevel} }
func (l *Logger) Warn() IEvent  { return &Event{logger: l, level: WarnLevel} }
func (l *Logger) Error() IEvent { return &Event{logger: l, level: ErrorLevel} }
func (l *Logger) Fatal() IEvent { return &Event{logger: l, level: FatalLevel} }

// Err adds an error to the event.
func (e *Event) Err(err error) IEvent {
	if e == nil {
		return nil
	}
	e.err = err
	return e
}

// Msg logs a message.
func (e *Event) Msg(msg string) {
	if e == nil {
		return
	}
	e.emit(msg)
}

// Msgf logs a formatted message.
func (e *Event) Msgf(format string, v ...interface{}) {
	if e == nil {
		return
	}
	e.emit(fmt.Sprintf(format, v...))
}

func (e *Event) emit(msg string) {
	var fields []zap.Field
	if e.err != nil {
		fields = append(fields, zap.Error(e.err))
	}
	switch e.level {
	case DebugLevel:
		e.logger.zap.Debug(msg, fields...)
	case InfoLevel:
		e.logger.zap.Info(msg, fields...)
	case WarnLevel:
		e.logger.zap.Warn(msg, fields...)
	case ErrorLevel:
		e.logger.zap.Error(msg, fields...)
	case FatalLevel:
		e.logger.zap.Fatal(msg, fields...)
	}
}

// defaultLogger is the package-level logger used by the free functions.
var defaultLogger = New(os.Stdout, InfoLevel)

// globalLogger, if set via SetLogger, is what GetLogger hands back instead
// of defaultLogger. Callers that want a single process-wide ILogger (such
// as middleware/accesslog, which adopts it in its init when it is a
// *Logger) go through
// this pair rather than reaching into defaultLogger directly.
var globalLogger ILogger

// SetLogger installs l as the process-wide logger returned by GetLogger.
func SetLogger(l ILogger) { globalLogger = l }

// GetLogger returns the process-wide logger set by SetLogger, or
// defaultLogger if none was set.
func GetLogger() ILogger {
	if globalLogger != nil {
		return globalLogger
	}
	return defaultLogger
}

func Debug() *Event { return defaultLogger.Debug().(*Event) }
func Info() *Event  { return defaultLogger.Info().(*Event) }
func Warn() *Event  { return defaultLogger.Warn().(*Event) }
func Error() *Event { return defaultLogger.Error().(*Event) }
func Fatal() *Event { return defaultLogger.Fatal().(*Event) }

// SetLevel sets the log level for the default logger.
func SetLevel(level Level) { defaultLogger.SetLevel(level) }

// SetOutput replaces the default logger's sink, rebuilding its core.
func SetOutput(w io.Writer) {
	if w == nil {
		w = os.Stdout
	}
	atom := zap.NewAtomicLevelAt(defaultLogger.level.Level())
	core := newCore(w, "2006-01-02 15:04:05", atom)
	defaultLogger = &Logger{zap: zap.New(core, zap.OnFatal(zapcore.WriteThenNoop)), level: &atom}
}
