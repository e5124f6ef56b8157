package log

import (
	"bytes"
	"errors"
	"os"
	"strings"
	"testing"
)

func TestLevelString(t *testing.T) {
	tests := []struct {
		level    Level
		expected string
	}{
		{DebugLevel, "DEBUG"},
		{InfoLevel, "INFO"},
		{WarnLevel, "WARN"},
		{ErrorLevel, "ERROR"},
		{FatalLevel, "FATAL"},
		{Level(99), "LEVEL(99)"},
	}

	for _, test := range tests {
		if got := test.level.String(); got != test.expected {
			t.Errorf("Level(%d).String() = %s, expected %s", test.level, got, test.expected)
		}
	}
}

func TestLoggerCreation(t *testing.T) {
	logger := New(nil, InfoLevel)
	if logger == nil {
		t.Fatal("New(nil, InfoLevel) returned nil")
	}
	if logger.GetLevel() != InfoLevel {
		t.Errorf("New(nil, InfoLevel) level = %v, expected %v", logger.GetLevel(), InfoLevel)
	}

	buf := &bytes.Buffer{}
	logger = New(buf, DebugLevel)
	if logger.GetLevel() != DebugLevel {
		t.Errorf("New(buf, DebugLevel) level = %v, expected %v", logger.GetLevel(), DebugLevel)
	}

	config := DefaultLoggerConfig()
	config.Writer = buf
	config.Level = WarnLevel
	config.TimeFormat = "2006-01-02"
	config.NoColor = true
	logger = NewWithConfig(config)
	if logger.GetLevel() != WarnLevel {
		t.Errorf("NewWithConfig level = %v, expected %v", logger.GetLevel(), WarnLevel)
	}
}

func TestLoggerLevelFiltering(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := New(buf, InfoLevel)

	logger.Debug().Msg("should be filtered")
	if buf.Len() != 0 {
		t.Errorf("Debug() should be filtered at InfoLevel, got: %s", buf.String())
	}

	logger.Info().Msg("should appear")
	if !strings.Contains(buf.String(), "should appear") {
		t.Errorf("Info() output missing message: %s", buf.String())
	}

	logger.SetLevel(DebugLevel)
	if logger.GetLevel() != DebugLevel {
		t.Errorf("GetLevel() = %v after SetLevel(DebugLevel), expected %v", logger.GetLevel(), DebugLevel)
	}
	buf.Reset()
	logger.Debug().Msg("now visible")
	if !strings.Contains(buf.String(), "now visible") {
		t.Errorf("Debug() should be visible after SetLevel(DebugLevel), got: %s", buf.String())
	}
}

func TestEventMethods(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := New(buf, DebugLevel)

	testErr := errors.New("test error")
	event := logger.Debug().Err(testErr)
	if event == nil {
		t.Error("Err() should return the event")
	}

	buf.Reset()
	logger.Debug().Msg("test message")
	output := buf.String()
	if !strings.Contains(output, "DEBUG") || !strings.Contains(output, "test message") {
		t.Errorf("Msg() output missing level/message: %s", output)
	}

	buf.Reset()
	logger.Info().Msgf("formatted %s %d", "message", 42)
	output = buf.String()
	if !strings.Contains(output, "INFO") || !strings.Contains(output, "formatted message 42") {
		t.Errorf("Msgf() output incorrect: %s", output)
	}

	var nilEvent *Event
	nilEvent.Msg("should not panic")
	nilEvent.Msgf("should not %s", "panic")
	nilEvent.Err(testErr)
}

func TestDefaultLogger(t *testing.T) {
	buf := &bytes.Buffer{}
	SetOutput(buf)
	SetLevel(DebugLevel)
	defer func() {
		SetOutput(os.Stdout)
		SetLevel(InfoLevel)
	}()

	buf.Reset()
	Debug().Msg("debug message")
	if !strings.Contains(buf.String(), "DEBUG") || !strings.Contains(buf.String(), "debug message") {
		t.Errorf("Debug() output incorrect: %s", buf.String())
	}

	buf.Reset()
	Info().Msg("info message")
	if !strings.Contains(buf.String(), "INFO") || !strings.Contains(buf.String(), "info message") {
		t.Errorf("Info() output incorrect: %s", buf.String())
	}

	buf.Reset()
	Warn().Msg("warn message")
	if !strings.Contains(buf.String(), "WARN") || !strings.Contains(buf.String(), "warn message") {
		t.Errorf("Warn() output incorrect: %s", buf.String())
	}

	buf.Reset()
	Error().Msg("error message")
	if !strings.Contains(buf.String(), "ERROR") || !strings.Contains(buf.String(), "error message") {
		t.Errorf("Error() output incorrect: %s", buf.String())
	}

	SetLevel(ErrorLevel)
	buf.Reset()
	Debug().Msg("should not appear")
	Info().Msg("should not appear")
	Warn().Msg("should not appear")
	if buf.Len() > 0 {
		t.Errorf("messages below ErrorLevel should be filtered, got: %s", buf.String())
	}

	Error().Msg("should appear")
	if !strings.Contains(buf.String(), "should appear") {
		t.Errorf("Error message should appear at ErrorLevel, got: %s", buf.String())
	}
}

func TestGlobalLogger(t *testing.T) {
	original := globalLogger
	defer func() { globalLogger = original }()

	globalLogger = nil
	if got := GetLogger(); got != ILogger(defaultLogger) {
		t.Errorf("GetLogger() with no logger set = %v, expected defaultLogger", got)
	}

	buf := &bytes.Buffer{}
	custom := New(buf, InfoLevel)
	SetLogger(custom)
	if got := GetLogger(); got != ILogger(custom) {
		t.Errorf("GetLogger() after SetLogger() = %v, expected the installed logger", got)
	}
}
