package logging

import (
	"bytes"
	"strings"
	"testing"
)

func TestNew_TraceLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{
		Level:  "trace",
		Pretty: false,
		Output: &buf,
	})

	logger.Trace().Msg("trace message")
	logger.Debug().Msg("debug message")
	logger.Info().Msg("info message")

	output := buf.String()

	if !strings.Contains(output, "trace message") {
		t.Error("Expected trace message to be logged at trace level")
	}
	if !strings.Contains(output, "debug message") {
		t.Error("Expected debug message to be logged at trace level")
	}
	if !strings.Contains(output, "info message") {
		t.Error("Expected info message to be logged at trace level")
	}
}

func TestNew_InfoLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{
		Level:  "info",
		Pretty: false,
		Output: &buf,
	})

	logger.Debug().Msg("debug message")
	logger.Info().Msg("info message")

	output := buf.String()

	if strings.Contains(output, "debug message") {
		t.Error("Expected debug message to be suppressed at info level")
	}
	if !strings.Contains(output, "info message") {
		t.Error("Expected info message to be logged at info level")
	}
}

func TestNew_UnknownLevelDefaultsToInfo(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{
		Level:  "bogus",
		Pretty: false,
		Output: &buf,
	})

	logger.Debug().Msg("debug message")
	logger.Info().Msg("info message")

	output := buf.String()

	if strings.Contains(output, "debug message") {
		t.Error("Expected debug message to be suppressed for unknown level")
	}
	if !strings.Contains(output, "info message") {
		t.Error("Expected info message to be logged for unknown level")
	}
}

func TestNewWithComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithComponent(Config{
		Level:  "info",
		Pretty: false,
		Output: &buf,
	}, "resolver")

	logger.Info().Msg("hello")

	if !strings.Contains(buf.String(), `"component":"resolver"`) {
		t.Errorf("Expected component field in output, got %q", buf.String())
	}
}
