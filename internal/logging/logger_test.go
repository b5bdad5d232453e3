package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
)

// TestNewLogger verifies basic logger creation
func TestNewLogger(t *testing.T) {
	tests := []struct {
		name   string
		format string
		level  string
	}{
		{"JSON Info", "json", "info"},
		{"JSON Debug", "json", "debug"},
		{"JSON Error", "json", "error"},
		{"Console Info", "console", "info"},
		{"Text Debug", "text", "debug"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger, err := NewLogger(Config{
				Format: tt.format,
				Level:  tt.level,
				Output: &buf,
			})
			if err != nil {
				t.Fatalf("NewLogger() error = %v", err)
			}
			logger.Error().Msg("heartbeat")
			if !strings.Contains(buf.String(), "heartbeat") {
				t.Errorf("Expected heartbeat in output, got: %s", buf.String())
			}
		})
	}
}

// TestNewLogger_InvalidLevel verifies error handling for invalid log level
func TestNewLogger_InvalidLevel(t *testing.T) {
	_, err := NewLogger(Config{
		Format: "json",
		Level:  "invalid",
	})
	if err == nil {
		t.Error("Expected error for invalid log level")
	}
}

// TestNewLogger_InvalidFormat verifies error handling for invalid log format
func TestNewLogger_InvalidFormat(t *testing.T) {
	_, err := NewLogger(Config{
		Format: "xml",
		Level:  "info",
	})
	if err == nil {
		t.Error("Expected error for invalid log format")
	}
}

// TestStructuredLogging verifies structured logging with fields
func TestStructuredLogging(t *testing.T) {
	var buf bytes.Buffer
	logger, _ := NewLogger(Config{Format: "json", Level: "info", Output: &buf})

	logger.Info().
		Str("pool", "16x64").
		Int("chunk_bytes", 640).
		Msg("chunk acquired")

	output := buf.String()
	if !strings.Contains(output, "chunk acquired") {
		t.Errorf("Expected message in output, got: %s", output)
	}
	if !strings.Contains(output, "16x64") {
		t.Errorf("Expected pool label in output, got: %s", output)
	}
	if !strings.Contains(output, "640") {
		t.Errorf("Expected chunk_bytes in output, got: %s", output)
	}
}

// TestLogLevelFiltering verifies that log levels are properly filtered
func TestLogLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger, _ := NewLogger(Config{Format: "json", Level: "warn", Output: &buf})

	logger.Debug().Msg("debug message")
	logger.Info().Msg("info message")
	logger.Warn().Msg("warn message")
	logger.Error().Msg("error message")

	output := buf.String()
	if strings.Contains(output, "debug message") {
		t.Error("Debug message should be filtered at Warn level")
	}
	if strings.Contains(output, "info message") {
		t.Error("Info message should be filtered at Warn level")
	}
	if !strings.Contains(output, "warn message") {
		t.Error("Warn message should be present")
	}
	if !strings.Contains(output, "error message") {
		t.Error("Error message should be present")
	}
}

// TestJSONOutput verifies JSON format output
func TestJSONOutput(t *testing.T) {
	var buf bytes.Buffer
	logger, _ := NewLogger(Config{Format: "json", Level: "info", Output: &buf})

	logger.Info().Str("foo", "bar").Msg("json test")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("Failed to parse JSON output: %v, output: %s", err, buf.String())
	}

	if entry["message"] != "json test" {
		t.Errorf("Expected message='json test', got %v", entry["message"])
	}
	if entry["foo"] != "bar" {
		t.Errorf("Expected foo='bar', got %v", entry["foo"])
	}
	if _, ok := entry["time"]; !ok {
		t.Errorf("Expected timestamp field, got %v", entry)
	}
}

// TestDiscardLogger verifies the discard logger for tests
func TestDiscardLogger(t *testing.T) {
	logger := DiscardLogger()
	// Should not panic
	logger.Info().Msg("this should be discarded")
	logger.Error().Msg("this too")
}

// TestLoggerWithFields verifies logger.With() for adding default fields
func TestLoggerWithFields(t *testing.T) {
	var buf bytes.Buffer
	baseLogger, _ := NewLogger(Config{Format: "json", Level: "info", Output: &buf})

	childLogger := baseLogger.With().Str("component", "test").Logger()
	childLogger.Info().Msg("message with component")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("Failed to parse JSON: %v", err)
	}

	if entry["component"] != "test" {
		t.Errorf("Expected component='test', got %v", entry["component"])
	}
}

// TestLoggingMetrics verifies the Prometheus hook counts emitted entries
func TestLoggingMetrics(t *testing.T) {
	var buf bytes.Buffer
	logger, _ := NewLogger(Config{Format: "json", Level: "info", Output: &buf})

	warnBefore := testutil.ToFloat64(LogEntriesTotal.WithLabelValues(zerolog.WarnLevel.String()))
	errorsBefore := testutil.ToFloat64(LogErrorsTotal)

	logger.Warn().Msg("first")
	logger.Warn().Msg("second")
	logger.Error().Msg("third")
	logger.Debug().Msg("filtered, not counted")

	warnAfter := testutil.ToFloat64(LogEntriesTotal.WithLabelValues(zerolog.WarnLevel.String()))
	errorsAfter := testutil.ToFloat64(LogErrorsTotal)

	if warnAfter-warnBefore != 2 {
		t.Errorf("Expected 2 warn entries counted, got %v", warnAfter-warnBefore)
	}
	if errorsAfter-errorsBefore != 1 {
		t.Errorf("Expected 1 error entry counted, got %v", errorsAfter-errorsBefore)
	}
}

// TestDefaultConfig verifies default configuration values
func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Format != "json" {
		t.Errorf("Expected default format='json', got %s", cfg.Format)
	}
	if cfg.Level != "info" {
		t.Errorf("Expected default level='info', got %s", cfg.Level)
	}
}
