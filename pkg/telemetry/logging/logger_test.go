package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"mercator-hq/chronicle/pkg/config"

	"go.opentelemetry.io/otel/trace"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		config  config.LoggingConfig
		wantErr bool
	}{
		{"valid JSON config", config.LoggingConfig{Level: "info", Format: "json"}, false},
		{"valid text config", config.LoggingConfig{Level: "debug", Format: "text"}, false},
		{"defaults", config.LoggingConfig{}, false},
		{"invalid log level", config.LoggingConfig{Level: "verbose"}, true},
		{"invalid format", config.LoggingConfig{Format: "console"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.config, &bytes.Buffer{})
			if (err != nil) != tt.wantErr {
				t.Errorf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(config.LoggingConfig{Level: "warn", Format: "json"}, &buf)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	logger.Info("hidden")
	logger.Warn("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Error("info message should be filtered at warn level")
	}
	if !strings.Contains(out, "shown") {
		t.Error("warn message missing")
	}
}

func TestLogger_TextFormat(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(config.LoggingConfig{Format: "text"}, &buf)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	logger.Info("report finished", "rows", 3)

	if !strings.Contains(buf.String(), "rows=3") {
		t.Errorf("expected logfmt output, got %q", buf.String())
	}
}

func TestLogger_ContextFields(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(config.LoggingConfig{Format: "json"}, &buf)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	ctx := trace.ContextWithSpanContext(context.Background(), trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
	}))
	ctx = WithRequestID(ctx, "req-123")
	ctx = WithOperation(ctx, "query.list")

	logger.With("component", "test").InfoContext(ctx, "listed", "rows", 2)

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("invalid JSON output %q: %v", buf.String(), err)
	}
	want := map[string]string{
		"request_id": "req-123",
		"operation":  "query.list",
		"trace_id":   "4bf92f3577b34da6a3ce929d0e0e4736",
		"span_id":    "00f067aa0ba902b7",
		"component":  "test",
	}
	for k, v := range want {
		if record[k] != v {
			t.Errorf("%s = %v, want %q", k, record[k], v)
		}
	}
}

func TestLogger_NoContextFields(t *testing.T) {
	var buf bytes.Buffer
	logger, _ := New(config.LoggingConfig{}, &buf)
	logger.Info("plain")

	if strings.Contains(buf.String(), "request_id") || strings.Contains(buf.String(), "trace_id") {
		t.Errorf("unexpected context fields in %q", buf.String())
	}
}

func TestSetup(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	var buf bytes.Buffer
	if _, err := Setup(config.LoggingConfig{Level: "debug"}, &buf); err != nil {
		t.Fatalf("Setup() failed: %v", err)
	}
	slog.Debug("via default")
	if !strings.Contains(buf.String(), "via default") {
		t.Error("Setup did not install the default logger")
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"", slog.LevelInfo},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
	}
	for _, tt := range tests {
		got, err := parseLevel(tt.in)
		if err != nil || got != tt.want {
			t.Errorf("parseLevel(%q) = %v, %v; want %v", tt.in, got, err, tt.want)
		}
	}
}
