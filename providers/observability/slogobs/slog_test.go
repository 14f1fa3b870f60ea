package slogobs

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/blueskygzhz/eino-cpp-sub002/providers/observability"
)

func TestParseFormat(testCase *testing.T) {
	cases := []struct {
		input    string
		expected Format
	}{
		{"json", FormatJSON},
		{"JSON", FormatJSON},
		{"text", FormatText},
		{"compact", FormatText},
		{"  Text  ", FormatText},
		{"nonsense", FormatText},
		{"", FormatText},
	}
	for _, entry := range cases {
		if got := ParseFormat(entry.input); got != entry.expected {
			testCase.Errorf("ParseFormat(%q) = %v, want %v", entry.input, got, entry.expected)
		}
	}
}

func TestParseLogLevel(testCase *testing.T) {
	cases := []struct {
		input    string
		expected slog.Level
	}{
		{"DEBUG", slog.LevelDebug},
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"WARN", slog.LevelWarn},
		{"WARNING", slog.LevelWarn},
		{"ERROR", slog.LevelError},
		{" error ", slog.LevelError},
	}
	for _, entry := range cases {
		if got := ParseLogLevel(entry.input); got != entry.expected {
			testCase.Errorf("ParseLogLevel(%q) = %v, want %v", entry.input, got, entry.expected)
		}
	}
}

func TestGetLogLevelFromEnv(testCase *testing.T) {
	cases := []struct {
		name     string
		primary  string
		fallback string
		expected slog.Level
	}{
		{name: "primary wins", primary: "DEBUG", fallback: "ERROR", expected: slog.LevelDebug},
		{name: "fallback used", primary: "", fallback: "WARN", expected: slog.LevelWarn},
		{name: "default info", primary: "", fallback: "", expected: slog.LevelInfo},
	}
	for _, entry := range cases {
		testCase.Run(entry.name, func(subTest *testing.T) {
			subTest.Setenv("EINO_LOG_LEVEL", entry.primary)
			subTest.Setenv("LOG_LEVEL", entry.fallback)
			if got := GetLogLevelFromEnv(); got != entry.expected {
				subTest.Errorf("GetLogLevelFromEnv() = %v, want %v", got, entry.expected)
			}
		})
	}
}

func TestObserver_JSONFormat(testCase *testing.T) {
	var buffer bytes.Buffer
	observer := New(
		WithFormat(FormatJSON),
		WithLevel(slog.LevelInfo),
		WithOutput(&buffer),
	)

	observer.Info(context.Background(), "run finished", observability.String("graph.name", "demo"))

	var record map[string]any
	if err := json.Unmarshal(buffer.Bytes(), &record); err != nil {
		testCase.Fatalf("expected JSON output, got %q: %v", buffer.String(), err)
	}
	if record["msg"] != "run finished" {
		testCase.Errorf("expected msg 'run finished', got %v", record["msg"])
	}
	if record["graph.name"] != "demo" {
		testCase.Errorf("expected graph.name attribute, got %v", record)
	}
}

func TestObserver_LevelFiltering(testCase *testing.T) {
	var buffer bytes.Buffer
	observer := New(
		WithFormat(FormatText),
		WithLevel(slog.LevelWarn),
		WithOutput(&buffer),
	)

	observer.Debug(context.Background(), "hidden")
	observer.Info(context.Background(), "also hidden")
	observer.Warn(context.Background(), "visible")

	output := buffer.String()
	if strings.Contains(output, "hidden") {
		testCase.Errorf("expected sub-warn messages to be filtered, got %q", output)
	}
	if !strings.Contains(output, "visible") {
		testCase.Errorf("expected warn message in output, got %q", output)
	}
}

func TestObserver_SpanLifecycle(testCase *testing.T) {
	var buffer bytes.Buffer
	observer := New(
		WithFormat(FormatText),
		WithLevel(slog.LevelDebug),
		WithOutput(&buffer),
	)

	_, span := observer.StartSpan(context.Background(), "node.execute",
		observability.String(observability.AttrNodeName, "fetch"))
	span.SetStatus(observability.StatusError, "fetch failed")
	span.RecordError(errors.New("boom"))
	span.End()

	output := buffer.String()
	for _, expected := range []string{"span.start", "span.end", "node.execute", "boom"} {
		if !strings.Contains(output, expected) {
			testCase.Errorf("expected %q in span output, got %q", expected, output)
		}
	}
}

func TestObserver_CounterAccumulates(testCase *testing.T) {
	observer := New(WithOutput(&bytes.Buffer{}), WithLevel(slog.LevelError))

	counter := observer.Counter("graph.runs.total")
	counter.Add(context.Background(), 2)
	counter.Add(context.Background(), 3)

	again, ok := observer.Counter("graph.runs.total").(*slogCounter)
	if !ok {
		testCase.Fatal("expected the slog-backed counter implementation")
	}
	if again.Total() != 5 {
		testCase.Errorf("expected cumulative total 5, got %d", again.Total())
	}
}

func TestObserver_WithLogger(testCase *testing.T) {
	var buffer bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buffer, &slog.HandlerOptions{Level: slog.LevelInfo}))
	observer := New(WithLogger(logger))

	observer.Info(context.Background(), "through custom logger")
	if !strings.Contains(buffer.String(), "through custom logger") {
		testCase.Errorf("expected message through provided logger, got %q", buffer.String())
	}
}
