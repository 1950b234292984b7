// Structured logging tests
//
// Copyright (C) 2026  Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package log

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"strings"
	"testing"
)

type jsonLine struct {
	Level     string `json:"level"`
	Component string `json:"component"`
	Message   string `json:"message"`
	Time      string `json:"time"`
}

func decodeLine(t *testing.T, data []byte) (jsonLine, map[string]interface{}) {
	t.Helper()
	var entry jsonLine
	if err := json.Unmarshal(data, &entry); err != nil {
		t.Fatalf("failed to parse JSON: %v, output: %s", err, data)
	}
	raw := map[string]interface{}{}
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("failed to parse JSON: %v", err)
	}
	return entry, raw
}

func TestLoggerBasic(t *testing.T) {
	var buf bytes.Buffer
	logger := New("test")
	logger.SetWriter(&buf)
	logger.SetLevel(DEBUG)
	logger.SetColorize(false)

	logger.Info("hello %s", "world")

	output := buf.String()
	if !strings.Contains(output, "INF") {
		t.Errorf("expected INF level, got: %s", output)
	}
	if !strings.Contains(output, "component=test") {
		t.Errorf("expected component=test, got: %s", output)
	}
	if !strings.Contains(output, "hello world") {
		t.Errorf("expected message 'hello world', got: %s", output)
	}
}

func TestLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	logger := New("test")
	logger.SetWriter(&buf)
	logger.SetColorize(false)

	// Default level is INFO, so DEBUG should be filtered
	logger.SetLevel(INFO)
	logger.Debug("debug message")
	if buf.Len() != 0 {
		t.Errorf("expected DEBUG to be filtered, got: %s", buf.String())
	}

	logger.Info("info message")
	if !strings.Contains(buf.String(), "info message") {
		t.Errorf("expected INFO to pass, got: %s", buf.String())
	}
	buf.Reset()

	logger.SetLevel(ERROR)
	logger.Warn("warn message")
	if buf.Len() != 0 {
		t.Errorf("expected WARN to be filtered at ERROR, got: %s", buf.String())
	}

	logger.Error("error message")
	if !strings.Contains(buf.String(), "error message") {
		t.Errorf("expected ERROR to pass, got: %s", buf.String())
	}
}

func TestLoggerJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := New("test")
	logger.SetWriter(&buf)
	logger.SetFormat(FormatJSON)
	logger.SetLevel(DEBUG)

	logger.Info("json test")

	entry, _ := decodeLine(t, buf.Bytes())
	if entry.Level != "info" {
		t.Errorf("expected level info, got: %s", entry.Level)
	}
	if entry.Component != "test" {
		t.Errorf("expected component 'test', got: %s", entry.Component)
	}
	if entry.Message != "json test" {
		t.Errorf("expected message 'json test', got: %s", entry.Message)
	}
	if entry.Time == "" {
		t.Error("expected timestamp")
	}
}

func TestLoggerWithFields(t *testing.T) {
	var buf bytes.Buffer
	logger := New("test")
	logger.SetWriter(&buf)
	logger.SetFormat(FormatText)
	logger.SetLevel(DEBUG)
	logger.SetColorize(false)

	logger.WithField("key", "value").Info("with field")

	output := buf.String()
	if !strings.Contains(output, "key=value") {
		t.Errorf("expected field 'key=value', got: %s", output)
	}
}

func TestLoggerWithFieldsJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := New("resolve")
	logger.SetWriter(&buf)
	logger.SetFormat(FormatJSON)

	logger.WithFields(Fields{
		"printer":  "ENDER5_PLUS",
		"baudrate": 250000,
	}).Info("resolved")

	_, raw := decodeLine(t, buf.Bytes())
	if raw["printer"] != "ENDER5_PLUS" {
		t.Errorf("expected printer=ENDER5_PLUS, got: %v", raw["printer"])
	}
	if raw["baudrate"] != float64(250000) {
		t.Errorf("expected baudrate=250000, got: %v", raw["baudrate"])
	}
}

func TestLoggerWithError(t *testing.T) {
	var buf bytes.Buffer
	logger := New("test")
	logger.SetWriter(&buf)
	logger.SetFormat(FormatJSON)

	logger.WithError(errors.New("something went wrong")).Error("operation failed")

	entry, raw := decodeLine(t, buf.Bytes())
	if entry.Level != "error" {
		t.Errorf("expected level error, got %s", entry.Level)
	}
	if raw["error"] != "something went wrong" {
		t.Errorf("expected error field, got: %v", raw)
	}
}

func TestLoggerWithPrefix(t *testing.T) {
	var buf bytes.Buffer
	logger := New("parent")
	logger.SetWriter(&buf)
	logger.SetLevel(DEBUG)
	logger.SetColorize(false)

	child := logger.WithPrefix("child")
	child.Debug("child message")

	output := buf.String()
	if !strings.Contains(output, "component=child") {
		t.Errorf("expected component=child, got: %s", output)
	}
	if child.GetLevel() != DEBUG {
		t.Errorf("expected child to inherit DEBUG, got %v", child.GetLevel())
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected LogLevel
	}{
		{"DEBUG", DEBUG},
		{"debug", DEBUG},
		{"INFO", INFO},
		{"info", INFO},
		{"WARN", WARN},
		{"warn", WARN},
		{"WARNING", WARN},
		{"ERROR", ERROR},
		{"error", ERROR},
		{"invalid", INFO}, // default
		{"", INFO},        // default
	}

	for _, tt := range tests {
		result := ParseLevel(tt.input)
		if result != tt.expected {
			t.Errorf("ParseLevel(%q) = %v, expected %v", tt.input, result, tt.expected)
		}
	}
}

func TestLookupLevel(t *testing.T) {
	if l, ok := LookupLevel(" Warning "); !ok || l != WARN {
		t.Errorf("LookupLevel(Warning) = %v, %v", l, ok)
	}
	for _, bad := range []string{"", "verbose", "2"} {
		if _, ok := LookupLevel(bad); ok {
			t.Errorf("LookupLevel(%q) accepted an unknown level", bad)
		}
	}
}

func TestLogLevelString(t *testing.T) {
	tests := []struct {
		level    LogLevel
		expected string
	}{
		{DEBUG, "DEBUG"},
		{INFO, "INFO"},
		{WARN, "WARN"},
		{ERROR, "ERROR"},
		{LogLevel(99), "UNKNOWN"},
	}

	for _, tt := range tests {
		result := tt.level.String()
		if result != tt.expected {
			t.Errorf("LogLevel(%d).String() = %q, expected %q", tt.level, result, tt.expected)
		}
	}
}

func TestEntryChaining(t *testing.T) {
	var buf bytes.Buffer
	logger := New("test")
	logger.SetWriter(&buf)
	logger.SetFormat(FormatJSON)

	logger.
		WithField("a", 1).
		WithField("b", 2).
		WithFields(Fields{"c": 3}).
		Info("chained")

	_, raw := decodeLine(t, buf.Bytes())
	for _, k := range []string{"a", "b", "c"} {
		if _, ok := raw[k]; !ok {
			t.Errorf("expected field %q in %v", k, raw)
		}
	}
}

func TestConfigureFromEnv(t *testing.T) {
	t.Setenv("UFW_LOG_LEVEL", "warn")
	t.Setenv("UFW_LOG_FORMAT", "json")

	var buf bytes.Buffer
	logger := New("env")
	logger.SetWriter(&buf)
	ConfigureFromEnv(logger)

	logger.Info("dropped")
	if buf.Len() != 0 {
		t.Fatalf("expected INFO to be filtered, got %s", buf.String())
	}
	logger.Warn("kept")
	entry, _ := decodeLine(t, buf.Bytes())
	if entry.Message != "kept" {
		t.Errorf("expected 'kept', got %q", entry.Message)
	}
}

func TestGetLogger(t *testing.T) {
	logger := GetLogger("mycomponent")
	if logger == nil {
		t.Fatal("expected logger, got nil")
	}
	if logger.prefix != "mycomponent" {
		t.Errorf("expected prefix 'mycomponent', got %q", logger.prefix)
	}
}

func TestSetAllReachesComponentLoggers(t *testing.T) {
	a := GetLogger("alpha")
	b := GetLogger("beta")
	var buf bytes.Buffer
	SetWriterAll(&buf)
	SetFormatAll(FormatJSON)
	SetLevelAll(DEBUG)
	t.Cleanup(func() {
		SetWriterAll(os.Stderr)
		SetFormatAll(FormatText)
		SetLevelAll(INFO)
	})

	a.Debug("from alpha")
	b.Debug("from beta")
	out := buf.String()
	if !strings.Contains(out, `"component":"alpha"`) || !strings.Contains(out, `"component":"beta"`) {
		t.Errorf("expected both components in output, got %q", out)
	}
	if b.GetLevel() != DEBUG {
		t.Errorf("expected DEBUG, got %v", b.GetLevel())
	}
}

func BenchmarkLoggerJSON(b *testing.B) {
	var buf bytes.Buffer
	logger := New("bench")
	logger.SetWriter(&buf)
	logger.SetFormat(FormatJSON)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		buf.Reset()
		logger.Info("benchmark message %d", i)
	}
}
