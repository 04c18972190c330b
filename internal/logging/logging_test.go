package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func TestInit_JSON(t *testing.T) {
	defer InitDefault()

	var buf bytes.Buffer
	Init(&buf, Options{Level: "warn", Format: "json"})

	log.Info().Msg("hidden")
	log.Warn().Str("k", "v").Msg("shown")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected exactly one log line, got %d: %q", len(lines), buf.String())
	}
	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("log line is not JSON: %v", err)
	}
	if entry["message"] != "shown" || entry["k"] != "v" {
		t.Errorf("unexpected log entry: %v", entry)
	}
	if zerolog.GlobalLevel() != zerolog.WarnLevel {
		t.Errorf("global level = %v, want warn", zerolog.GlobalLevel())
	}
}

func TestMultiLogger(t *testing.T) {
	var a, b bytes.Buffer
	m := NewMultiLogger(
		NewZLogger(zerolog.New(&a)),
		NewZLogger(zerolog.New(&b)),
	)
	m.Info("hello %s", "world")

	for name, buf := range map[string]*bytes.Buffer{"a": &a, "b": &b} {
		if !strings.Contains(buf.String(), "hello world") {
			t.Errorf("logger %s did not receive message: %q", name, buf.String())
		}
	}
}
