package logger

import (
	"bytes"
	"encoding/json"
	"testing"
)

func TestNew_JSONIncludesServiceAndComponent(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: INFO, Format: JSON, Output: &buf, Service: "clinic"})

	log.Component("availability").Info("slots computed", "count", 3)

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected JSON output, got %q: %v", buf.String(), err)
	}
	if entry[SERVICE] != "clinic" {
		t.Errorf("service = %v, want clinic", entry[SERVICE])
	}
	if entry[COMPONENT] != "availability" {
		t.Errorf("component = %v, want availability", entry[COMPONENT])
	}
	if entry["count"] != float64(3) {
		t.Errorf("count = %v, want 3", entry["count"])
	}
}

func TestNew_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: WARN, Format: TEXT, Output: &buf})

	log.Info("dropped")
	if buf.Len() != 0 {
		t.Errorf("info should be filtered at warn level, got %q", buf.String())
	}

	log.Warn("kept")
	if buf.Len() == 0 {
		t.Errorf("warn should be written at warn level")
	}
}

func TestNop_DropsEverything(t *testing.T) {
	log := Nop()
	log.Error("nothing to see")
	log.Errorf("still %s", "nothing")
}
