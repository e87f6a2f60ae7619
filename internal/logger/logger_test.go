package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestInitDevelopmentText(t *testing.T) {
	var buf bytes.Buffer
	log := initWith(&buf, true, "")
	log.Debug("feed assembled", "viewer", "user-1")

	out := buf.String()
	if !strings.Contains(out, "feed assembled") || !strings.Contains(out, "viewer=user-1") {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestInitProductionJSON(t *testing.T) {
	var buf bytes.Buffer
	log := initWith(&buf, false, "")
	log.Debug("hidden")
	log.Info("visible", "posts", 3)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected only the info record, got %d lines", len(lines))
	}
	var rec map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &rec); err != nil {
		t.Fatalf("expected json: %v", err)
	}
	if rec["msg"] != "visible" {
		t.Fatalf("unexpected msg: %v", rec["msg"])
	}
}
