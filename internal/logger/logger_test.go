package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func newBufLogger(level Level) (*Logger, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	l := New(Config{
		Level:  level,
		Pretty: false,
		Output: buf,
	})
	return l, buf
}

func TestLogger_JSONOutput(t *testing.T) {
	l, buf := newBufLogger(InfoLevel)
	l.WithComponent("crawler").WithURL("https://example.com/a").Info("visiting")

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if entry["component"] != "crawler" {
		t.Errorf("component = %v", entry["component"])
	}
	if entry["url"] != "https://example.com/a" {
		t.Errorf("url = %v", entry["url"])
	}
	if entry["message"] != "visiting" {
		t.Errorf("message = %v", entry["message"])
	}
}

func TestLogger_LevelFiltering(t *testing.T) {
	l, buf := newBufLogger(WarnLevel)
	l.Debug("hidden")
	l.Info("hidden too")
	l.Warn("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("low-level messages leaked: %q", out)
	}
	if !strings.Contains(out, "shown") {
		t.Errorf("warn message missing: %q", out)
	}
}

func TestLogger_VisitEvent(t *testing.T) {
	l, buf := newBufLogger(InfoLevel)
	l.VisitEvent(InfoLevel, "https://example.com/b", 2).Msg("retrying")

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if entry["attempt"] != float64(2) {
		t.Errorf("attempt = %v", entry["attempt"])
	}
}

func TestLogger_Nop(t *testing.T) {
	// Must not panic and produce nothing observable.
	l := Nop()
	l.Info("dropped")
	l.WithURL("x").Errorf("dropped %d", 1)
}

func TestParseLevel(t *testing.T) {
	lv, err := ParseLevel("debug")
	if err != nil {
		t.Fatalf("ParseLevel() error = %v", err)
	}
	if lv != DebugLevel {
		t.Errorf("ParseLevel(debug) = %v", lv)
	}
	if _, err := ParseLevel("nope"); err == nil {
		t.Error("expected error for unknown level")
	}
}
