package log

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"
	"time"
)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to parse log output %q: %v", buf.String(), err)
	}
	return entry
}

func TestSlogAdapterLogsRequest(t *testing.T) {
	var buf bytes.Buffer
	adapter := NewSlogAdapter(slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))

	adapter.Log(Event{
		Timestamp:    time.Now(),
		ConnectionID: "conn-123",
		Layer:        LayerHTTP,
		Category:     CategoryMessage,
		Request:      &RequestEvent{Method: "POST", URL: "/api/set_relay_pwr", Route: "/api/set_relay_pwr"},
	})

	entry := decodeLine(t, &buf)
	if entry["conn_id"] != "conn-123" {
		t.Errorf("conn_id = %v", entry["conn_id"])
	}
	if entry["method"] != "POST" {
		t.Errorf("method = %v", entry["method"])
	}
	if entry["level"] != "DEBUG" {
		t.Errorf("level = %v, want DEBUG", entry["level"])
	}
}

func TestSlogAdapterSafetyChangesAtInfo(t *testing.T) {
	var buf bytes.Buffer
	adapter := NewSlogAdapter(slog.New(slog.NewJSONHandler(&buf, nil)))

	adapter.Log(Event{
		Timestamp: time.Now(),
		Layer:     LayerSafety,
		Category:  CategoryState,
		StateChange: &StateChangeEvent{
			Entity:   StateEntityChannel,
			Name:     "W",
			OldState: "ON",
			NewState: "OFF",
			Reason:   "interlock expired",
		},
	})

	entry := decodeLine(t, &buf)
	if entry["level"] != "INFO" {
		t.Errorf("level = %v, want INFO", entry["level"])
	}
	if entry["entity"] != "CHANNEL" || entry["name"] != "W" {
		t.Errorf("entity/name = %v/%v", entry["entity"], entry["name"])
	}
}

func TestSlogAdapterErrorsAtWarn(t *testing.T) {
	var buf bytes.Buffer
	adapter := NewSlogAdapter(slog.New(slog.NewJSONHandler(&buf, nil)))

	code := 500
	adapter.Log(Event{
		Timestamp: time.Now(),
		Layer:     LayerHTTP,
		Category:  CategoryError,
		Error:     &ErrorEventData{Layer: LayerHTTP, Message: "boom", Code: &code},
	})

	entry := decodeLine(t, &buf)
	if entry["level"] != "WARN" {
		t.Errorf("level = %v, want WARN", entry["level"])
	}
	if entry["error_code"] != float64(500) {
		t.Errorf("error_code = %v", entry["error_code"])
	}
}

type countingLogger struct{ n int }

func (c *countingLogger) Log(Event) { c.n++ }

func TestMultiLoggerFansOutAndDropsNil(t *testing.T) {
	a, b := &countingLogger{}, &countingLogger{}
	m := NewMultiLogger(a, nil, b)

	if m.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", m.Len())
	}
	m.Log(Event{})
	m.Log(Event{})

	if a.n != 2 || b.n != 2 {
		t.Errorf("counts = %d, %d, want 2, 2", a.n, b.n)
	}
}

func TestOrNoop(t *testing.T) {
	if _, ok := OrNoop(nil).(NoopLogger); !ok {
		t.Error("OrNoop(nil) should return NoopLogger")
	}
	c := &countingLogger{}
	if OrNoop(c) != Logger(c) {
		t.Error("OrNoop should return non-nil logger unchanged")
	}
}
