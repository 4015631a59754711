package log

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func TestFileLoggerCreatesDirectoryAndFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "events.tlog")

	logger, err := NewFileLogger(path)
	if err != nil {
		t.Fatalf("NewFileLogger failed: %v", err)
	}
	defer logger.Close()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Error("log file was not created")
	}
}

func TestFileLoggerRoundTripThroughReader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.tlog")

	logger, err := NewFileLogger(path)
	if err != nil {
		t.Fatalf("NewFileLogger failed: %v", err)
	}

	ts := time.Date(2025, 6, 1, 12, 0, 0, 123456789, time.UTC)
	logger.Log(Event{
		Timestamp:    ts,
		ConnectionID: "conn-1",
		Layer:        LayerHTTP,
		Category:     CategoryMessage,
		Request:      &RequestEvent{Method: "GET", URL: "/ping", Route: "/ping"},
	})
	logger.Log(Event{
		Timestamp: ts.Add(time.Second),
		Direction: DirectionInternal,
		Layer:     LayerSafety,
		Category:  CategoryState,
		StateChange: &StateChangeEvent{
			Entity:   StateEntityRail,
			OldState: "ON",
			NewState: "OFF",
			Reason:   "interlock expired",
		},
	})
	if err := logger.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	r, err := NewReader(path)
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	defer r.Close()

	first, err := r.Next()
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if !first.Timestamp.Equal(ts) {
		t.Errorf("Timestamp = %v, want %v", first.Timestamp, ts)
	}
	if first.Request == nil || first.Request.URL != "/ping" {
		t.Errorf("Request = %+v, want URL /ping", first.Request)
	}

	second, err := r.Next()
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if second.StateChange == nil || second.StateChange.Entity != StateEntityRail {
		t.Errorf("StateChange = %+v, want rail change", second.StateChange)
	}

	if _, err := r.Next(); !errors.Is(err, io.EOF) {
		t.Errorf("Next at end = %v, want io.EOF", err)
	}
}

func TestFileLoggerIgnoresLogAfterClose(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.tlog")
	logger, err := NewFileLogger(path)
	if err != nil {
		t.Fatalf("NewFileLogger failed: %v", err)
	}
	_ = logger.Close()
	_ = logger.Close()

	logger.Log(Event{Timestamp: time.Now()})

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Size() != 0 {
		t.Errorf("file size = %d, want 0", info.Size())
	}
}

func TestFileLoggerConcurrentWrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.tlog")
	logger, err := NewFileLogger(path)
	if err != nil {
		t.Fatalf("NewFileLogger failed: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 25; j++ {
				logger.Log(Event{Timestamp: time.Now(), Layer: LayerTransport})
			}
		}()
	}
	wg.Wait()
	_ = logger.Close()

	r, err := NewReader(path)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	count := 0
	for {
		if _, err := r.Next(); err != nil {
			if !errors.Is(err, io.EOF) {
				t.Fatalf("Next: %v", err)
			}
			break
		}
		count++
	}
	if count != 200 {
		t.Errorf("read %d events, want 200", count)
	}
	if logger.Dropped() != 0 {
		t.Errorf("Dropped() = %d, want 0", logger.Dropped())
	}
}
