package logger

import (
	"encoding/json"
	"fmt"
	"testing"
)

func TestLogBufferKeepsNewestLines(t *testing.T) {
	lb := NewLogBuffer(3)
	for i := 0; i < 5; i++ {
		fmt.Fprintf(lb, "line %d", i)
	}

	got := lb.GetLogs()
	want := []string{"line 2", "line 3", "line 4"}
	if len(got) != len(want) {
		t.Fatalf("expected %d lines, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("line %d: expected %q, got %q", i, want[i], got[i])
		}
	}
}

func TestNewTeesIntoSink(t *testing.T) {
	lb := NewLogBuffer(0)
	log, err := New("prod", lb)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	log.With("job", "transcription-1").Info("job submitted", "bucket", "media")
	log.Sync()

	lines := lb.GetLogs()
	if len(lines) != 1 {
		t.Fatalf("expected 1 buffered line, got %d", len(lines))
	}
	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("buffered line is not JSON: %v", err)
	}
	if entry["msg"] != "job submitted" || entry["job"] != "transcription-1" || entry["bucket"] != "media" {
		t.Fatalf("unexpected entry: %v", entry)
	}
}
