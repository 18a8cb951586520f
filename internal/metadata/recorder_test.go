package metadata_test

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/kodesmith/searchcore/internal/metadata"
)

func newTestRecorder(buf *bytes.Buffer, tag string) metadata.Recorder {
	logger := slog.New(slog.NewJSONHandler(buf, nil))
	return metadata.NewRecorder(logger, tag)
}

func TestRecorder_RecordFetch(t *testing.T) {
	var buf bytes.Buffer
	r := newTestRecorder(&buf, "session-1")

	r.RecordFetch("https://example.com/page", 200, 150*time.Millisecond, "text/html", 0, 2)

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected valid JSON log line, got error: %v (line: %s)", err, buf.String())
	}
	if entry["msg"] != "fetch" {
		t.Errorf("expected msg=fetch, got %v", entry["msg"])
	}
	if entry["url"] != "https://example.com/page" {
		t.Errorf("expected url to be recorded, got %v", entry["url"])
	}
	if entry["component"] != "session-1" {
		t.Errorf("expected component tag session-1, got %v", entry["component"])
	}
}

func TestRecorder_RecordError_IncludesAttributes(t *testing.T) {
	var buf bytes.Buffer
	r := newTestRecorder(&buf, "session-2")

	r.RecordError(time.Now(), "fetcher", "fetch", metadata.CauseNetworkFailure, "connection reset",
		[]metadata.Attribute{metadata.NewAttr(metadata.AttrURL, "https://example.com")})

	line := buf.String()
	if !strings.Contains(line, "network_failure") {
		t.Errorf("expected cause label in log line, got: %s", line)
	}
	if !strings.Contains(line, "connection reset") {
		t.Errorf("expected error string in log line, got: %s", line)
	}
	if !strings.Contains(line, "https://example.com") {
		t.Errorf("expected attribute value in log line, got: %s", line)
	}
}

func TestRecorder_RecordFinalCrawlStats(t *testing.T) {
	var buf bytes.Buffer
	r := newTestRecorder(&buf, "session-3")

	r.RecordFinalCrawlStats(12, 1, 0, 5*time.Second)

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected valid JSON log line, got error: %v", err)
	}
	if entry["msg"] != "session_complete" {
		t.Errorf("expected msg=session_complete, got %v", entry["msg"])
	}
	if entry["total_pages"] != float64(12) {
		t.Errorf("expected total_pages=12, got %v", entry["total_pages"])
	}
}

func TestNewRecorder_NilLoggerFallsBackToDefault(t *testing.T) {
	r := metadata.NewRecorder(nil, "fallback")
	// Must not panic when logging through the default logger.
	r.RecordArtifact("output/doc.json")
}
