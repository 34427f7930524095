package logging

import (
	"bytes"
	"encoding/json"
	"testing"
)

func TestNewWithWriterTagsAppAndFiltersLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, "PeerWallet", "warn")

	logger.Info("dropped")
	logger.Warn("kept", "key", "value")

	var entry map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry); err != nil {
		t.Fatalf("expected a single json line, got %q: %v", buf.String(), err)
	}
	if entry["msg"] != "kept" || entry["app"] != "PeerWallet" || entry["key"] != "value" {
		t.Fatalf("unexpected entry: %v", entry)
	}
}

func TestNewWithWriterFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, "", "chatty")
	logger.Debug("hidden")
	if buf.Len() != 0 {
		t.Fatalf("expected debug to be filtered at default info level, got %q", buf.String())
	}
	logger.Info("shown")
	if buf.Len() == 0 {
		t.Fatal("expected info output")
	}
}
