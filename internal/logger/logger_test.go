package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestZapLoggerWritesStructuredField(t *testing.T) {
	var buf bytes.Buffer
	log := NewZapLogger(New("debug", zapcore.AddSync(&buf)))

	log.InfoObj("fetch done", "fetch_meta", map[string]any{"status": 200})

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("decode log line %q: %v", buf.String(), err)
	}
	if entry["msg"] != "fetch done" {
		t.Fatalf("unexpected msg %v", entry["msg"])
	}
	meta, ok := entry["fetch_meta"].(map[string]any)
	if !ok || meta["status"] != float64(200) {
		t.Fatalf("unexpected field %v", entry["fetch_meta"])
	}
	if _, ok := entry["ts"]; !ok {
		t.Fatalf("expected ts key in %v", entry)
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := NewZapLogger(New("warn", zapcore.AddSync(&buf)))

	log.DebugObj("hidden", "k", 1)
	log.InfoObj("hidden", "k", 1)
	if buf.Len() != 0 {
		t.Fatalf("expected debug/info to be filtered, got %q", buf.String())
	}
	log.WarnObj("shown", "k", 1)
	if buf.Len() == 0 {
		t.Fatalf("expected warn entry")
	}
}

func TestPackageHelpersBeforeInit(t *testing.T) {
	S = nil
	InfoObj("ignored", "k", 1)
	if err := Close(); err != nil {
		t.Fatalf("Close before Init: %v", err)
	}
}
