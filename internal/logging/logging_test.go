package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestNewFallsBackToInfo(t *testing.T) {
	logger := NewWithOutput("chatty", &bytes.Buffer{})
	if logger.GetLevel() != logrus.InfoLevel {
		t.Fatalf("expected info level, got %s", logger.GetLevel())
	}
}

func TestLogErrorWritesStructuredFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithOutput("debug", &buf)

	LogError(logger, "service", "SetSellingPrice", "write history", map[string]string{"recipe_id": "rcp-1"}, errors.New("boom"))

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected json log line, got %q: %v", buf.String(), err)
	}
	if entry["module"] != "service" || entry["funcName"] != "SetSellingPrice" {
		t.Fatalf("missing module fields: %v", entry)
	}
	if entry["msg"] != "boom" || entry["level"] != "error" {
		t.Fatalf("unexpected message or level: %v", entry)
	}
	if _, ok := entry["data"]; !ok {
		t.Fatalf("expected data field")
	}
}

func TestLogWarnOmitsNilData(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithOutput("warn", &buf)

	LogWarn(logger, "cache", "Get", "redis", nil, errors.New("timeout"))

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("decode log line: %v", err)
	}
	if _, ok := entry["data"]; ok {
		t.Fatalf("did not expect data field: %v", entry)
	}
	if entry["level"] != "warning" {
		t.Fatalf("expected warning level, got %v", entry["level"])
	}
}
