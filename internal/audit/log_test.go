package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"qala.org/internal/obs"
	"qala.org/internal/session"
)

func captureLogger(t *testing.T) *bytes.Buffer {
	t.Helper()
	logger := obs.Logger()
	orig := logger.Writer()
	logger.SetFlags(0)
	var buf bytes.Buffer
	logger.SetOutput(&buf)
	t.Cleanup(func() { logger.SetOutput(orig) })
	return &buf
}

func TestLogEventEnrichesFromContext(t *testing.T) {
	buf := captureLogger(t)

	ctx := WithRequestID(context.Background(), "req-123")
	ctx = session.ContextWithIdentity(ctx, "05551234567", []string{session.RoleCitizen})

	if err := LogEvent(ctx, "login.honeypot_triggered", map[string]any{"phone": "999999"}); err != nil {
		t.Fatalf("LogEvent: %v", err)
	}

	var entry map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(buf.String())), &entry); err != nil {
		t.Fatalf("entry is not valid JSON: %v", err)
	}
	if entry["type"] != "audit" || entry["event"] != "login.honeypot_triggered" {
		t.Fatalf("unexpected entry: %v", entry)
	}
	if entry["request_id"] != "req-123" {
		t.Fatalf("request_id = %v", entry["request_id"])
	}
	if entry["identity"] != "05551234567" {
		t.Fatalf("identity = %v", entry["identity"])
	}
	fields, _ := entry["fields"].(map[string]any)
	if fields["phone"] != "999999" {
		t.Fatalf("fields = %v", fields)
	}
}

func TestLogEventRequiresName(t *testing.T) {
	if err := LogEvent(context.Background(), "  ", nil); err == nil {
		t.Fatal("blank event name must fail")
	}
}

func TestLogEventWithoutContextFields(t *testing.T) {
	buf := captureLogger(t)

	if err := LogEvent(context.Background(), "portal.broadcast", nil); err != nil {
		t.Fatalf("LogEvent: %v", err)
	}
	var entry map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(buf.String())), &entry); err != nil {
		t.Fatalf("entry is not valid JSON: %v", err)
	}
	if _, ok := entry["request_id"]; ok {
		t.Fatal("request_id must be absent without context")
	}
	if _, ok := entry["identity"]; ok {
		t.Fatal("identity must be absent without context")
	}
}
