package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
)

func TestNewRejectsInvalidLevel(t *testing.T) {
	_, err := New(Config{Level: "verbose"})
	if err == nil {
		t.Fatal("expected error for invalid level")
	}
}

func TestNewRejectsInvalidFormat(t *testing.T) {
	_, err := New(Config{Format: "xml"})
	if err == nil {
		t.Fatal("expected error for invalid format")
	}
}

func TestLoggerJSONOutput(t *testing.T) {
	buf := &bytes.Buffer{}
	logger, err := New(Config{Level: "info", Format: "json", Writer: buf})
	if err != nil {
		t.Fatalf("failed to create logger: %v", err)
	}

	logger.Info("project suspended", "project_id", "proj-1", "cause", "cap:storage_mb")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log output is not JSON: %v", err)
	}
	if entry["msg"] != "project suspended" {
		t.Errorf("unexpected message: %v", entry["msg"])
	}
	if entry["project_id"] != "proj-1" {
		t.Errorf("unexpected project_id: %v", entry["project_id"])
	}
}

func TestLoggerLevelGating(t *testing.T) {
	buf := &bytes.Buffer{}
	logger, err := New(Config{Level: "warn", Format: "json", Writer: buf})
	if err != nil {
		t.Fatalf("failed to create logger: %v", err)
	}

	logger.Info("should not appear")
	if buf.Len() != 0 {
		t.Errorf("info message logged at warn level: %s", buf.String())
	}

	logger.Warn("should appear")
	if buf.Len() == 0 {
		t.Error("warn message not logged at warn level")
	}
}

func TestLoggerContextFields(t *testing.T) {
	buf := &bytes.Buffer{}
	logger, err := New(Config{Level: "info", Format: "json", Writer: buf})
	if err != nil {
		t.Fatalf("failed to create logger: %v", err)
	}

	ctx := WithSweepID(WithProjectID(context.Background(), "proj-9"), "sweep-42")
	logger.InfoContext(ctx, "checking project")

	out := buf.String()
	if !strings.Contains(out, "proj-9") {
		t.Errorf("expected project_id in output: %s", out)
	}
	if !strings.Contains(out, "sweep-42") {
		t.Errorf("expected sweep_id in output: %s", out)
	}
}

func TestLoggerRedactsEmails(t *testing.T) {
	buf := &bytes.Buffer{}
	logger, err := New(Config{Level: "info", Format: "json", RedactPII: true, Writer: buf})
	if err != nil {
		t.Fatalf("failed to create logger: %v", err)
	}

	logger.Info("notifying owner", "recipient", "owner@example.com")

	out := buf.String()
	if strings.Contains(out, "owner@example.com") {
		t.Errorf("expected email to be redacted: %s", out)
	}
	if !strings.Contains(out, "@example.com") {
		t.Errorf("expected domain to survive redaction: %s", out)
	}
}

func TestRedactArgsSensitiveKeys(t *testing.T) {
	r := NewRedactor()
	args := r.RedactArgs("api_key", "sk-verysecretvalue", "project_id", "proj-1")

	if args[1] == "sk-verysecretvalue" {
		t.Error("expected api_key value to be masked")
	}
	if args[3] != "proj-1" {
		t.Errorf("expected project_id to pass through, got %v", args[3])
	}
}

func TestRedactEmail(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"owner@example.com", "o***@example.com"},
		{"not-an-email", "not-an-email"},
		{"@example.com", "***@example.com"},
	}
	for _, tt := range tests {
		if got := RedactEmail(tt.in); got != tt.want {
			t.Errorf("RedactEmail(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
