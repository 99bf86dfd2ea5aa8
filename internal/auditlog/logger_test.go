package auditlog

import (
	"bytes"
	"strings"
	"testing"
)

func TestLoggerScrubsCredentials(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf)
	l.LogToolCall("t1", "nmap", []string{"--api-key=supersecret"})

	out := buf.String()
	if strings.Contains(out, "supersecret") {
		t.Errorf("expected credential to be redacted, got: %s", out)
	}
	if !strings.Contains(out, "REDACTED") {
		t.Errorf("expected REDACTED marker, got: %s", out)
	}
}

func TestLoggerCascadeSkip(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf)
	l.LogCascadeSkip("t2", "t1")

	out := buf.String()
	if !strings.Contains(out, "task=t2") || !strings.Contains(out, "upstream=t1") {
		t.Errorf("unexpected log line: %s", out)
	}
}
