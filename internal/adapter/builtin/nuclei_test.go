package builtin

import (
	"testing"

	"github.com/neosec/neosec/internal/adapter"
)

func TestNucleiParseOutput(t *testing.T) {
	n := NewNuclei()
	stdout := []byte(`{"template-id":"CVE-2021-12345","info":{"name":"Example RCE","severity":"critical"},"host":"https://example.com","matched-at":"https://example.com/vuln","description":"remote code execution"}` + "\n")

	result, err := n.ParseOutput(stdout, nil, adapter.FormatJSON)
	if err != nil {
		t.Fatalf("ParseOutput: %v", err)
	}
	if len(result.Vulnerabilities) != 1 {
		t.Fatalf("expected 1 vulnerability, got %d", len(result.Vulnerabilities))
	}
	v := result.Vulnerabilities[0]
	if v.Severity != "critical" || v.Name != "Example RCE" {
		t.Fatalf("unexpected vulnerability: %+v", v)
	}
}

func TestNucleiBuildCommand(t *testing.T) {
	n := NewNuclei()
	args, err := n.BuildCommand("https://example.com", adapter.OptionMap{
		"severity": adapter.StringOption("critical"),
	})
	if err != nil {
		t.Fatalf("BuildCommand: %v", err)
	}
	if len(args) < 2 || args[0] != "-jsonl" {
		t.Fatalf("unexpected args: %v", args)
	}
}
