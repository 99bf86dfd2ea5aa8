package builtin

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/neosec/neosec/internal/adapter"
)

// Nuclei wraps the nuclei vulnerability scanner, requesting one JSON
// object per line (-jsonl) and parsing each into a ParsedVulnerability.
type Nuclei struct {
	BinaryPath string
	schema     *adapter.OptionSchema
}

// NewNuclei constructs the nuclei adapter with its option schema compiled.
func NewNuclei() Nuclei {
	schema, err := adapter.NewOptionSchema("nuclei", map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"templates": map[string]any{"type": "string"},
			"severity":  map[string]any{"type": "string", "enum": []any{"info", "low", "medium", "high", "critical"}},
			"rate":      map[string]any{"type": "integer", "minimum": 1},
		},
	})
	if err != nil {
		panic(fmt.Sprintf("builtin: compile nuclei schema: %v", err))
	}
	return Nuclei{schema: schema}
}

func (n Nuclei) Name() string               { return "nuclei" }
func (n Nuclei) Category() adapter.Category { return adapter.CategoryScanner }

func (n Nuclei) Dependencies() []adapter.BinaryDep {
	return []adapter.BinaryDep{{Name: "nuclei", Path: n.BinaryPath}}
}

func (n Nuclei) Schema() *adapter.OptionSchema { return n.schema }

func (n Nuclei) BuildCommand(target adapter.Target, opts adapter.OptionMap) ([]string, error) {
	args := []string{"-jsonl", "-u", string(target)}

	if v, ok := opts["templates"]; ok && v.Kind == adapter.KindString {
		args = append(args, "-t", v.Str)
	}
	if v, ok := opts["severity"]; ok && v.Kind == adapter.KindString {
		args = append(args, "-severity", v.Str)
	}
	if v, ok := opts["rate"]; ok && v.Kind == adapter.KindInt {
		args = append(args, "-rate-limit", fmt.Sprintf("%d", v.Int))
	}

	return args, nil
}

type nucleiFinding struct {
	TemplateID string `json:"template-id"`
	Info       struct {
		Name     string   `json:"name"`
		Severity string   `json:"severity"`
		Tags     []string `json:"tags"`
	} `json:"info"`
	Host        string `json:"host"`
	MatchedAt   string `json:"matched-at"`
	Description string `json:"description"`
}

// ParseOutput parses one nuclei JSON-lines finding per line into a
// ParsedVulnerability.
func (n Nuclei) ParseOutput(stdout, stderr []byte, hint adapter.OutputFormat) (adapter.ParsedResult, error) {
	var result adapter.ParsedResult
	scanner := bufio.NewScanner(bytes.NewReader(stdout))
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var f nucleiFinding
		if err := json.Unmarshal(line, &f); err != nil {
			continue
		}
		result.Vulnerabilities = append(result.Vulnerabilities, adapter.ParsedVulnerability{
			Name:        f.Info.Name,
			Description: f.Description,
			Severity:    f.Info.Severity,
			Category:    "web",
			Affected:    f.MatchedAt,
			Evidence:    f.TemplateID,
		})
		if f.Host != "" {
			result.Hosts = append(result.Hosts, adapter.ParsedHost{Address: f.Host})
		}
	}
	return result, scanner.Err()
}
