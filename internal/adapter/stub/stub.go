// Package stub provides deterministic adapters used by bus and
// orchestrator tests in place of real security tools, grounded on the
// teacher's internal/adapter mock-adapter test fixtures.
package stub

import (
	"encoding/json"
	"fmt"

	"github.com/neosec/neosec/internal/adapter"
)

// Echo is a minimal adapter wrapping /bin/echo: it prints its "message"
// option to stdout as a JSON envelope and produces no findings. Used by
// orchestrator tests to exercise real process spawn/exit without depending
// on an actual security tool being installed.
type Echo struct {
	NameValue string
	Message   string
}

func (e Echo) Name() string               { return e.NameValue }
func (e Echo) Category() adapter.Category { return adapter.CategoryOther }

func (e Echo) Dependencies() []adapter.BinaryDep {
	return []adapter.BinaryDep{{Name: "echo"}}
}

func (e Echo) Schema() *adapter.OptionSchema { return nil }

func (e Echo) BuildCommand(target adapter.Target, opts adapter.OptionMap) ([]string, error) {
	msg := e.Message
	if v, ok := opts["message"]; ok && v.Kind == adapter.KindString {
		msg = v.Str
	}
	payload, err := json.Marshal(map[string]string{"target": string(target), "message": msg})
	if err != nil {
		return nil, fmt.Errorf("marshal echo payload: %w", err)
	}
	return []string{string(payload)}, nil
}

func (e Echo) ParseOutput(stdout, stderr []byte, hint adapter.OutputFormat) (adapter.ParsedResult, error) {
	return adapter.ParsedResult{}, nil
}

// Sleep wraps /bin/sleep for timeout/cancellation tests.
type Sleep struct {
	NameValue string
	Seconds   string
}

func (s Sleep) Name() string               { return s.NameValue }
func (s Sleep) Category() adapter.Category { return adapter.CategoryOther }

func (s Sleep) Dependencies() []adapter.BinaryDep {
	return []adapter.BinaryDep{{Name: "sleep"}}
}

func (s Sleep) Schema() *adapter.OptionSchema { return nil }

func (s Sleep) BuildCommand(target adapter.Target, opts adapter.OptionMap) ([]string, error) {
	secs := s.Seconds
	if v, ok := opts["seconds"]; ok && v.Kind == adapter.KindString {
		secs = v.Str
	}
	return []string{secs}, nil
}

func (s Sleep) ParseOutput(stdout, stderr []byte, hint adapter.OutputFormat) (adapter.ParsedResult, error) {
	return adapter.ParsedResult{}, nil
}

// Fail wraps /bin/false so cascade-skip tests can force a deterministic
// task failure.
type Fail struct {
	NameValue string
}

func (f Fail) Name() string               { return f.NameValue }
func (f Fail) Category() adapter.Category { return adapter.CategoryOther }

func (f Fail) Dependencies() []adapter.BinaryDep {
	return []adapter.BinaryDep{{Name: "false"}}
}

func (f Fail) Schema() *adapter.OptionSchema { return nil }

func (f Fail) BuildCommand(target adapter.Target, opts adapter.OptionMap) ([]string, error) {
	return nil, nil
}

func (f Fail) ParseOutput(stdout, stderr []byte, hint adapter.OutputFormat) (adapter.ParsedResult, error) {
	return adapter.ParsedResult{}, nil
}
