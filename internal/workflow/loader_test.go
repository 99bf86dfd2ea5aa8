package workflow

import "testing"

func TestUnmarshalParsesTasksAndDependencies(t *testing.T) {
	data := []byte(`
name: example-scan
description: a small workflow
global_timeout: 120
tasks:
  - id: discover
    tool: nmap
    options:
      ports: "1-1000"
  - id: probe
    tool: nuclei
    depends_on: ["discover"]
    target: staging.example.com
    timeout: 30
    labels:
      stage: deep
`)

	spec, err := Unmarshal(data)
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if spec.Name != "example-scan" {
		t.Fatalf("expected name example-scan, got %q", spec.Name)
	}
	if spec.GlobalTimeoutSec != 120 {
		t.Fatalf("expected global timeout 120, got %d", spec.GlobalTimeoutSec)
	}
	if len(spec.Tasks) != 2 {
		t.Fatalf("expected 2 tasks, got %d", len(spec.Tasks))
	}

	probe := spec.Tasks[1]
	if probe.Target != "staging.example.com" {
		t.Fatalf("expected per-task target override, got %q", probe.Target)
	}
	if len(probe.DependsOn) != 1 || probe.DependsOn[0] != "discover" {
		t.Fatalf("expected probe to depend on discover, got %v", probe.DependsOn)
	}
	if probe.TimeoutSec != 30 {
		t.Fatalf("expected task timeout 30, got %d", probe.TimeoutSec)
	}
	if probe.Labels["stage"] != "deep" {
		t.Fatalf("expected label stage=deep, got %v", probe.Labels)
	}
}

func TestUnmarshalDefaultsUnnamedWorkflow(t *testing.T) {
	spec, err := Unmarshal([]byte(`tasks: []`))
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if spec.Name != "unnamed-workflow" {
		t.Fatalf("expected default name, got %q", spec.Name)
	}
}

// TestUnmarshalDefaultsGlobalTimeoutWhenOmitted covers spec §6's
// documented default of 3600s for a workflow file that never mentions
// global_timeout at all.
func TestUnmarshalDefaultsGlobalTimeoutWhenOmitted(t *testing.T) {
	spec, err := Unmarshal([]byte(`name: no-timeout-field
tasks: []
`))
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if spec.GlobalTimeoutSec != defaultGlobalTimeoutSec {
		t.Fatalf("expected default global timeout %d, got %d", defaultGlobalTimeoutSec, spec.GlobalTimeoutSec)
	}
}

// TestUnmarshalRespectsExplicitZeroGlobalTimeout covers the other half of
// that same distinction: a workflow that explicitly asks for 0 (no global
// timeout) must not be silently defaulted back to 3600.
func TestUnmarshalRespectsExplicitZeroGlobalTimeout(t *testing.T) {
	spec, err := Unmarshal([]byte(`name: explicit-zero
global_timeout: 0
tasks: []
`))
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if spec.GlobalTimeoutSec != 0 {
		t.Fatalf("expected explicit 0 to be respected, got %d", spec.GlobalTimeoutSec)
	}
}

func TestUnmarshalRejectsInvalidYAML(t *testing.T) {
	_, err := Unmarshal([]byte("tasks: [this is not valid: ["))
	if err == nil {
		t.Fatal("expected parse error for malformed yaml")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/path/workflow.yaml"); err == nil {
		t.Fatal("expected error reading a missing workflow file")
	}
}
