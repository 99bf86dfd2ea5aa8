// Package workflow parses declarative workflow YAML files into
// model.WorkflowSpec, grounded on the teacher's
// pipeline.YAMLPipelineLoader.Load/Unmarshal.
package workflow

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/neosec/neosec/internal/model"
)

// defaultGlobalTimeoutSec is spec §6's documented default for a workflow
// file that omits global_timeout entirely.
const defaultGlobalTimeoutSec = 3600

// Load reads and parses a workflow YAML file at path.
func Load(path string) (model.WorkflowSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return model.WorkflowSpec{}, fmt.Errorf("read workflow %s: %w", path, err)
	}
	return Unmarshal(data)
}

// Unmarshal parses workflow YAML content directly, used by tests that
// construct workflows inline rather than from a file.
func Unmarshal(data []byte) (model.WorkflowSpec, error) {
	var spec model.WorkflowSpec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return model.WorkflowSpec{}, fmt.Errorf("parse workflow yaml: %w", err)
	}
	if spec.Name == "" {
		spec.Name = "unnamed-workflow"
	}
	if !hasTopLevelKey(data, "global_timeout") {
		spec.GlobalTimeoutSec = defaultGlobalTimeoutSec
	}
	return spec, nil
}

// hasTopLevelKey reports whether a top-level YAML mapping key is present
// in data, distinguishing "field omitted" (apply the documented default)
// from "field explicitly set to zero" (no global timeout), which a plain
// struct unmarshal into an int can't tell apart on its own.
func hasTopLevelKey(data []byte, key string) bool {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return false
	}
	_, ok := raw[key]
	return ok
}
