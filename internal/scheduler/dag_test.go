package scheduler

import (
	"errors"
	"testing"

	"github.com/neosec/neosec/internal/errs"
	"github.com/neosec/neosec/internal/model"
)

func TestValidateRejectsDuplicateID(t *testing.T) {
	wf := model.WorkflowSpec{Tasks: []model.TaskSpec{
		{ID: "a", Tool: "echo"},
		{ID: "a", Tool: "echo"},
	}}
	if err := Validate(wf); err == nil {
		t.Fatal("expected duplicate task id to be rejected")
	}
}

func TestValidateRejectsUnknownDependency(t *testing.T) {
	wf := model.WorkflowSpec{Tasks: []model.TaskSpec{
		{ID: "a", Tool: "echo", DependsOn: []string{"ghost"}},
	}}
	if err := Validate(wf); err == nil {
		t.Fatal("expected unknown dependency to be rejected")
	}
}

func TestValidateRejectsCycle(t *testing.T) {
	wf := model.WorkflowSpec{Tasks: []model.TaskSpec{
		{ID: "a", Tool: "echo", DependsOn: []string{"c"}},
		{ID: "b", Tool: "echo", DependsOn: []string{"a"}},
		{ID: "c", Tool: "echo", DependsOn: []string{"b"}},
	}}
	err := Validate(wf)
	if err == nil {
		t.Fatal("expected cycle to be rejected")
	}
	var cycleErr *errs.WorkflowCycleError
	if !errors.As(err, &cycleErr) {
		t.Fatalf("expected *errs.WorkflowCycleError, got %T: %v", err, err)
	}
}

func TestTopologicalSortOrdersDependenciesFirst(t *testing.T) {
	wf := model.WorkflowSpec{Tasks: []model.TaskSpec{
		{ID: "c", Tool: "echo", DependsOn: []string{"a", "b"}},
		{ID: "a", Tool: "echo"},
		{ID: "b", Tool: "echo", DependsOn: []string{"a"}},
	}}

	order, err := TopologicalSort(wf)
	if err != nil {
		t.Fatalf("TopologicalSort: %v", err)
	}
	if len(order) != 3 {
		t.Fatalf("expected 3 entries, got %d: %v", len(order), order)
	}

	pos := make(map[string]int, len(order))
	for i, id := range order {
		pos[id] = i
	}
	if pos["a"] > pos["b"] {
		t.Fatalf("a must precede b: %v", order)
	}
	if pos["a"] > pos["c"] || pos["b"] > pos["c"] {
		t.Fatalf("a and b must precede c: %v", order)
	}
}

// TestTopologicalSortIsDeterministic is the round-trip law of spec.md §8:
// sorting the same workflow twice must yield the same order, since the
// scheduler tie-breaks by definition order rather than map iteration.
func TestTopologicalSortIsDeterministic(t *testing.T) {
	wf := model.WorkflowSpec{Tasks: []model.TaskSpec{
		{ID: "x", Tool: "echo"},
		{ID: "y", Tool: "echo"},
		{ID: "z", Tool: "echo", DependsOn: []string{"x", "y"}},
	}}

	first, err := TopologicalSort(wf)
	if err != nil {
		t.Fatalf("TopologicalSort: %v", err)
	}
	second, err := TopologicalSort(wf)
	if err != nil {
		t.Fatalf("TopologicalSort: %v", err)
	}
	if len(first) != len(second) {
		t.Fatalf("lengths differ: %v vs %v", first, second)
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("order not stable across runs: %v vs %v", first, second)
		}
	}
}
