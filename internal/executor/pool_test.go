package executor

import (
	"context"
	"os/exec"
	"sync"
	"testing"
	"time"
)

// TestPoolBoundsConcurrency submits more sleeps than the pool's limit and
// checks that they ran in at least two serialized batches rather than all
// at once, by observing wall-clock time: four 150ms sleeps bounded to 2
// concurrent slots take roughly 300ms, not roughly 150ms.
func TestPoolBoundsConcurrency(t *testing.T) {
	path, err := exec.LookPath("sleep")
	if err != nil {
		t.Skip("sleep not available")
	}

	e := New(time.Second, 1<<20)
	p := NewPool(e, 2)

	specs := make([]CommandSpec, 4)
	for i := range specs {
		specs[i] = CommandSpec{TaskID: string(rune('a' + i)), Path: path, Args: []string{"0.15"}}
	}

	start := time.Now()
	if err := p.RunAll(context.Background(), specs, func(spec CommandSpec, outcome Outcome) {
		if outcome.Status != StatusExited {
			t.Errorf("task %s: expected StatusExited, got %s", spec.TaskID, outcome.Status)
		}
	}); err != nil {
		t.Fatalf("RunAll: %v", err)
	}
	elapsed := time.Since(start)

	if elapsed < 250*time.Millisecond {
		t.Fatalf("expected pool to serialize into at least two batches (~300ms), completed in %s", elapsed)
	}
}

func TestPoolRunsAllSpecsEvenBeyondLimit(t *testing.T) {
	path, err := exec.LookPath("echo")
	if err != nil {
		t.Skip("echo not available")
	}

	e := New(time.Second, 1<<20)
	p := NewPool(e, 1)

	var mu sync.Mutex
	completed := 0
	specs := make([]CommandSpec, 5)
	for i := range specs {
		specs[i] = CommandSpec{TaskID: string(rune('a' + i)), Path: path, Args: []string{"hi"}}
	}

	if err := p.RunAll(context.Background(), specs, func(spec CommandSpec, outcome Outcome) {
		mu.Lock()
		completed++
		mu.Unlock()
	}); err != nil {
		t.Fatalf("RunAll: %v", err)
	}

	if completed != len(specs) {
		t.Fatalf("expected %d completions, got %d", len(specs), completed)
	}
}
