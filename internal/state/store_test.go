package state

import (
	"testing"
	"time"

	"github.com/neosec/neosec/internal/model"
)

func TestStoreWriteRawOutputAndReport(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	if err := s.WriteRawOutput("run-1", "task-a", []byte("out"), []byte("err")); err != nil {
		t.Fatalf("WriteRawOutput: %v", err)
	}

	result := model.ScanResult{
		RunID:       "run-1",
		Workflow:    "quick-scan",
		Target:      "example.com",
		StartedAt:   time.Now(),
		CompletedAt: time.Now(),
		Status:      model.RunSucceeded,
		Tasks:       map[string]model.TaskResult{},
	}
	if err := s.WriteReport(result); err != nil {
		t.Fatalf("WriteReport: %v", err)
	}

	runs, err := s.ListRuns()
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 1 || runs[0].RunID != "run-1" {
		t.Fatalf("unexpected runs: %+v", runs)
	}
}

func TestStoreRejectsTraversal(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	if err := s.WriteRawOutput("../../etc", "task", nil, nil); err == nil {
		t.Fatal("expected traversal to be rejected")
	}
}
