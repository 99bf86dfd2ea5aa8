package orchestrator

import (
	"context"
	"os/exec"
	"testing"
	"time"

	"github.com/neosec/neosec/internal/adapter/stub"
	"github.com/neosec/neosec/internal/bus"
	"github.com/neosec/neosec/internal/executor"
	"github.com/neosec/neosec/internal/model"
)

func TestRunTwoNodeChain(t *testing.T) {
	if _, err := exec.LookPath("echo"); err != nil {
		t.Skip("echo not available")
	}

	b := bus.New()
	b.Register(stub.Echo{NameValue: "echoA", Message: "a"})
	b.Register(stub.Echo{NameValue: "echoB", Message: "b"})

	execr := executor.New(2*time.Second, 1<<20)
	o := New(b, execr, 4)

	wf := model.WorkflowSpec{
		Name: "two-node-chain",
		Tasks: []model.TaskSpec{
			{ID: "first", Tool: "echoA"},
			{ID: "second", Tool: "echoB", DependsOn: []string{"first"}},
		},
	}

	result, err := o.Run(context.Background(), wf, model.Target("example.com"))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Status != model.RunSucceeded {
		t.Fatalf("expected RunSucceeded, got %s", result.Status)
	}
	if result.Tasks["first"].State != model.TaskSucceeded || result.Tasks["second"].State != model.TaskSucceeded {
		t.Fatalf("unexpected task states: %+v", result.Tasks)
	}
}

func TestRunFanOutWithOneFailureCascades(t *testing.T) {
	if _, err := exec.LookPath("false"); err != nil {
		t.Skip("false not available")
	}
	if _, err := exec.LookPath("echo"); err != nil {
		t.Skip("echo not available")
	}

	b := bus.New()
	b.Register(stub.Fail{NameValue: "failer"})
	b.Register(stub.Echo{NameValue: "echoA", Message: "a"})
	b.Register(stub.Echo{NameValue: "echoB", Message: "b"})

	execr := executor.New(2*time.Second, 1<<20)
	o := New(b, execr, 4)

	wf := model.WorkflowSpec{
		Name: "fan-out-failure",
		Tasks: []model.TaskSpec{
			{ID: "root", Tool: "failer"},
			{ID: "dependent", Tool: "echoA", DependsOn: []string{"root"}},
			{ID: "independent", Tool: "echoB"},
		},
	}

	result, err := o.Run(context.Background(), wf, model.Target("example.com"))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Status != model.RunPartialFailure {
		t.Fatalf("expected RunPartialFailure, got %s", result.Status)
	}
	if result.Tasks["root"].State != model.TaskFailed {
		t.Fatalf("expected root to fail, got %s", result.Tasks["root"].State)
	}
	if result.Tasks["dependent"].State != model.TaskSkipped {
		t.Fatalf("expected dependent to be skipped, got %s", result.Tasks["dependent"].State)
	}
	if result.Tasks["independent"].State != model.TaskSucceeded {
		t.Fatalf("expected independent subgraph to still succeed, got %s", result.Tasks["independent"].State)
	}
}

func TestRunRejectsCycle(t *testing.T) {
	b := bus.New()
	execr := executor.New(2*time.Second, 1<<20)
	o := New(b, execr, 4)

	wf := model.WorkflowSpec{
		Name: "cyclic",
		Tasks: []model.TaskSpec{
			{ID: "a", Tool: "echoA", DependsOn: []string{"b"}},
			{ID: "b", Tool: "echoB", DependsOn: []string{"a"}},
		},
	}

	_, err := o.Run(context.Background(), wf, model.Target("example.com"))
	if err == nil {
		t.Fatal("expected cycle to be rejected before any task runs")
	}
}
