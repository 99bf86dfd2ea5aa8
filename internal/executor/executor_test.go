package executor

import (
	"context"
	"os/exec"
	"testing"
	"time"
)

func TestRunExitsCleanly(t *testing.T) {
	path, err := exec.LookPath("echo")
	if err != nil {
		t.Skip("echo not available")
	}
	e := New(2*time.Second, 1<<20)
	outcome := e.Run(context.Background(), CommandSpec{
		TaskID: "t1",
		Path:   path,
		Args:   []string{"hello"},
	})
	if outcome.Status != StatusExited {
		t.Fatalf("expected StatusExited, got %s (err=%v)", outcome.Status, outcome.Err)
	}
	if outcome.ExitCode != 0 {
		t.Fatalf("expected exit code 0, got %d", outcome.ExitCode)
	}
}

func TestRunNonZeroExit(t *testing.T) {
	path, err := exec.LookPath("false")
	if err != nil {
		t.Skip("false not available")
	}
	e := New(2*time.Second, 1<<20)
	outcome := e.Run(context.Background(), CommandSpec{TaskID: "t1", Path: path})
	if outcome.Status != StatusExited {
		t.Fatalf("expected StatusExited, got %s", outcome.Status)
	}
	if outcome.ExitCode == 0 {
		t.Fatal("expected non-zero exit code")
	}
}

func TestRunTimeoutKillsProcessGroup(t *testing.T) {
	path, err := exec.LookPath("sleep")
	if err != nil {
		t.Skip("sleep not available")
	}
	e := New(200*time.Millisecond, 1<<20)
	start := time.Now()
	outcome := e.Run(context.Background(), CommandSpec{
		TaskID:  "t1",
		Path:    path,
		Args:    []string{"30"},
		Timeout: 100 * time.Millisecond,
	})
	elapsed := time.Since(start)

	if outcome.Status != StatusTimedOut {
		t.Fatalf("expected StatusTimedOut, got %s", outcome.Status)
	}
	if elapsed > 2*time.Second {
		t.Fatalf("expected kill within grace period, took %s", elapsed)
	}
}

func TestRunSpawnFailed(t *testing.T) {
	e := New(time.Second, 1<<20)
	outcome := e.Run(context.Background(), CommandSpec{
		TaskID: "t1",
		Path:   "/nonexistent/binary/does-not-exist",
	})
	if outcome.Status != StatusSpawnFail {
		t.Fatalf("expected StatusSpawnFail, got %s", outcome.Status)
	}
}

func TestRunCancellation(t *testing.T) {
	path, err := exec.LookPath("sleep")
	if err != nil {
		t.Skip("sleep not available")
	}
	e := New(200*time.Millisecond, 1<<20)
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()
	outcome := e.Run(ctx, CommandSpec{TaskID: "t1", Path: path, Args: []string{"30"}})
	if outcome.Status != StatusCancelled {
		t.Fatalf("expected StatusCancelled, got %s", outcome.Status)
	}
}

func TestRunLargeOutputTruncatedWithoutDeadlock(t *testing.T) {
	path, err := exec.LookPath("yes")
	if err != nil {
		t.Skip("yes not available")
	}
	e := New(500*time.Millisecond, 1<<20) // 1MiB cap
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	outcome := e.Run(ctx, CommandSpec{TaskID: "t1", Path: path, Timeout: 300 * time.Millisecond})
	if !outcome.StdoutTruncated && outcome.Status == StatusExited {
		t.Log("yes exited before filling the cap; not a failure, just nondeterministic timing")
	}
	if outcome.Status != StatusTimedOut && outcome.Status != StatusExited {
		t.Fatalf("unexpected status %s", outcome.Status)
	}
}
