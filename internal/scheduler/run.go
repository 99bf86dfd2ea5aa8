package scheduler

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/neosec/neosec/internal/model"
)

// TaskOutcome is what a task runner function reports back to the
// scheduler once a task's subprocess has exited and its output has been
// parsed.
type TaskOutcome struct {
	State     model.TaskState
	ExitCode  int
	Err       error
	Truncated bool
	Assets    model.Asset
	Vulns     []model.Vulnerability
}

// RunTaskFunc executes a single task (resolving its adapter, building and
// spawning its command, and parsing its output) and returns the result.
// The scheduler calls this exactly once per non-skipped task.
type RunTaskFunc func(ctx context.Context, task model.TaskSpec) TaskOutcome

// CascadeObserver is notified whenever a task transitions to Skipped
// because of an upstream failure, letting callers audit-log the decision
// without the scheduler taking a direct dependency on a logger.
type CascadeObserver func(taskID, upstreamFailedID string)

// Result is everything the scheduler produced from a single run.
type Result struct {
	Tasks  map[string]model.TaskResult
	Assets model.Asset
	Vulns  []model.Vulnerability
	Status model.RunStatus
}

// Scheduler runs a validated workflow's tasks against a RunTaskFunc,
// tracking per-task state, executing every independent ready set
// concurrently (bounded by maxParallel), and cascading Skipped to every
// transitive dependent of a failed task while independent subgraphs keep
// running. Grounded on the teacher's
// DefaultPipelineExecutor.Execute/findReadySteps/executeStepBatch loop
// structure, with failure handling replaced by the BFS cascade-skip
// pattern from the pack's DAGScheduler.cascadeSkip.
type Scheduler struct {
	maxParallel int
	onCascade   CascadeObserver
}

// New returns a Scheduler that runs up to maxParallel tasks concurrently.
func New(maxParallel int, onCascade CascadeObserver) *Scheduler {
	if maxParallel <= 0 {
		maxParallel = 1
	}
	if onCascade == nil {
		onCascade = func(string, string) {}
	}
	return &Scheduler{maxParallel: maxParallel, onCascade: onCascade}
}

type taskNode struct {
	spec       model.TaskSpec
	state      model.TaskState
	dependents []string
}

// Run executes spec's tasks to completion (or until globalTimeout/ctx
// cancellation), returning the aggregated Result. spec must already have
// passed Validate.
func (s *Scheduler) Run(ctx context.Context, spec model.WorkflowSpec, globalTimeout time.Duration, runTask RunTaskFunc) Result {
	runCtx := ctx
	var cancel context.CancelFunc
	if globalTimeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, globalTimeout)
		defer cancel()
	}

	nodes := make(map[string]*taskNode, len(spec.Tasks))
	remaining := make(map[string]int, len(spec.Tasks))
	for _, t := range spec.Tasks {
		nodes[t.ID] = &taskNode{spec: t, state: model.TaskPending}
		remaining[t.ID] = len(t.DependsOn)
	}
	for _, t := range spec.Tasks {
		for _, dep := range t.DependsOn {
			nodes[dep].dependents = append(nodes[dep].dependents, t.ID)
		}
	}

	var mu sync.Mutex
	results := make(map[string]model.TaskResult, len(spec.Tasks))
	var assets model.Asset = model.NewAsset()
	var vulns []model.Vulnerability

	completed := 0
	total := len(spec.Tasks)

	for completed < total {
		select {
		case <-runCtx.Done():
			s.cancelPending(nodes, remaining, results, &mu)
			completed = total
			continue
		default:
		}

		var ready []string
		for id, n := range nodes {
			if n.state == model.TaskPending && remaining[id] == 0 {
				ready = append(ready, id)
				n.state = model.TaskReady
			}
		}

		if len(ready) == 0 {
			// Nothing ready and not done: either all remaining are
			// terminal (shouldn't happen if Validate ran) or we're
			// waiting on an in-flight batch that already completed --
			// loop guards against an infinite spin by breaking once no
			// pending task can ever become ready.
			stuck := true
			for _, n := range nodes {
				if n.state == model.TaskPending {
					stuck = false
				}
			}
			if stuck {
				break
			}
		}

		g, gctx := errgroup.WithContext(runCtx)
		g.SetLimit(s.maxParallel)

		for _, id := range ready {
			id := id
			n := nodes[id]
			g.Go(func() error {
				n.state = model.TaskRunning
				started := time.Now()
				outcome := runTask(gctx, n.spec)
				completedAt := time.Now()

				mu.Lock()
				defer mu.Unlock()

				n.state = outcome.State
				results[id] = model.TaskResult{
					TaskID:      id,
					Tool:        n.spec.Tool,
					State:       outcome.State,
					StartedAt:   started,
					CompletedAt: completedAt,
					ExitCode:    outcome.ExitCode,
					Truncated:   outcome.Truncated,
					Error:       errString(outcome.Err),
				}
				assets.Merge(outcome.Assets)
				vulns = append(vulns, outcome.Vulns...)

				for _, dep := range n.dependents {
					remaining[dep]--
				}

				// Once the run context has fired, pending dependents are
				// left for cancelPending to mark Cancelled, not Skipped.
				if !outcome.State.IsSuccess() && runCtx.Err() == nil {
					s.cascadeSkip(id, nodes, remaining, results, &mu)
				}
				return nil
			})
		}
		g.Wait()

		completed = 0
		for _, n := range nodes {
			if n.state.IsTerminal() {
				completed++
			}
		}
	}

	return Result{Tasks: results, Assets: assets, Vulns: vulns, Status: s.overallStatus(runCtx, results, total)}
}

// cascadeSkip performs a BFS over every transitive dependent of failedID,
// transitioning each Pending descendant directly to Skipped without ever
// building a command or spawning a process. Independent subgraphs that do
// not depend on failedID are untouched and keep being scheduled normally.
// Grounded on other_examples' DAGScheduler.cascadeSkip BFS, re-expressed
// against this scheduler's taskNode/remaining bookkeeping.
func (s *Scheduler) cascadeSkip(failedID string, nodes map[string]*taskNode, remaining map[string]int, results map[string]model.TaskResult, mu *sync.Mutex) {
	queue := append([]string{}, nodes[failedID].dependents...)
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		n := nodes[id]
		if n.state != model.TaskPending && n.state != model.TaskReady {
			continue
		}
		n.state = model.TaskSkipped
		results[id] = model.TaskResult{
			TaskID: id,
			Tool:   n.spec.Tool,
			State:  model.TaskSkipped,
			Error:  "skipped due to upstream failure in " + failedID,
		}
		s.onCascade(id, failedID)
		for _, dep := range n.dependents {
			remaining[dep]--
		}
		queue = append(queue, n.dependents...)
	}
}

// cancelPending transitions every task that hasn't started yet to
// Cancelled once the global timeout or an external cancellation fires.
// Already-Running tasks are left to the executor's own context-propagated
// kill path to finish transitioning.
func (s *Scheduler) cancelPending(nodes map[string]*taskNode, remaining map[string]int, results map[string]model.TaskResult, mu *sync.Mutex) {
	mu.Lock()
	defer mu.Unlock()
	for id, n := range nodes {
		if n.state == model.TaskPending || n.state == model.TaskReady {
			n.state = model.TaskCancelled
			results[id] = model.TaskResult{TaskID: id, Tool: n.spec.Tool, State: model.TaskCancelled, Error: "cancelled"}
		}
	}
}

func (s *Scheduler) overallStatus(ctx context.Context, results map[string]model.TaskResult, total int) model.RunStatus {
	if ctx.Err() != nil {
		return model.RunCancelled
	}
	for _, r := range results {
		if r.State == model.TaskFailed || r.State == model.TaskSkipped || r.State == model.TaskTimedOut {
			return model.RunPartialFailure
		}
	}
	if len(results) < total {
		return model.RunPartialFailure
	}
	return model.RunSucceeded
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
