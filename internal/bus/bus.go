// Package bus is the extension bus: a process-scope registry mapping
// hook names to ordered adapter vectors, grounded on the teacher's
// internal/event.EventEmitter broadcast pattern and
// internal/preflight.Checker's binary-availability check, generalized
// from a single emitter hook and a standalone preflight pass into the
// fixed broadcast/single-responder hook set this system's adapter
// contract requires.
package bus

import (
	"fmt"
	"os/exec"
	"sync"

	"github.com/neosec/neosec/internal/adapter"
	"github.com/neosec/neosec/internal/errs"
)

// Listener receives broadcast lifecycle events. Every registered adapter
// that also implements Listener is invoked for every broadcast hook; a
// panic from one listener is recovered and handed to the bus's
// PanicHandler, never propagated to the others. The default PanicHandler
// discards it; nothing is logged unless SetPanicHandler installs one
// (teacher: event emitter fan-out semantics,
// adapted from task-execution panic recovery to listener-iteration panic
// recovery).
type Listener interface {
	OnScanStart(runID string, target string)
	OnScanComplete(runID string, status string)
	OnTaskStart(runID, taskID string)
	OnTaskComplete(runID, taskID string, state string)
}

// PanicHandler receives a recovered panic value from a broadcast
// listener invocation, letting callers route it through their logger.
type PanicHandler func(hook, adapterName string, recovered any)

// Bus holds the registered adapters in registration order. Registration
// happens once at process startup; there is no runtime re-registration
// (Non-goal: hot-reloading).
type Bus struct {
	mu        sync.RWMutex
	adapters  []adapter.Adapter
	listeners []Listener
	onPanic   PanicHandler
}

// New returns an empty Bus.
func New() *Bus {
	return &Bus{onPanic: func(string, string, any) {}}
}

// SetPanicHandler installs a callback invoked whenever a broadcast
// listener panics.
func (b *Bus) SetPanicHandler(h PanicHandler) {
	if h == nil {
		h = func(string, string, any) {}
	}
	b.onPanic = h
}

// Register adds an adapter to the bus. Adapters are registered once at
// startup.
func (b *Bus) Register(a adapter.Adapter) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.adapters = append(b.adapters, a)
}

// AddListener registers a non-adapter broadcast listener, such as a
// live-progress view, alongside whatever adapters also implement
// Listener. Used by callers that want on_task_start/on_task_complete
// events without registering a full Adapter.
func (b *Bus) AddListener(l Listener) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listeners = append(b.listeners, l)
}

// Adapters returns the registered adapters in registration order.
func (b *Bus) Adapters() []adapter.Adapter {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]adapter.Adapter{}, b.adapters...)
}

// Resolve looks up the single adapter registered for tool, returning
// errs.AdapterResolutionError if zero or more than one match.
func (b *Bus) Resolve(tool string) (adapter.Adapter, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	var matches []adapter.Adapter
	for _, a := range b.adapters {
		if a.Name() == tool {
			matches = append(matches, a)
		}
	}
	if len(matches) != 1 {
		return nil, &errs.AdapterResolutionError{Tool: tool, Count: len(matches)}
	}
	return matches[0], nil
}

func (b *Bus) forEachListener(hook string, fn func(Listener)) {
	for _, a := range b.Adapters() {
		l, ok := a.(Listener)
		if !ok {
			continue
		}
		func() {
			defer func() {
				if r := recover(); r != nil {
					b.onPanic(hook, a.Name(), r)
				}
			}()
			fn(l)
		}()
	}

	b.mu.RLock()
	listeners := append([]Listener{}, b.listeners...)
	b.mu.RUnlock()
	for _, l := range listeners {
		func() {
			defer func() {
				if r := recover(); r != nil {
					b.onPanic(hook, "listener", r)
				}
			}()
			fn(l)
		}()
	}
}

// BroadcastScanStart invokes OnScanStart on every adapter implementing
// Listener.
func (b *Bus) BroadcastScanStart(runID, target string) {
	b.forEachListener("on_scan_start", func(l Listener) { l.OnScanStart(runID, target) })
}

// BroadcastScanComplete invokes OnScanComplete on every adapter
// implementing Listener.
func (b *Bus) BroadcastScanComplete(runID, status string) {
	b.forEachListener("on_scan_complete", func(l Listener) { l.OnScanComplete(runID, status) })
}

// BroadcastTaskStart invokes OnTaskStart on every adapter implementing
// Listener.
func (b *Bus) BroadcastTaskStart(runID, taskID string) {
	b.forEachListener("on_task_start", func(l Listener) { l.OnTaskStart(runID, taskID) })
}

// BroadcastTaskComplete invokes OnTaskComplete on every adapter
// implementing Listener.
func (b *Bus) BroadcastTaskComplete(runID, taskID, state string) {
	b.forEachListener("on_task_complete", func(l Listener) { l.OnTaskComplete(runID, taskID, state) })
}

// BinaryStatus reports whether a single adapter's required binary was
// found, and at which resolved path.
type BinaryStatus struct {
	Binary    string
	Available bool
	Resolved  string
	Err       error
}

// ValidateDependencies resolves every registered adapter's BinaryDeps,
// preferring an explicit Path over a PATH lookup by Name (Open Question
// resolution: explicit binary_path wins over PATH).
func (b *Bus) ValidateDependencies() map[string][]BinaryStatus {
	out := make(map[string][]BinaryStatus)
	for _, a := range b.Adapters() {
		var statuses []BinaryStatus
		for _, dep := range a.Dependencies() {
			statuses = append(statuses, resolveBinary(dep))
		}
		out[a.Name()] = statuses
	}
	return out
}

func resolveBinary(dep adapter.BinaryDep) BinaryStatus {
	if dep.Path != "" {
		if _, err := exec.LookPath(dep.Path); err == nil {
			return BinaryStatus{Binary: dep.Path, Available: true, Resolved: dep.Path}
		}
		return BinaryStatus{Binary: dep.Path, Available: false, Err: fmt.Errorf("explicit path %q not executable", dep.Path)}
	}
	resolved, err := exec.LookPath(dep.Name)
	if err != nil {
		return BinaryStatus{Binary: dep.Name, Available: false, Err: err}
	}
	return BinaryStatus{Binary: dep.Name, Available: true, Resolved: resolved}
}

// MissingBinaries flattens ValidateDependencies into the errs.BinaryMissingError
// list the orchestrator needs to reject a run before any task starts.
func (b *Bus) MissingBinaries() []error {
	var out []error
	for tool, statuses := range b.ValidateDependencies() {
		for _, s := range statuses {
			if !s.Available {
				out = append(out, &errs.BinaryMissingError{Tool: tool, Binary: s.Binary, Err: s.Err})
			}
		}
	}
	return out
}

// MissingBinariesFor is MissingBinaries scoped to the named tools, so a
// run only rejects on the binaries its own workflow actually references
// (spec: "for every referenced tool ... reports its binaries available")
// rather than every adapter the process happens to have registered. An
// unresolvable tool name surfaces its AdapterResolutionError here too, so
// the same upfront-reject-before-any-task-starts guarantee covers both a
// missing binary and a missing adapter.
func (b *Bus) MissingBinariesFor(tools []string) []error {
	var out []error
	for _, tool := range tools {
		a, err := b.Resolve(tool)
		if err != nil {
			out = append(out, err)
			continue
		}
		for _, dep := range a.Dependencies() {
			if s := resolveBinary(dep); !s.Available {
				out = append(out, &errs.BinaryMissingError{Tool: tool, Binary: s.Binary, Err: s.Err})
			}
		}
	}
	return out
}
