// Package watch renders a live DAG progress view during a scan using
// bubbletea/lipgloss, grounded on the teacher's internal/tui/internal/dashboard
// live-pipeline-progress views, generalized from pipeline-step progress to
// task progress and subscribing to the same broadcast hooks the
// orchestrator's extension bus already emits.
package watch

import (
	"fmt"
	"sort"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/neosec/neosec/internal/model"
)

var (
	styleRunning   = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	styleSucceeded = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	styleFailed    = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	styleSkipped   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	stylePending   = lipgloss.NewStyle().Foreground(lipgloss.Color("7"))
	styleHeader    = lipgloss.NewStyle().Bold(true)
)

// Reporter accumulates task-state updates the orchestrator's bus
// broadcasts and is safe to call from the goroutines running tasks
// concurrently.
type Reporter struct {
	mu     sync.Mutex
	target string
	states map[string]model.TaskState
	order  []string
	prog   *tea.Program
}

// NewReporter returns a Reporter for the given scan target. Call Start to
// launch the bubbletea program on a TTY; on a non-TTY, callers should
// skip Start and use the Reporter purely as a thread-safe state sink
// (e.g. for tests or piped output).
func NewReporter(target string, taskIDs []string) *Reporter {
	states := make(map[string]model.TaskState, len(taskIDs))
	for _, id := range taskIDs {
		states[id] = model.TaskPending
	}
	return &Reporter{target: target, states: states, order: append([]string{}, taskIDs...)}
}

// OnScanStart satisfies bus.Listener; the reporter already knows its
// target and task set from NewReporter, so this is a no-op.
func (r *Reporter) OnScanStart(runID, target string) {}

// OnScanComplete satisfies bus.Listener; the final status is rendered by
// the scan command after Stop, not by the live view itself.
func (r *Reporter) OnScanComplete(runID, status string) {}

// OnTaskStart marks a task Running.
func (r *Reporter) OnTaskStart(runID, taskID string) { r.set(taskID, model.TaskRunning) }

// OnTaskComplete marks a task with its terminal state.
func (r *Reporter) OnTaskComplete(runID, taskID, state string) {
	r.set(taskID, model.TaskState(state))
}

func (r *Reporter) set(taskID string, state model.TaskState) {
	r.mu.Lock()
	r.states[taskID] = state
	prog := r.prog
	r.mu.Unlock()
	if prog != nil {
		prog.Send(stateMsg{})
	}
}

func (r *Reporter) snapshot() (string, []string, map[string]model.TaskState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	copyStates := make(map[string]model.TaskState, len(r.states))
	for k, v := range r.states {
		copyStates[k] = v
	}
	return r.target, append([]string{}, r.order...), copyStates
}

type stateMsg struct{}

type model_ struct {
	reporter *Reporter
}

func (m model_) Init() tea.Cmd { return nil }

func (m model_) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" || msg.String() == "q" {
			return m, tea.Quit
		}
	case stateMsg:
		return m, nil
	}
	return m, nil
}

func (m model_) View() string {
	target, order, states := m.reporter.snapshot()
	sort.Strings(order)

	out := styleHeader.Render(fmt.Sprintf("neosec scan: %s", target)) + "\n\n"
	for _, id := range order {
		out += fmt.Sprintf("  %s  %s\n", renderState(states[id]), id)
	}
	out += "\n(press q to hide; the scan keeps running in the background)\n"
	return out
}

func renderState(s model.TaskState) string {
	switch s {
	case model.TaskRunning:
		return styleRunning.Render("RUNNING")
	case model.TaskSucceeded:
		return styleSucceeded.Render("OK     ")
	case model.TaskFailed, model.TaskTimedOut:
		return styleFailed.Render("FAILED ")
	case model.TaskSkipped, model.TaskCancelled:
		return styleSkipped.Render("SKIPPED")
	default:
		return stylePending.Render("PENDING")
	}
}

// Start runs the live view in the foreground until the scan signals
// completion via Stop, or the user quits. It blocks the calling
// goroutine, so callers run it in its own goroutine alongside the scan.
func (r *Reporter) Start() error {
	prog := tea.NewProgram(model_{reporter: r})
	r.mu.Lock()
	r.prog = prog
	r.mu.Unlock()
	_, err := prog.Run()
	return err
}

// Stop requests the bubbletea program exit once the scan completes.
func (r *Reporter) Stop() {
	r.mu.Lock()
	prog := r.prog
	r.mu.Unlock()
	if prog != nil {
		prog.Quit()
	}
}
