// Package orchestrator is NeoSec's façade: it wires the extension bus,
// subprocess executor and DAG scheduler together behind a single Run
// call, grounded on the teacher's NewDefaultPipelineExecutor/Execute
// functional-options wiring pattern (ExecutorOption), generalized from
// Claude-persona execution to security-tool execution.
package orchestrator

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/neosec/neosec/internal/adapter"
	"github.com/neosec/neosec/internal/auditlog"
	"github.com/neosec/neosec/internal/bus"
	"github.com/neosec/neosec/internal/errs"
	"github.com/neosec/neosec/internal/executor"
	"github.com/neosec/neosec/internal/model"
	"github.com/neosec/neosec/internal/scheduler"
	"github.com/neosec/neosec/internal/security"
	"github.com/neosec/neosec/internal/state"
)

// Orchestrator runs workflows end to end: dependency validation, the
// scheduler's ready-set loop, per-task command building, parsing, and
// persistence.
type Orchestrator struct {
	bus         *bus.Bus
	exec        *executor.Executor
	maxParallel int
	store       *state.Store
	audit       *auditlog.Logger
	toolTimeout func(tool string) time.Duration
}

// Option configures an Orchestrator, mirroring the teacher's
// ExecutorOption functional-options pattern.
type Option func(*Orchestrator)

// WithStore attaches a persistence layer. Without one, Run skips writing
// raw output and reports (used by tests).
func WithStore(s *state.Store) Option { return func(o *Orchestrator) { o.store = s } }

// WithAuditLogger attaches a credential-redacting audit logger.
func WithAuditLogger(l *auditlog.Logger) Option { return func(o *Orchestrator) { o.audit = l } }

// WithToolTimeout supplies the per-tool default timeout resolver (tool
// default precedence, between task override and workflow global).
func WithToolTimeout(f func(tool string) time.Duration) Option {
	return func(o *Orchestrator) { o.toolTimeout = f }
}

// New returns an Orchestrator wired to bus b, running commands through
// exec with up to maxParallel concurrent tasks.
func New(b *bus.Bus, exec *executor.Executor, maxParallel int, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		bus:         b,
		exec:        exec,
		maxParallel: maxParallel,
		toolTimeout: func(string) time.Duration { return 0 },
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run validates the workflow's adapter dependencies, then executes it to
// completion, persisting raw output and the final report if a Store is
// configured. If validation rejects the run, no task starts and the
// returned ScanResult has Status RunFailed alongside the error.
func (o *Orchestrator) Run(ctx context.Context, wf model.WorkflowSpec, target model.Target) (model.ScanResult, error) {
	rejected := model.ScanResult{Workflow: wf.Name, Target: string(target), Status: model.RunFailed}
	if err := scheduler.Validate(wf); err != nil {
		return rejected, err
	}

	if missing := o.bus.MissingBinariesFor(referencedTools(wf)); len(missing) > 0 {
		return rejected, fmt.Errorf("dependency check failed: %w", missing[0])
	}

	runID := uuid.NewString()
	startedAt := time.Now()

	o.bus.BroadcastScanStart(runID, string(target))
	if o.audit != nil {
		o.audit.LogToolCall(runID, wf.Name, []string{string(target)})
	}

	sched := scheduler.New(o.maxParallel, func(taskID, upstream string) {
		if o.audit != nil {
			o.audit.LogCascadeSkip(taskID, upstream)
		}
	})

	globalTimeout := time.Duration(wf.GlobalTimeoutSec) * time.Second

	runTask := func(ctx context.Context, task model.TaskSpec) scheduler.TaskOutcome {
		o.bus.BroadcastTaskStart(runID, task.ID)
		outcome := o.runOneTask(ctx, runID, target, task)
		o.bus.BroadcastTaskComplete(runID, task.ID, string(outcome.State))
		return outcome
	}

	result := sched.Run(ctx, wf, globalTimeout, runTask)

	scanResult := model.ScanResult{
		RunID:           runID,
		Workflow:        wf.Name,
		Target:          string(target),
		StartedAt:       startedAt,
		CompletedAt:     time.Now(),
		Status:          result.Status,
		Tasks:           result.Tasks,
		Assets:          result.Assets,
		Vulnerabilities: result.Vulns,
	}

	o.bus.BroadcastScanComplete(runID, string(scanResult.Status))
	if o.audit != nil {
		o.audit.LogRunOutcome(runID, string(scanResult.Status))
	}

	if o.store != nil {
		if err := o.store.WriteReport(scanResult); err != nil {
			return scanResult, fmt.Errorf("persist report: %w", err)
		}
	}

	return scanResult, nil
}

func (o *Orchestrator) runOneTask(ctx context.Context, runID string, target model.Target, task model.TaskSpec) scheduler.TaskOutcome {
	a, err := o.bus.Resolve(task.Tool)
	if err != nil {
		return scheduler.TaskOutcome{State: model.TaskFailed, Err: err}
	}

	if task.Target != "" {
		override, err := security.ValidateTarget(task.Target)
		if err != nil {
			return scheduler.TaskOutcome{State: model.TaskFailed, Err: &errs.InvalidInputError{Field: "target", Err: err}}
		}
		target = override
	}

	opts := toOptionMap(task.Options)
	if schema := a.Schema(); schema != nil {
		if err := schema.Validate(opts); err != nil {
			return scheduler.TaskOutcome{State: model.TaskFailed, Err: &errs.InvalidInputError{Field: "options", Err: err}}
		}
	}
	for k, v := range opts {
		var values []string
		switch v.Kind {
		case adapter.KindString:
			values = []string{v.Str}
		case adapter.KindList:
			values = v.List
		}
		for _, s := range values {
			if err := security.RejectShellMetacharacters(s); err != nil {
				return scheduler.TaskOutcome{State: model.TaskFailed, Err: &errs.InvalidInputError{Field: k, Err: err}}
			}
		}
	}

	args, err := a.BuildCommand(adapter.Target(target), opts)
	if err != nil {
		return scheduler.TaskOutcome{State: model.TaskFailed, Err: err}
	}

	binPath := resolveBinaryPath(a)
	if binPath == "" {
		return scheduler.TaskOutcome{State: model.TaskFailed, Err: &errs.BinaryMissingError{Tool: task.Tool}}
	}

	timeout := o.resolveTimeout(task)

	spec := executor.CommandSpec{
		TaskID:  task.ID,
		Path:    binPath,
		Args:    args,
		Timeout: timeout,
	}
	if o.audit != nil {
		o.audit.LogToolCall(task.ID, task.Tool, args)
	}

	result := o.exec.Run(ctx, spec)

	if o.store != nil {
		_ = o.store.WriteRawOutput(runID, task.ID, result.Stdout, result.Stderr)
	}

	switch result.Status {
	case executor.StatusTimedOut:
		return scheduler.TaskOutcome{State: model.TaskTimedOut, ExitCode: result.ExitCode, Err: &errs.SubprocessTimeoutError{TaskID: task.ID}}
	case executor.StatusCancelled:
		return scheduler.TaskOutcome{State: model.TaskCancelled, ExitCode: result.ExitCode, Err: &errs.CancellationRequestedError{TaskID: task.ID}}
	case executor.StatusSpawnFail:
		return scheduler.TaskOutcome{State: model.TaskFailed, Err: &errs.SpawnFailedError{TaskID: task.ID, Err: result.Err}}
	}

	hint := adapter.FormatText
	parsed, perr := a.ParseOutput(result.Stdout, result.Stderr, hint)
	if perr != nil {
		return scheduler.TaskOutcome{
			State:     model.TaskFailed,
			ExitCode:  result.ExitCode,
			Truncated: result.StdoutTruncated || result.StderrTruncated,
			Err:       &errs.DataParsingError{TaskID: task.ID, Err: perr},
		}
	}

	assets, vulns := fromParsed(task.ID, parsed)

	state := model.TaskSucceeded
	if result.ExitCode != 0 {
		state = model.TaskFailed
	}

	return scheduler.TaskOutcome{
		State:     state,
		ExitCode:  result.ExitCode,
		Truncated: result.StdoutTruncated || result.StderrTruncated,
		Assets:    assets,
		Vulns:     vulns,
	}
}

func (o *Orchestrator) resolveTimeout(task model.TaskSpec) time.Duration {
	if task.TimeoutSec > 0 {
		return time.Duration(task.TimeoutSec) * time.Second
	}
	if d := o.toolTimeout(task.Tool); d > 0 {
		return d
	}
	return 0
}

// referencedTools returns the unique tool names wf.Tasks actually use, in
// first-seen order, so dependency validation only ever gates on binaries a
// run would actually spawn (spec §4.1/§4.4: missing binaries are fatal
// only "when a workflow requires that tool").
func referencedTools(wf model.WorkflowSpec) []string {
	seen := make(map[string]bool, len(wf.Tasks))
	tools := make([]string, 0, len(wf.Tasks))
	for _, t := range wf.Tasks {
		if seen[t.Tool] {
			continue
		}
		seen[t.Tool] = true
		tools = append(tools, t.Tool)
	}
	return tools
}

func resolveBinaryPath(a adapter.Adapter) string {
	deps := a.Dependencies()
	if len(deps) == 0 {
		return ""
	}
	dep := deps[0]
	if dep.Path != "" {
		return dep.Path
	}
	resolved, err := exec.LookPath(dep.Name)
	if err != nil {
		return ""
	}
	return resolved
}

func toOptionMap(raw map[string]any) adapter.OptionMap {
	out := make(adapter.OptionMap, len(raw))
	for k, v := range raw {
		switch val := v.(type) {
		case string:
			out[k] = adapter.StringOption(val)
		case int:
			out[k] = adapter.IntOption(val)
		case bool:
			out[k] = adapter.BoolOption(val)
		case []string:
			out[k] = adapter.ListOption(val)
		case []any:
			items := make([]string, 0, len(val))
			for _, e := range val {
				if s, ok := e.(string); ok {
					items = append(items, s)
				}
			}
			out[k] = adapter.ListOption(items)
		default:
			out[k] = adapter.StringOption(fmt.Sprintf("%v", val))
		}
	}
	return out
}

func fromParsed(taskID string, parsed adapter.ParsedResult) (model.Asset, []model.Vulnerability) {
	assets := model.NewAsset()
	for _, h := range parsed.Hosts {
		host := model.Host{Address: h.Address, Hostname: h.Hostname, OSFingerprint: h.OSFingerprint}
		for _, p := range h.Ports {
			host.AddPort(model.Port{
				Number:   p.Number,
				Protocol: model.Protocol(p.Protocol),
				State:    model.PortState(p.State),
				Service:  p.Service,
				Product:  p.Product,
				Version:  p.Version,
			})
		}
		assets.Hosts[h.Address] = host
	}
	for _, w := range parsed.WebApps {
		assets.WebApps[w.URL] = model.WebApp{URL: w.URL, Technologies: w.Technologies, Title: w.Title}
	}
	for _, s := range parsed.Subdomains {
		assets.Subdomains[s.Name] = model.Subdomain{Name: s.Name, Addresses: s.Addresses}
	}

	var vulns []model.Vulnerability
	for _, v := range parsed.Vulnerabilities {
		sev, err := model.ParseSeverity(v.Severity)
		if err != nil {
			sev = model.SeverityInfo
		}
		var cvss *model.CVSS
		if v.CVSSVector != "" {
			cvss = &model.CVSS{Vector: v.CVSSVector, BaseScore: v.CVSSScore, Version: v.CVSSVersion}
		}
		vulns = append(vulns, model.Vulnerability{
			ID:           vulnerabilityID(taskID, v),
			Name:         v.Name,
			Description:  v.Description,
			Severity:     sev,
			CVSS:         cvss,
			CVEs:         v.CVEs,
			Category:     v.Category,
			Affected:     v.Affected,
			Evidence:     v.Evidence,
			DiscoveredAt: time.Now(),
			Task:         taskID,
		})
	}
	return assets, vulns
}

// vulnerabilityID derives a stable finding id from its content instead of
// a fresh random UUID, so Serialize(parse(raw_output)) is stable across
// repeated parses of identical tool output (spec §3 "stable id", §8
// idempotence law).
func vulnerabilityID(taskID string, v adapter.ParsedVulnerability) string {
	data := strings.Join([]string{
		taskID, v.Name, v.Category, v.Affected, v.Evidence, strings.Join(v.CVEs, ","),
	}, "\x00")
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(data)).String()
}
