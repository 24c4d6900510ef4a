// SPDX-License-Identifier: Apache-2.0
package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/dmoret/adjutant/pkg/core"
	"github.com/dmoret/adjutant/pkg/registry"
	"github.com/dmoret/adjutant/pkg/resilience"
	"github.com/dmoret/adjutant/pkg/telemetry"
)

// StageState tracks the per-stage state machine.
type StageState string

const (
	StagePending   StageState = "pending"
	StageRunning   StageState = "running"
	StageCompleted StageState = "completed"
)

// ReasonNoCapableUnit marks a stage where every member failed because its
// dependency was missing.
const ReasonNoCapableUnit = "no capable unit available"

const reasonCancelled = "run cancelled"

// MemberResult is the outcome of one member invocation within a stage.
// A member failure is contained here; it never unwinds through Run.
type MemberResult struct {
	Unit      string          `json:"unit"`
	Operation string          `json:"operation,omitempty"`
	Status    core.UnitStatus `json:"status,omitempty"`
	Output    any             `json:"output,omitempty"`
	Failed    bool            `json:"failed"`
	Reason    string          `json:"reason,omitempty"`
}

// StageResult is the combined outcome of one stage. Members appear in the
// stage's declared order regardless of completion order.
type StageResult struct {
	Name    string         `json:"name,omitempty"`
	Kind    StageKind      `json:"kind"`
	State   StageState     `json:"state"`
	Reason  string         `json:"reason,omitempty"`
	Members []MemberResult `json:"members"`
}

// Engine executes workflow stages over a loaded registry.
type Engine struct {
	registry      *registry.Registry
	logger        *slog.Logger
	emitter       core.EventEmitter
	tracer        trace.Tracer
	metrics       *telemetry.WorkflowMetrics
	memberTimeout time.Duration
	cancelGrace   time.Duration
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithEmitter sets the emitter for stage and member lifecycle events.
func WithEmitter(emitter core.EventEmitter) EngineOption {
	return func(e *Engine) {
		if emitter != nil {
			e.emitter = emitter
		}
	}
}

// WithMetrics attaches workflow metrics recording.
func WithMetrics(metrics *telemetry.WorkflowMetrics) EngineOption {
	return func(e *Engine) {
		e.metrics = metrics
	}
}

// WithMemberTimeout bounds each member invocation. Zero disables the bound.
func WithMemberTimeout(d time.Duration) EngineOption {
	return func(e *Engine) {
		e.memberTimeout = d
	}
}

// WithCancelGrace sets how long a cancelled parallel stage waits for
// in-flight members before abandoning them. Zero means await natural
// completion.
func WithCancelGrace(d time.Duration) EngineOption {
	return func(e *Engine) {
		e.cancelGrace = d
	}
}

// NewEngine creates an engine over the given registry.
func NewEngine(reg *registry.Registry, opts ...EngineOption) *Engine {
	e := &Engine{
		registry: reg,
		logger:   slog.Default(),
		emitter:  core.NoopEventEmitter{},
		tracer:   otel.Tracer("adjutant/workflow"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// BuildStage filters names to those present in the registry, in any status.
// Absent names are dropped with a recorded warning, never a fatal error;
// unavailable units stay in so their non-execution is observable at run time.
func (e *Engine) BuildStage(kind StageKind, names []string) Stage {
	members := make([]string, 0, len(names))
	for _, name := range names {
		if _, ok := e.registry.Resolve(name); !ok {
			e.logger.Warn("workflow.member.absent", slog.String("unit", name))
			continue
		}
		members = append(members, name)
	}
	return Stage{Kind: kind, Members: members}
}

// RunWorkflow validates a declared workflow, binds its stages against the
// registry, and runs them.
func (e *Engine) RunWorkflow(ctx context.Context, wf *Workflow, input map[string]any) ([]StageResult, error) {
	if err := wf.Validate(); err != nil {
		return nil, err
	}
	stages := make([]Stage, 0, len(wf.Stages))
	for _, declared := range wf.Stages {
		stage := e.BuildStage(declared.Kind, declared.Members)
		stage.Name = declared.Name
		stages = append(stages, stage)
	}
	return e.Run(ctx, stages, input)
}

// Run executes stages in order and collects every member outcome. Member
// failures are contained per result; the only error Run reports is context
// cancellation, and even then every completed result is preserved.
func (e *Engine) Run(ctx context.Context, stages []Stage, input map[string]any) ([]StageResult, error) {
	ctx, runID := core.EnsureRunID(ctx)
	results := make([]StageResult, 0, len(stages))

	for _, stage := range stages {
		if ctx.Err() != nil {
			return results, ctx.Err()
		}
		results = append(results, e.runStage(ctx, runID, stage, input))
	}
	return results, ctx.Err()
}

func (e *Engine) runStage(ctx context.Context, runID string, stage Stage, input map[string]any) StageResult {
	result := StageResult{Name: stage.Name, Kind: stage.Kind, State: StagePending}

	ctx, span := e.tracer.Start(ctx, "Workflow.Stage",
		trace.WithAttributes(telemetry.StageAttributes(string(stage.Kind), string(StageRunning), stage.Members)...),
	)
	defer span.End()

	start := time.Now()
	result.State = StageRunning
	e.emitter.Emit(ctx, core.NewEvent(core.EventStageStarted, "", runID, map[string]any{
		"kind":    string(stage.Kind),
		"members": stage.Members,
	}))

	switch stage.Kind {
	case StageParallel:
		result.Members = e.runParallel(ctx, runID, stage.Members, input)
	default:
		result.Members = e.runSequential(ctx, runID, stage.Members, input)
	}

	result.State = StageCompleted
	if allDependencyMissing(result.Members) {
		result.Reason = ReasonNoCapableUnit
	}

	failed := 0
	for _, m := range result.Members {
		if m.Failed {
			failed++
		}
	}
	if e.metrics != nil {
		e.metrics.RecordStage(ctx, string(stage.Kind), time.Since(start), failed)
	}
	e.emitter.Emit(ctx, core.NewEvent(core.EventStageCompleted, "", runID, map[string]any{
		"kind":   string(stage.Kind),
		"failed": failed,
	}))
	return result
}

// runSequential executes members one after another on the calling
// goroutine. A failure in member i never halts members i+1..n.
func (e *Engine) runSequential(ctx context.Context, runID string, members []string, input map[string]any) []MemberResult {
	results := make([]MemberResult, 0, len(members))
	for _, name := range members {
		if ctx.Err() != nil {
			results = append(results, MemberResult{Unit: name, Failed: true, Reason: reasonCancelled})
			continue
		}
		results = append(results, e.invokeMember(ctx, runID, name, input))
	}
	return results
}

// runParallel fans members out concurrently and joins before returning.
// The result slice matches the declared member order. Only the collector
// goroutine touches the slice, so an abandoned member can never corrupt
// the stage result.
func (e *Engine) runParallel(ctx context.Context, runID string, members []string, input map[string]any) []MemberResult {
	type indexed struct {
		i   int
		res MemberResult
	}

	ch := make(chan indexed, len(members))
	for i, name := range members {
		go func(i int, name string) {
			ch <- indexed{i: i, res: e.invokeMember(ctx, runID, name, input)}
		}(i, name)
	}

	results := make([]MemberResult, len(members))
	filled := make([]bool, len(members))
	remaining := len(members)

	done := ctx.Done()
	if e.cancelGrace == 0 {
		// Await natural completion even when the run is cancelled.
		done = nil
	}
	var grace <-chan time.Time

collect:
	for remaining > 0 {
		select {
		case r := <-ch:
			results[r.i] = r.res
			filled[r.i] = true
			remaining--
		case <-done:
			done = nil
			timer := time.NewTimer(e.cancelGrace)
			defer timer.Stop()
			grace = timer.C
		case <-grace:
			break collect
		}
	}

	for i, ok := range filled {
		if !ok {
			results[i] = MemberResult{Unit: members[i], Failed: true, Reason: reasonCancelled}
		}
	}
	return results
}

// invokeMember runs one member and converts every failure mode, including
// panics, into a result. Unavailable units yield an explicit "did not
// execute" result rather than being silently dropped.
func (e *Engine) invokeMember(ctx context.Context, runID string, name string, input map[string]any) MemberResult {
	unit, ok := e.registry.Resolve(name)
	if !ok {
		return MemberResult{Unit: name, Failed: true, Reason: "unit absent from registry"}
	}

	ctx, span := e.tracer.Start(ctx, "Workflow.Member",
		trace.WithAttributes(telemetry.UnitAttributes(name, string(unit.Status), unit.Reason)...),
	)
	defer span.End()

	result := MemberResult{Unit: name, Operation: unit.Entry, Status: unit.Status}

	switch unit.Status {
	case core.UnitUnavailable:
		result.Failed = true
		result.Reason = "unit unavailable: " + unit.Reason

	case core.UnitDegraded:
		// The stub still answers so the caller sees why nothing ran.
		out, _ := unit.Invoke(ctx, unit.Entry, input)
		result.Output = out
		result.Failed = true
		result.Reason = "dependency missing: " + unit.Reason

	default:
		out, err := e.safeInvoke(ctx, unit, input)
		if err != nil {
			result.Failed = true
			result.Reason = err.Error()
		} else {
			result.Output = out
		}
	}

	if e.metrics != nil {
		e.metrics.RecordMember(ctx, name, result.Failed)
	}
	if result.Failed {
		e.logger.Warn("workflow.member.failed",
			slog.String("unit", name),
			slog.String("run_id", runID),
			slog.String("reason", result.Reason),
		)
		e.emitter.Emit(ctx, core.NewEvent(core.EventMemberFailed, name, runID, map[string]any{
			"reason": result.Reason,
		}))
	} else {
		e.emitter.Emit(ctx, core.NewEvent(core.EventMemberCompleted, name, runID, nil))
	}
	return result
}

// safeInvoke contains panics and applies the optional member timeout.
// The recover sits inside the invoked closure so it covers both the inline
// and the timeout-bounded execution path.
func (e *Engine) safeInvoke(ctx context.Context, unit *core.Unit, input map[string]any) (any, error) {
	return resilience.WithTimeoutResult(ctx, resilience.TimeoutConfig{Duration: e.memberTimeout}, func() (out interface{}, err error) {
		defer func() {
			if rec := recover(); rec != nil {
				out = nil
				err = fmt.Errorf("member panic: %v", rec)
			}
		}()
		return unit.Invoke(ctx, unit.Entry, input)
	})
}

func allDependencyMissing(members []MemberResult) bool {
	if len(members) == 0 {
		return false
	}
	for _, m := range members {
		if !m.Failed || m.Status != core.UnitDegraded {
			return false
		}
	}
	return true
}
