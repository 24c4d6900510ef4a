// SPDX-License-Identifier: Apache-2.0
// Package orchestrator wires the capability registry and the workflow
// engine into the assistant's root entry point.
package orchestrator

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/dmoret/adjutant/pkg/config"
	"github.com/dmoret/adjutant/pkg/core"
	"github.com/dmoret/adjutant/pkg/notify"
	"github.com/dmoret/adjutant/pkg/registry"
	"github.com/dmoret/adjutant/pkg/telemetry"
	"github.com/dmoret/adjutant/pkg/units"
	"github.com/dmoret/adjutant/pkg/workflow"
)

// RunResult is the outcome of one orchestrated request.
type RunResult struct {
	RunID  string                 `json:"run_id"`
	Stages []workflow.StageResult `json:"stages"`
}

// Orchestrator owns the loaded registry, the engine, and the default
// workflow shape: one parallel planning stage followed by one sequential
// processing stage.
type Orchestrator struct {
	registry *registry.Registry
	engine   *workflow.Engine
	store    notify.Store
	wf       *workflow.Workflow
	logger   *slog.Logger
	tracer   trace.Tracer
}

// Option configures an Orchestrator.
type Option func(*options)

type options struct {
	logger   *slog.Logger
	emitter  core.EventEmitter
	metrics  *telemetry.WorkflowMetrics
	builders []core.Builder
	wf       *workflow.Workflow
}

// WithLogger sets the orchestrator logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithEmitter sets the lifecycle event emitter.
func WithEmitter(emitter core.EventEmitter) Option {
	return func(o *options) {
		if emitter != nil {
			o.emitter = emitter
		}
	}
}

// WithMetrics attaches workflow metrics.
func WithMetrics(metrics *telemetry.WorkflowMetrics) Option {
	return func(o *options) {
		o.metrics = metrics
	}
}

// WithBuilders overrides the default unit manifest.
func WithBuilders(builders []core.Builder) Option {
	return func(o *options) {
		o.builders = builders
	}
}

// WithWorkflow overrides the default workflow definition.
func WithWorkflow(wf *workflow.Workflow) Option {
	return func(o *options) {
		o.wf = wf
	}
}

// DefaultWorkflow is the assistant's built-in composition: gather the
// planning units in parallel, then run the processing pipeline in order.
func DefaultWorkflow() *workflow.Workflow {
	return &workflow.Workflow{
		ID: "assistant",
		Stages: []workflow.Stage{
			{
				Name:    "gather",
				Kind:    workflow.StageParallel,
				Members: []string{"planner", "calendar", "flight", "commute"},
			},
			{
				Name:    "process",
				Kind:    workflow.StageSequential,
				Members: []string{"notification", "critic", "email", "focus", "knowledge", "memory", "wellness"},
			},
		},
	}
}

// New loads every capability unit and prepares the engine. Unit load
// failures never fail New; they surface as degraded or unavailable
// entries in the registry directory.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*Orchestrator, error) {
	o := &options{
		logger:  slog.Default(),
		emitter: core.NoopEventEmitter{},
		wf:      DefaultWorkflow(),
	}
	for _, opt := range opts {
		opt(o)
	}

	store, err := newNotifyStore(cfg.Notify)
	if err != nil {
		return nil, err
	}
	if o.metrics != nil {
		store = meteredStore{Store: store, metrics: o.metrics}
	}

	builders := o.builders
	if builders == nil {
		recaller := newRecaller(cfg.Memory, o.logger)
		builders = units.Manifest(cfg, store, recaller)
	}

	reg := registry.LoadAll(ctx, builders,
		registry.WithLogger(o.logger),
		registry.WithEmitter(o.emitter),
	)
	if o.metrics != nil {
		for _, unit := range reg.Units() {
			o.metrics.RecordUnitStatus(ctx, unit.Name, string(unit.Status))
		}
	}

	engineOpts := []workflow.EngineOption{
		workflow.WithLogger(o.logger),
		workflow.WithEmitter(o.emitter),
		workflow.WithMetrics(o.metrics),
	}
	if cfg.Workflow.MemberTimeout > 0 {
		engineOpts = append(engineOpts, workflow.WithMemberTimeout(cfg.Workflow.MemberTimeout))
	}
	if cfg.Workflow.CancelGrace > 0 {
		engineOpts = append(engineOpts, workflow.WithCancelGrace(cfg.Workflow.CancelGrace))
	}

	wf := o.wf
	if cfg.Workflow.Path != "" {
		loaded, err := workflow.LoadWorkflow(cfg.Workflow.Path)
		if err != nil {
			return nil, err
		}
		wf = loaded
	}

	return &Orchestrator{
		registry: reg,
		engine:   workflow.NewEngine(reg, engineOpts...),
		store:    store,
		wf:       wf,
		logger:   o.logger,
		tracer:   otel.Tracer("adjutant/orchestrator"),
	}, nil
}

// Registry exposes the unit directory.
func (o *Orchestrator) Registry() *registry.Registry { return o.registry }

// Store exposes the notification store.
func (o *Orchestrator) Store() notify.Store { return o.store }

// Workflow returns the active workflow definition.
func (o *Orchestrator) Workflow() *workflow.Workflow { return o.wf }

// Handle runs the workflow for one request. Member failures are
// contained in the stage results; the returned error is reserved for
// cancellation and invalid workflow definitions.
func (o *Orchestrator) Handle(ctx context.Context, request string) (*RunResult, error) {
	ctx, runID := core.EnsureRunID(ctx)
	ctx = core.WithRequest(ctx, request)

	ctx, span := o.tracer.Start(ctx, "Orchestrator.Handle",
		trace.WithAttributes(telemetry.RunAttributes(runID, request)...),
	)
	defer span.End()

	start := time.Now()
	o.logger.Info("orchestrator.request",
		slog.String("run_id", runID),
		slog.String("request", request),
	)

	stages, err := o.engine.RunWorkflow(ctx, o.wf, map[string]any{"request": request})
	result := &RunResult{RunID: runID, Stages: stages}

	o.logger.Info("orchestrator.done",
		slog.String("run_id", runID),
		slog.Duration("elapsed", time.Since(start)),
		slog.Int("stages", len(stages)),
	)
	return result, err
}

// Builder exposes the orchestrator itself as a capability unit so an
// outer surface (MCP, another registry) can invoke the whole workflow
// as one operation.
func (o *Orchestrator) Builder() core.Builder {
	return &rootBuilder{orch: o}
}

type rootBuilder struct {
	orch *Orchestrator
}

func (b *rootBuilder) Name() string      { return "assistant" }
func (b *rootBuilder) Probe() core.Probe { return core.SatisfiedProbe() }

func (b *rootBuilder) Build() ([]core.Operation, error) {
	return []core.Operation{
		{
			Name:        "run_workflow",
			Description: "Run the full assistant workflow for a request.",
			InputSchema: map[string]string{"request": "string"},
			Handler: func(ctx context.Context, input map[string]any) (any, error) {
				request, _ := input["request"].(string)
				return b.orch.Handle(ctx, request)
			},
		},
	}, nil
}
