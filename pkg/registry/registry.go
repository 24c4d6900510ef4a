// SPDX-License-Identifier: Apache-2.0
// Package registry loads capability units and tracks their health.
//
// Loads are isolated per unit: a missing dependency demotes the unit to
// degraded, a construction failure demotes it to unavailable, and neither
// outcome ever prevents another unit from loading.
package registry

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/dmoret/adjutant/pkg/core"
	"github.com/dmoret/adjutant/pkg/errors"
	"github.com/dmoret/adjutant/pkg/telemetry"
)

// Registry is the directory of loaded capability units.
type Registry struct {
	mu      sync.RWMutex
	units   map[string]*core.Unit
	order   []string
	logger  *slog.Logger
	emitter core.EventEmitter
	tracer  trace.Tracer
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the logger used for load outcomes.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithEmitter sets the emitter for unit lifecycle events.
func WithEmitter(emitter core.EventEmitter) Option {
	return func(r *Registry) {
		if emitter != nil {
			r.emitter = emitter
		}
	}
}

// New creates an empty registry.
func New(opts ...Option) *Registry {
	r := &Registry{
		units:   make(map[string]*core.Unit),
		logger:  slog.Default(),
		emitter: core.NoopEventEmitter{},
		tracer:  otel.Tracer("adjutant/registry"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// LoadAll loads every builder independently and concurrently. The registry
// is ready only once every load has joined. One unit's failure never
// changes the outcome of another unit's load.
func LoadAll(ctx context.Context, builders []core.Builder, opts ...Option) *Registry {
	r := New(opts...)
	loaded := make([]*core.Unit, len(builders))

	var wg sync.WaitGroup
	for i, b := range builders {
		wg.Add(1)
		go func(i int, b core.Builder) {
			defer wg.Done()
			loaded[i] = r.load(ctx, b)
		}(i, b)
	}
	wg.Wait()

	for _, unit := range loaded {
		r.register(unit)
	}
	return r
}

// Load constructs a single unit and registers it.
func (r *Registry) Load(ctx context.Context, b core.Builder) *core.Unit {
	unit := r.load(ctx, b)
	r.register(unit)
	return unit
}

// Resolve looks up a unit by name without any loading side effect.
// An unknown name yields an explicit miss, never a nil dereference.
func (r *Registry) Resolve(name string) (*core.Unit, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	unit, ok := r.units[name]
	return unit, ok
}

// Units returns the loaded units in registration order.
func (r *Registry) Units() []*core.Unit {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*core.Unit, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.units[name])
	}
	return out
}

// Len returns the number of registered units.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.units)
}

func (r *Registry) register(unit *core.Unit) {
	if unit == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.units[unit.Name]; exists {
		r.logger.Warn("registry.duplicate_unit", slog.String("unit", unit.Name))
		return
	}
	r.units[unit.Name] = unit
	r.order = append(r.order, unit.Name)
}

// load runs one isolated load attempt. Build panics and errors are
// contained into an unavailable unit; an unsatisfied probe produces a
// degraded unit whose operations answer with explanatory stubs.
func (r *Registry) load(ctx context.Context, b core.Builder) *core.Unit {
	name := b.Name()
	ctx, span := r.tracer.Start(ctx, "Registry.Load")
	defer span.End()

	ops, err := buildOperations(b)
	if err != nil {
		loadErr := errors.New(errors.CodeUnitLoadFailed, "unit construction failed", err).
			WithContext("unit", name)
		r.logger.Error("registry.load.failed",
			slog.String("unit", name),
			slog.String("error", loadErr.Error()),
		)
		r.emitter.Emit(ctx, core.NewEvent(core.EventUnitLoadFailed, name, "", map[string]any{
			"reason": err.Error(),
		}))
		span.SetAttributes(telemetry.UnitAttributes(name, string(core.UnitUnavailable), err.Error())...)
		return &core.Unit{
			Name:   name,
			Status: core.UnitUnavailable,
			Reason: err.Error(),
		}
	}

	entry := ""
	if len(ops) > 0 {
		entry = ops[0].Name
	}
	if en, ok := b.(core.EntryNamer); ok && en.EntryOperation() != "" {
		entry = en.EntryOperation()
	}

	probe := b.Probe()
	if !probe.Satisfied {
		reason := probe.Reason
		if reason == "" {
			reason = "dependency missing"
		}
		r.logger.Warn("registry.load.degraded",
			slog.String("unit", name),
			slog.String("reason", reason),
		)
		r.emitter.Emit(ctx, core.NewEvent(core.EventUnitDegraded, name, "", map[string]any{
			"reason": reason,
		}))
		span.SetAttributes(telemetry.UnitAttributes(name, string(core.UnitDegraded), reason)...)
		return &core.Unit{
			Name:       name,
			Status:     core.UnitDegraded,
			Reason:     reason,
			Entry:      entry,
			Operations: stubOperations(name, reason, ops),
		}
	}

	r.logger.Info("registry.load.ok",
		slog.String("unit", name),
		slog.Int("operations", len(ops)),
	)
	r.emitter.Emit(ctx, core.NewEvent(core.EventUnitLoaded, name, "", nil))
	span.SetAttributes(telemetry.UnitAttributes(name, string(core.UnitAvailable), "")...)
	return &core.Unit{
		Name:       name,
		Status:     core.UnitAvailable,
		Entry:      entry,
		Operations: ops,
	}
}

// buildOperations calls Build with panic containment.
func buildOperations(b core.Builder) (ops []core.Operation, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			ops = nil
			err = fmt.Errorf("build panic: %v", rec)
		}
	}()
	return b.Build()
}

// stubOperations keeps the declared names and schemas but replaces every
// handler with one that answers why the real action cannot run.
func stubOperations(unitName, reason string, ops []core.Operation) []core.Operation {
	stubs := make([]core.Operation, len(ops))
	for i, op := range ops {
		opName := op.Name
		stubs[i] = core.Operation{
			Name:        op.Name,
			Description: op.Description,
			InputSchema: op.InputSchema,
			Handler: func(_ context.Context, _ map[string]any) (any, error) {
				return core.DegradedResult{
					Unit:      unitName,
					Operation: opName,
					Reason:    reason,
				}, nil
			},
		}
	}
	return stubs
}
