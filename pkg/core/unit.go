// SPDX-License-Identifier: Apache-2.0
// Package core provides the capability unit contract for Adjutant.
package core

import (
	"context"
	"fmt"
)

// UnitStatus represents the health state of a capability unit.
type UnitStatus string

const (
	// UnitAvailable indicates the unit is fully operational.
	UnitAvailable UnitStatus = "AVAILABLE"

	// UnitDegraded indicates an optional dependency or credential is
	// missing; operations answer with explanatory stubs instead of
	// attempting the real action.
	UnitDegraded UnitStatus = "DEGRADED"

	// UnitUnavailable indicates the unit's construction failed. The unit
	// carries zero operations.
	UnitUnavailable UnitStatus = "UNAVAILABLE"
)

// OperationHandler executes a single named operation of a unit.
type OperationHandler func(ctx context.Context, input map[string]any) (any, error)

// Operation is an invocable capability bound by stable name.
type Operation struct {
	Name        string
	Description string
	InputSchema map[string]string // field name -> type hint
	Handler     OperationHandler
}

// Unit is a loaded capability unit. Its status is fixed for the lifetime
// of a single load attempt; there is no hot-reload.
type Unit struct {
	Name       string
	Status     UnitStatus
	Reason     string // degradation or load-failure cause; empty when available
	Entry      string // name of the operation the workflow engine invokes
	Operations []Operation
}

// Operation returns the named operation. Callers bind by stable name,
// never by position.
func (u *Unit) Operation(name string) (Operation, bool) {
	for _, op := range u.Operations {
		if op.Name == name {
			return op, true
		}
	}
	return Operation{}, false
}

// OperationNames returns the declared operation names in order.
func (u *Unit) OperationNames() []string {
	names := make([]string, len(u.Operations))
	for i, op := range u.Operations {
		names[i] = op.Name
	}
	return names
}

// Invoke runs the named operation with the given input.
func (u *Unit) Invoke(ctx context.Context, name string, input map[string]any) (any, error) {
	op, ok := u.Operation(name)
	if !ok {
		return nil, fmt.Errorf("unit %q has no operation %q", u.Name, name)
	}
	if op.Handler == nil {
		return nil, fmt.Errorf("operation %q of unit %q has no handler", name, u.Name)
	}
	return op.Handler(ctx, input)
}

// Probe reports whether a unit's dependencies are satisfied. Probing must
// be cheap and side-effect-free: a config or credential presence check,
// never a live network call.
type Probe struct {
	Satisfied bool
	Reason    string // human-readable cause when unsatisfied
}

// SatisfiedProbe is the probe of a unit with no optional dependencies.
func SatisfiedProbe() Probe {
	return Probe{Satisfied: true}
}

// MissingDependency builds an unsatisfied probe with the given cause.
func MissingDependency(reason string) Probe {
	return Probe{Satisfied: false, Reason: reason}
}

// Builder constructs a capability unit. The registry drives it: Probe
// decides between available and degraded, Build assembles the real
// operations and may fail, which demotes the unit to unavailable.
type Builder interface {
	// Name returns the unit's stable identifier.
	Name() string

	// Probe checks optional dependencies without I/O.
	Probe() Probe

	// Build assembles the unit's operations. The first operation is the
	// default workflow entry unless the builder implements EntryNamer.
	Build() ([]Operation, error)
}

// EntryNamer lets a builder designate the workflow entry operation by name.
type EntryNamer interface {
	EntryOperation() string
}

// DegradedResult is the explanatory answer a degraded unit's stub
// operations return instead of attempting the real action.
type DegradedResult struct {
	Unit      string `json:"unit"`
	Operation string `json:"operation"`
	Reason    string `json:"reason"`
}

func (d DegradedResult) String() string {
	return fmt.Sprintf("unit %q cannot run %q: %s", d.Unit, d.Operation, d.Reason)
}
