// SPDX-License-Identifier: Apache-2.0
package core

import (
	"context"
	"testing"
)

func TestOperationLookupByName(t *testing.T) {
	unit := &Unit{
		Name:   "calendar",
		Status: UnitAvailable,
		Operations: []Operation{
			{Name: "list_events", Handler: func(ctx context.Context, input map[string]any) (any, error) {
				return "events", nil
			}},
			{Name: "add_event", Handler: func(ctx context.Context, input map[string]any) (any, error) {
				return "added", nil
			}},
		},
	}

	op, ok := unit.Operation("add_event")
	if !ok {
		t.Fatal("expected add_event to resolve")
	}
	if op.Name != "add_event" {
		t.Fatalf("unexpected operation: %q", op.Name)
	}

	if _, ok := unit.Operation("drop_event"); ok {
		t.Fatal("expected unknown operation to miss")
	}

	names := unit.OperationNames()
	if len(names) != 2 || names[0] != "list_events" || names[1] != "add_event" {
		t.Fatalf("unexpected operation names: %v", names)
	}
}

func TestInvoke(t *testing.T) {
	unit := &Unit{
		Name: "planner",
		Operations: []Operation{
			{Name: "plan", Handler: func(ctx context.Context, input map[string]any) (any, error) {
				return input["request"], nil
			}},
		},
	}

	out, err := unit.Invoke(context.Background(), "plan", map[string]any{"request": "trip"})
	if err != nil {
		t.Fatalf("invoke failed: %v", err)
	}
	if out != "trip" {
		t.Fatalf("unexpected output: %v", out)
	}

	if _, err := unit.Invoke(context.Background(), "absent", nil); err == nil {
		t.Fatal("expected error for unknown operation")
	}
}

func TestEnsureRunID(t *testing.T) {
	ctx, id := EnsureRunID(context.Background())
	if id == "" {
		t.Fatal("expected generated run id")
	}
	ctx2, id2 := EnsureRunID(ctx)
	if id2 != id {
		t.Fatalf("expected stable run id, got %q then %q", id, id2)
	}
	if ctx2 != ctx {
		t.Fatal("expected context reuse when run id present")
	}
}

func TestProbeHelpers(t *testing.T) {
	if p := SatisfiedProbe(); !p.Satisfied || p.Reason != "" {
		t.Fatalf("unexpected satisfied probe: %+v", p)
	}
	p := MissingDependency("MAPS_PLACE_API_KEY not set")
	if p.Satisfied {
		t.Fatal("expected unsatisfied probe")
	}
	if p.Reason == "" {
		t.Fatal("expected reason on unsatisfied probe")
	}
}
