// SPDX-License-Identifier: Apache-2.0
package orchestrator

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/dmoret/adjutant/pkg/config"
	"github.com/dmoret/adjutant/pkg/core"
	"github.com/dmoret/adjutant/pkg/notify"
	"github.com/dmoret/adjutant/pkg/telemetry"
	"github.com/dmoret/adjutant/pkg/workflow"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	cfg.Notify.Backend = "memory"

	// Keep the knowledge unit off the network.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"title":"Topic","extract":"A short summary."}`)
	}))
	t.Cleanup(server.Close)
	cfg.Units.Knowledge.BaseURL = server.URL
	return cfg
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestHandleRunsDefaultWorkflow(t *testing.T) {
	orch, err := New(context.Background(), testConfig(t), WithLogger(quietLogger()))
	if err != nil {
		t.Fatalf("new orchestrator: %v", err)
	}

	result, err := orch.Handle(context.Background(), "plan trip to Orlando on 2026-10-25")
	if err != nil {
		t.Fatalf("handle failed: %v", err)
	}
	if result.RunID == "" {
		t.Fatal("expected a run id")
	}
	if len(result.Stages) != 2 {
		t.Fatalf("expected 2 stages, got %d", len(result.Stages))
	}

	gather := result.Stages[0]
	if gather.Kind != workflow.StageParallel || len(gather.Members) != 4 {
		t.Fatalf("unexpected gather stage: %+v", gather)
	}
	byUnit := map[string]workflow.MemberResult{}
	for _, m := range gather.Members {
		byUnit[m.Unit] = m
	}
	if byUnit["planner"].Failed || byUnit["calendar"].Failed {
		t.Fatalf("credential-free planners must succeed: %+v", gather.Members)
	}
	// flight and commute have no credentials in the default config.
	for _, name := range []string{"flight", "commute"} {
		m := byUnit[name]
		if !m.Failed || !strings.HasPrefix(m.Reason, "dependency missing:") {
			t.Fatalf("%s: expected degraded member, got %+v", name, m)
		}
	}

	process := result.Stages[1]
	if process.Kind != workflow.StageSequential || len(process.Members) != 7 {
		t.Fatalf("unexpected process stage: %+v", process)
	}
	for _, m := range process.Members {
		switch m.Unit {
		case "email", "memory":
			if !m.Failed {
				t.Errorf("%s: expected degraded member without credentials", m.Unit)
			}
		default:
			if m.Failed {
				t.Errorf("%s: unexpected failure: %s", m.Unit, m.Reason)
			}
		}
	}
}

func TestHandleDeliversNotification(t *testing.T) {
	orch, err := New(context.Background(), testConfig(t), WithLogger(quietLogger()))
	if err != nil {
		t.Fatalf("new orchestrator: %v", err)
	}

	if _, err := orch.Handle(context.Background(), "book dentist appointment"); err != nil {
		t.Fatalf("handle failed: %v", err)
	}

	items, err := orch.Store().List(context.Background(), false)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected the pipeline to persist 1 notification, got %d", len(items))
	}
	if items[0].Message != "book dentist appointment" {
		t.Fatalf("unexpected notification: %+v", items[0])
	}
}

func TestRegistryDirectoryOrder(t *testing.T) {
	orch, err := New(context.Background(), testConfig(t), WithLogger(quietLogger()))
	if err != nil {
		t.Fatalf("new orchestrator: %v", err)
	}

	unitsList := orch.Registry().Units()
	want := []string{
		"planner", "calendar", "flight", "commute",
		"notification", "critic", "email", "focus", "knowledge", "memory", "wellness",
	}
	if len(unitsList) != len(want) {
		t.Fatalf("expected %d units, got %d", len(want), len(unitsList))
	}
	for i, u := range unitsList {
		if u.Name != want[i] {
			t.Fatalf("position %d: expected %s, got %s", i, want[i], u.Name)
		}
	}
}

func TestRootBuilderRunsWorkflow(t *testing.T) {
	orch, err := New(context.Background(), testConfig(t), WithLogger(quietLogger()))
	if err != nil {
		t.Fatalf("new orchestrator: %v", err)
	}

	builder := orch.Builder()
	ops, err := builder.Build()
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	if len(ops) != 1 || ops[0].Name != "run_workflow" {
		t.Fatalf("unexpected operations: %+v", ops)
	}

	out, err := ops[0].Handler(context.Background(), map[string]any{"request": "hello"})
	if err != nil {
		t.Fatalf("run_workflow failed: %v", err)
	}
	if out.(*RunResult).RunID == "" {
		t.Fatal("expected run id in result")
	}
}

func TestCustomWorkflowOverride(t *testing.T) {
	wf := &workflow.Workflow{
		ID: "minimal",
		Stages: []workflow.Stage{
			{Kind: workflow.StageSequential, Members: []string{"planner"}},
		},
	}
	orch, err := New(context.Background(), testConfig(t),
		WithLogger(quietLogger()), WithWorkflow(wf))
	if err != nil {
		t.Fatalf("new orchestrator: %v", err)
	}

	result, err := orch.Handle(context.Background(), "just plan")
	if err != nil {
		t.Fatalf("handle failed: %v", err)
	}
	if len(result.Stages) != 1 || len(result.Stages[0].Members) != 1 {
		t.Fatalf("override not honored: %+v", result.Stages)
	}
}

func TestHandleEmitsLifecycleEvents(t *testing.T) {
	emitter := &recordingEmitter{}
	orch, err := New(context.Background(), testConfig(t),
		WithLogger(quietLogger()), WithEmitter(emitter))
	if err != nil {
		t.Fatalf("new orchestrator: %v", err)
	}
	if _, err := orch.Handle(context.Background(), "anything"); err != nil {
		t.Fatalf("handle failed: %v", err)
	}

	seen := map[core.EventType]bool{}
	for _, e := range emitter.events() {
		seen[e.Type] = true
	}
	for _, want := range []core.EventType{
		core.EventUnitLoaded, core.EventUnitDegraded,
		core.EventStageStarted, core.EventStageCompleted,
		core.EventMemberCompleted, core.EventMemberFailed,
	} {
		if !seen[want] {
			t.Errorf("expected %s event", want)
		}
	}
}

func TestHandleWithMetrics(t *testing.T) {
	metrics, err := telemetry.NewWorkflowMetrics()
	if err != nil {
		t.Fatalf("metrics: %v", err)
	}
	orch, err := New(context.Background(), testConfig(t),
		WithLogger(quietLogger()), WithMetrics(metrics))
	if err != nil {
		t.Fatalf("new orchestrator: %v", err)
	}

	if _, err := orch.Handle(context.Background(), "remind me to stretch"); err != nil {
		t.Fatalf("handle failed: %v", err)
	}

	// The metered store wrapper must not change store behavior.
	items, err := orch.Store().List(context.Background(), false)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected 1 notification through the metered store, got %d", len(items))
	}
}

type recordingEmitter struct {
	mu  sync.Mutex
	evs []core.Event
}

func (r *recordingEmitter) Emit(_ context.Context, e core.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.evs = append(r.evs, e)
}

func (r *recordingEmitter) events() []core.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]core.Event, len(r.evs))
	copy(out, r.evs)
	return out
}

func TestNewNotifyStoreBackends(t *testing.T) {
	if _, err := newNotifyStore(config.NotifyConfig{Backend: "memory"}); err != nil {
		t.Fatalf("memory backend failed: %v", err)
	}
	if _, err := newNotifyStore(config.NotifyConfig{Backend: "file"}); err == nil {
		t.Fatal("expected error for file backend without path")
	}
	if _, err := newNotifyStoreFileOK(t); err != nil {
		t.Fatalf("file backend failed: %v", err)
	}
	if _, err := newNotifyStore(config.NotifyConfig{Backend: "carrier-pigeon"}); err == nil {
		t.Fatal("expected error for unknown backend")
	}

	sqlitePath := filepath.Join(t.TempDir(), "notify.db")
	store, err := newNotifyStore(config.NotifyConfig{Backend: "sqlite", Path: sqlitePath})
	if err != nil {
		t.Fatalf("sqlite backend failed: %v", err)
	}
	if _, err := store.Send(context.Background(), "t", "m", notify.PriorityNormal, nil); err != nil {
		t.Fatalf("sqlite store send failed: %v", err)
	}
}

func newNotifyStoreFileOK(t *testing.T) (notify.Store, error) {
	t.Helper()
	return newNotifyStore(config.NotifyConfig{
		Backend: "file",
		Path:    filepath.Join(t.TempDir(), "n.json"),
	})
}
