// SPDX-License-Identifier: Apache-2.0
package main

import (
	"strings"
	"testing"
	"time"

	"github.com/dmoret/adjutant/pkg/core"
	"github.com/dmoret/adjutant/pkg/orchestrator"
	"github.com/dmoret/adjutant/pkg/workflow"
)

func TestParseGlobalFlags(t *testing.T) {
	flags, rest, err := parseGlobalFlags([]string{
		"--json", "--config", "config.yaml", "--profile=dev",
		"--set", "notify.backend=sqlite", "--timeout=90s",
		"run", "plan", "my", "day",
	})
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if !flags.JSON {
		t.Error("expected json output flag")
	}
	if flags.Timeout != 90*time.Second {
		t.Errorf("expected 90s timeout, got %s", flags.Timeout)
	}
	wantConfig := []string{"--config", "config.yaml", "--profile=dev", "--set", "notify.backend=sqlite"}
	if len(flags.ConfigArgs) != len(wantConfig) {
		t.Fatalf("unexpected config args: %v", flags.ConfigArgs)
	}
	for i, arg := range wantConfig {
		if flags.ConfigArgs[i] != arg {
			t.Errorf("config arg %d: expected %q, got %q", i, arg, flags.ConfigArgs[i])
		}
	}
	if len(rest) != 4 || rest[0] != "run" {
		t.Fatalf("unexpected remaining args: %v", rest)
	}
}

func TestParseGlobalFlagsErrors(t *testing.T) {
	if _, _, err := parseGlobalFlags([]string{"--config"}); err == nil {
		t.Error("expected error for dangling --config")
	}
	if _, _, err := parseGlobalFlags([]string{"--timeout", "soon"}); err == nil {
		t.Error("expected error for invalid --timeout")
	}
	if _, _, err := parseGlobalFlags([]string{"--frobnicate"}); err == nil {
		t.Error("expected error for unknown flag")
	}
}

func TestParseGlobalFlagsDoubleDash(t *testing.T) {
	_, rest, err := parseGlobalFlags([]string{"--json", "--", "--not-a-flag"})
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if len(rest) != 1 || rest[0] != "--not-a-flag" {
		t.Fatalf("expected args after --, got %v", rest)
	}
}

func TestRenderOutput(t *testing.T) {
	if got := renderOutput("plain"); got != "plain" {
		t.Errorf("string output: got %q", got)
	}
	if got := renderOutput(nil); got != "" {
		t.Errorf("nil output: got %q", got)
	}
	degraded := core.DegradedResult{Unit: "flight", Reason: "flight API key not set"}
	if got := renderOutput(degraded); got != "flight API key not set" {
		t.Errorf("degraded output: got %q", got)
	}
	withSummary := map[string]any{"summary": "three meetings today", "blocks": 3}
	if got := renderOutput(withSummary); got != "three meetings today" {
		t.Errorf("summary output: got %q", got)
	}
	if got := renderOutput(map[string]any{"count": 2}); got != `{"count":2}` {
		t.Errorf("json fallback: got %q", got)
	}
}

func TestPrintRunResult(t *testing.T) {
	result := &orchestrator.RunResult{
		RunID: "run-123",
		Stages: []workflow.StageResult{
			{
				Name:  "gather",
				Kind:  workflow.StageParallel,
				State: workflow.StageCompleted,
				Members: []workflow.MemberResult{
					{
						Unit:      "planner",
						Operation: "plan_itinerary",
						Status:    core.UnitAvailable,
						Output:    map[string]any{"summary": "itinerary outline"},
					},
					{
						Unit:      "commute",
						Operation: "estimate_commute",
						Status:    core.UnitDegraded,
						Failed:    true,
						Reason:    "dependency missing: MAPS_PLACE_API_KEY not set",
					},
				},
			},
		},
	}

	var buf strings.Builder
	printRunResult(&buf, result, nil)
	out := buf.String()

	for _, want := range []string{
		"run run-123",
		"stage gather (parallel)",
		"plan_itinerary",
		"itinerary outline",
		"estimate_commute",
		"failed",
		"dependency missing: MAPS_PLACE_API_KEY not set",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("  padded   cell  ", 100); got != "padded cell" {
		t.Errorf("normalize: got %q", got)
	}
	if got := truncate("abcdefghij", 8); got != "abcde..." {
		t.Errorf("truncate: got %q", got)
	}
	if got := truncate("", 10); got != "-" {
		t.Errorf("empty cell: got %q", got)
	}
}
