// SPDX-License-Identifier: Apache-2.0
package units

import (
	"context"
	"fmt"
	"strings"

	"github.com/dmoret/adjutant/pkg/core"
)

// Critic reviews a plan for obvious gaps before execution.
type Critic struct{}

func NewCritic() *Critic { return &Critic{} }

func (c *Critic) Name() string      { return "critic" }
func (c *Critic) Probe() core.Probe { return core.SatisfiedProbe() }

func (c *Critic) Build() ([]core.Operation, error) {
	return []core.Operation{
		{
			Name:        "review_plan",
			Description: "Validate a plan and flag conflicts or missing pieces.",
			InputSchema: map[string]string{"plan": "string"},
			Handler:     c.review,
		},
	}, nil
}

func (c *Critic) review(_ context.Context, input map[string]any) (any, error) {
	plan := stringArg(input, "plan")
	if plan == "" {
		plan = stringArg(input, "request")
	}
	if plan == "" {
		return nil, fmt.Errorf("plan is required")
	}

	var issues []string
	lowered := strings.ToLower(plan)
	if strings.Contains(lowered, "tbd") || strings.Contains(lowered, "unknown") {
		issues = append(issues, "plan contains unresolved placeholders")
	}
	if !strings.Contains(lowered, "date") && !flightDate.MatchString(plan) {
		issues = append(issues, "no explicit date found")
	}

	verdict := "no critical issues detected"
	if len(issues) > 0 {
		verdict = "review found open issues"
	}
	return map[string]any{
		"verdict": verdict,
		"issues":  issues,
	}, nil
}
