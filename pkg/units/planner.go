// SPDX-License-Identifier: Apache-2.0
package units

import (
	"context"
	"fmt"
	"strings"

	"github.com/dmoret/adjutant/pkg/core"
)

// Planner drafts an itinerary outline for a request. It has no external
// dependencies and is always available.
type Planner struct{}

func NewPlanner() *Planner { return &Planner{} }

func (p *Planner) Name() string      { return "planner" }
func (p *Planner) Probe() core.Probe { return core.SatisfiedProbe() }

func (p *Planner) Build() ([]core.Operation, error) {
	return []core.Operation{
		{
			Name:        "plan_itinerary",
			Description: "Draft an ordered itinerary outline for the request.",
			InputSchema: map[string]string{"request": "string"},
			Handler:     p.planItinerary,
		},
	}, nil
}

func (p *Planner) planItinerary(_ context.Context, input map[string]any) (any, error) {
	request := stringArg(input, "request")
	if request == "" {
		return nil, fmt.Errorf("request is required")
	}

	steps := []string{
		"clarify dates and constraints",
		"gather schedule, flight, and commute options",
		"assemble a draft itinerary",
		"review for conflicts",
		"confirm and notify",
	}
	return map[string]any{
		"request": request,
		"summary": fmt.Sprintf("itinerary outline for: %s", strings.TrimSpace(request)),
		"steps":   steps,
	}, nil
}
