// SPDX-License-Identifier: Apache-2.0
package units

import (
	"context"

	"github.com/dmoret/adjutant/pkg/core"
)

// Wellness suggests self-care activities to balance the schedule.
type Wellness struct{}

func NewWellness() *Wellness { return &Wellness{} }

func (w *Wellness) Name() string      { return "wellness" }
func (w *Wellness) Probe() core.Probe { return core.SatisfiedProbe() }

var wellnessSuggestions = map[string]string{
	"general":     "Take a 5-minute break, stretch, and hydrate.",
	"break":       "Step away from your screen, do some light stretching, and take deep breaths.",
	"exercise":    "Consider a 10-minute walk or quick workout session.",
	"mindfulness": "Try a 2-minute breathing exercise or brief meditation.",
}

func (w *Wellness) Build() ([]core.Operation, error) {
	return []core.Operation{
		{
			Name:        "suggest_activity",
			Description: "Suggest a wellness activity for the given activity type.",
			InputSchema: map[string]string{"activity_type": "string (general|break|exercise|mindfulness)"},
			Handler:     w.suggest,
		},
	}, nil
}

func (w *Wellness) suggest(_ context.Context, input map[string]any) (any, error) {
	kind := stringArg(input, "activity_type")
	suggestion, ok := wellnessSuggestions[kind]
	if !ok {
		kind = "general"
		suggestion = wellnessSuggestions[kind]
	}
	return map[string]any{
		"activity_type": kind,
		"suggestion":    suggestion,
	}, nil
}
