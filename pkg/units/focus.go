// SPDX-License-Identifier: Apache-2.0
package units

import (
	"context"
	"fmt"

	"github.com/dmoret/adjutant/pkg/core"
)

// Focus proposes deep-work blocks sized to the requested duration.
type Focus struct{}

func NewFocus() *Focus { return &Focus{} }

func (f *Focus) Name() string      { return "focus" }
func (f *Focus) Probe() core.Probe { return core.SatisfiedProbe() }

func (f *Focus) Build() ([]core.Operation, error) {
	return []core.Operation{
		{
			Name:        "suggest_focus_block",
			Description: "Suggest a deep-work block with breaks for the given duration.",
			InputSchema: map[string]string{"minutes": "int"},
			Handler:     f.suggest,
		},
	}, nil
}

func (f *Focus) suggest(_ context.Context, input map[string]any) (any, error) {
	minutes := intArg(input, "minutes", 50)
	if minutes <= 0 {
		return nil, fmt.Errorf("minutes must be positive")
	}

	// 50/10 work-break split, capped at four cycles per block.
	cycles := minutes / 60
	if cycles < 1 {
		cycles = 1
	}
	if cycles > 4 {
		cycles = 4
	}
	return map[string]any{
		"cycles":        cycles,
		"work_minutes":  50,
		"break_minutes": 10,
		"summary":       fmt.Sprintf("%d focus cycle(s) of 50 minutes with 10-minute breaks", cycles),
	}, nil
}
