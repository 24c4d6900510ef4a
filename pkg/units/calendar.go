// SPDX-License-Identifier: Apache-2.0
package units

import (
	"context"
	"fmt"
	"time"

	"github.com/dmoret/adjutant/pkg/core"
)

// Calendar proposes schedule blocks around a request. Credential-free;
// it plans against the local clock only.
type Calendar struct {
	clock func() time.Time
}

func NewCalendar() *Calendar { return &Calendar{clock: time.Now} }

func (c *Calendar) Name() string      { return "calendar" }
func (c *Calendar) Probe() core.Probe { return core.SatisfiedProbe() }

func (c *Calendar) Build() ([]core.Operation, error) {
	return []core.Operation{
		{
			Name:        "plan_schedule",
			Description: "Propose schedule blocks for the request on the given date.",
			InputSchema: map[string]string{"request": "string", "date": "string (YYYY-MM-DD, optional)"},
			Handler:     c.planSchedule,
		},
	}, nil
}

func (c *Calendar) planSchedule(_ context.Context, input map[string]any) (any, error) {
	request := stringArg(input, "request")
	if request == "" {
		return nil, fmt.Errorf("request is required")
	}

	day := c.clock()
	if raw := stringArg(input, "date"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return nil, fmt.Errorf("invalid date %q: %w", raw, err)
		}
		day = parsed
	}

	blocks := []map[string]string{
		{"start": "09:00", "end": "10:30", "label": "preparation"},
		{"start": "11:00", "end": "12:00", "label": "travel buffer"},
		{"start": "14:00", "end": "15:00", "label": request},
	}
	return map[string]any{
		"date":   day.Format("2006-01-02"),
		"blocks": blocks,
	}, nil
}
