// SPDX-License-Identifier: Apache-2.0
package units

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/dmoret/adjutant/pkg/config"
	"github.com/dmoret/adjutant/pkg/core"
)

const distanceMatrixURL = "https://maps.googleapis.com/maps/api/distancematrix/json"

// Commute estimates door-to-door travel time via the distance-matrix
// API. Without a maps API key the unit degrades.
type Commute struct {
	cfg     config.MapsConfig
	baseURL string
	client  *http.Client
}

func NewCommute(cfg config.MapsConfig) *Commute {
	return &Commute{
		cfg:     cfg,
		baseURL: distanceMatrixURL,
		client:  &http.Client{Timeout: 15 * time.Second},
	}
}

func (c *Commute) Name() string { return "commute" }

func (c *Commute) Probe() core.Probe {
	if c.cfg.APIKey == "" {
		return core.MissingDependency("MAPS_PLACE_API_KEY not set")
	}
	return core.SatisfiedProbe()
}

func (c *Commute) Build() ([]core.Operation, error) {
	return []core.Operation{
		{
			Name:        "estimate_commute",
			Description: "Return driving distance and duration between origin and destination.",
			InputSchema: map[string]string{"origin": "string", "destination": "string"},
			Handler:     c.estimate,
		},
	}, nil
}

type distanceMatrixResponse struct {
	Status string `json:"status"`
	Rows   []struct {
		Elements []struct {
			Status   string `json:"status"`
			Distance struct {
				Text string `json:"text"`
			} `json:"distance"`
			Duration struct {
				Text string `json:"text"`
			} `json:"duration"`
		} `json:"elements"`
	} `json:"rows"`
}

func (c *Commute) estimate(ctx context.Context, input map[string]any) (any, error) {
	origin := stringArg(input, "origin")
	destination := stringArg(input, "destination")
	if origin == "" || destination == "" {
		return nil, fmt.Errorf("origin and destination are required")
	}

	params := url.Values{}
	params.Set("origins", origin)
	params.Set("destinations", destination)
	params.Set("key", c.cfg.APIKey)
	params.Set("units", "imperial")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build distance request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("distance api call failed: %w", err)
	}
	defer resp.Body.Close()

	var decoded distanceMatrixResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode distance response: %w", err)
	}
	if decoded.Status != "OK" {
		return nil, fmt.Errorf("distance api status: %s", decoded.Status)
	}
	if len(decoded.Rows) == 0 || len(decoded.Rows[0].Elements) == 0 {
		return nil, fmt.Errorf("distance api returned no routes")
	}
	element := decoded.Rows[0].Elements[0]
	if element.Status != "OK" {
		return nil, fmt.Errorf("cannot calculate distance: %s", element.Status)
	}

	return map[string]any{
		"origin":      origin,
		"destination": destination,
		"distance":    element.Distance.Text,
		"duration":    element.Duration.Text,
		"summary": fmt.Sprintf("The distance from %s to %s is %s, and it will take approximately %s by car.",
			origin, destination, element.Distance.Text, element.Duration.Text),
	}, nil
}
