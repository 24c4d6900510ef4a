// SPDX-License-Identifier: Apache-2.0
package units

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"time"

	"github.com/dmoret/adjutant/pkg/config"
	"github.com/dmoret/adjutant/pkg/core"
)

var (
	flightOrigin = regexp.MustCompile(`(?i)from (\w+)`)
	flightDest   = regexp.MustCompile(`(?i)to (\w+)`)
	flightDate   = regexp.MustCompile(`on (\d{4}-\d{2}-\d{2})`)
)

// FlightQuery is a parsed flight request.
type FlightQuery struct {
	Origin        string `json:"origin"`
	Destination   string `json:"destination"`
	DepartureDate string `json:"departure_date"`
}

// ParseFlightQuery extracts origin, destination, and date from a natural
// language request like "flight from MCO to DXB on 2026-10-25". Missing
// fields fall back to defaults rather than failing.
func ParseFlightQuery(question string, now time.Time) FlightQuery {
	q := FlightQuery{
		Origin:        "MCO",
		Destination:   "DXB",
		DepartureDate: now.UTC().Format("2006-01-02"),
	}
	if m := flightOrigin.FindStringSubmatch(question); m != nil {
		q.Origin = toIATA(m[1])
	}
	if m := flightDest.FindStringSubmatch(question); m != nil {
		q.Destination = toIATA(m[1])
	}
	if m := flightDate.FindStringSubmatch(question); m != nil {
		q.DepartureDate = m[1]
	}
	return q
}

func toIATA(code string) string {
	out := make([]byte, 0, len(code))
	for i := 0; i < len(code); i++ {
		c := code[i]
		if c >= 'a' && c <= 'z' {
			c -= 'a' - 'A'
		}
		out = append(out, c)
	}
	return string(out)
}

// Flight searches scheduled flights through the configured HTTP API.
// Without an API key the unit degrades.
type Flight struct {
	cfg    config.FlightConfig
	client *http.Client
}

func NewFlight(cfg config.FlightConfig) *Flight {
	return &Flight{
		cfg:    cfg,
		client: &http.Client{Timeout: 15 * time.Second},
	}
}

func (f *Flight) Name() string { return "flight" }

func (f *Flight) Probe() core.Probe {
	if f.cfg.APIKey == "" {
		return core.MissingDependency("flight API key not set")
	}
	return core.SatisfiedProbe()
}

func (f *Flight) Build() ([]core.Operation, error) {
	return []core.Operation{
		{
			Name:        "search_flights",
			Description: "Search scheduled flights for a natural language request.",
			InputSchema: map[string]string{"request": "string"},
			Handler:     f.searchFlights,
		},
	}, nil
}

type flightAPIResponse struct {
	Data []struct {
		FlightDate string `json:"flight_date"`
		Flight     struct {
			IATA string `json:"iata"`
		} `json:"flight"`
		Departure struct {
			IATA      string `json:"iata"`
			Scheduled string `json:"scheduled"`
		} `json:"departure"`
		Arrival struct {
			IATA      string `json:"iata"`
			Scheduled string `json:"scheduled"`
		} `json:"arrival"`
	} `json:"data"`
}

func (f *Flight) searchFlights(ctx context.Context, input map[string]any) (any, error) {
	request := stringArg(input, "request")
	if request == "" {
		return nil, fmt.Errorf("request is required")
	}
	query := ParseFlightQuery(request, time.Now())

	params := url.Values{}
	params.Set("access_key", f.cfg.APIKey)
	params.Set("dep_iata", query.Origin)
	params.Set("arr_iata", query.Destination)
	params.Set("flight_date", query.DepartureDate)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		f.cfg.BaseURL+"/flights?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build flight request: %w", err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("flight api call failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("flight api returned status %d", resp.StatusCode)
	}

	var decoded flightAPIResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode flight response: %w", err)
	}
	if len(decoded.Data) == 0 {
		return map[string]any{
			"query":   query,
			"summary": fmt.Sprintf("no scheduled flights from %s to %s on %s", query.Origin, query.Destination, query.DepartureDate),
		}, nil
	}

	first := decoded.Data[0]
	return map[string]any{
		"query": query,
		"summary": fmt.Sprintf("Flight %s from %s to %s departs at %s and arrives at %s",
			first.Flight.IATA, first.Departure.IATA, first.Arrival.IATA,
			first.Departure.Scheduled, first.Arrival.Scheduled),
	}, nil
}
