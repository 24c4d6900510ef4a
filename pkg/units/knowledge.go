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

// Knowledge answers lookups through an encyclopedia summary API.
type Knowledge struct {
	cfg    config.KnowledgeConfig
	client *http.Client
}

func NewKnowledge(cfg config.KnowledgeConfig) *Knowledge {
	return &Knowledge{
		cfg:    cfg,
		client: &http.Client{Timeout: 15 * time.Second},
	}
}

func (k *Knowledge) Name() string { return "knowledge" }

func (k *Knowledge) Probe() core.Probe {
	if k.cfg.BaseURL == "" {
		return core.MissingDependency("knowledge base URL not set")
	}
	return core.SatisfiedProbe()
}

func (k *Knowledge) Build() ([]core.Operation, error) {
	return []core.Operation{
		{
			Name:        "lookup",
			Description: "Fetch a short encyclopedia summary for a topic.",
			InputSchema: map[string]string{"topic": "string"},
			Handler:     k.lookup,
		},
	}, nil
}

type summaryResponse struct {
	Title   string `json:"title"`
	Extract string `json:"extract"`
}

func (k *Knowledge) lookup(ctx context.Context, input map[string]any) (any, error) {
	topic := stringArg(input, "topic")
	if topic == "" {
		topic = stringArg(input, "request")
	}
	if topic == "" {
		return nil, fmt.Errorf("topic is required")
	}

	endpoint := k.cfg.BaseURL + "/page/summary/" + url.PathEscape(topic)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build lookup request: %w", err)
	}
	resp, err := k.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("lookup failed: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return map[string]any{
			"topic":   topic,
			"summary": "no page found for the topic",
		}, nil
	default:
		return nil, fmt.Errorf("lookup returned status %d", resp.StatusCode)
	}

	var decoded summaryResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode lookup response: %w", err)
	}
	return map[string]any{
		"topic":   decoded.Title,
		"summary": decoded.Extract,
	}, nil
}
