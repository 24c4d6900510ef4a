// SPDX-License-Identifier: Apache-2.0
package mcp

import (
	"context"
	"fmt"
	"strings"
	"testing"

	mcpgo "github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/dmoret/adjutant/pkg/core"
)

func textContent(items []mcpgo.Content) string {
	var parts []string
	for _, item := range items {
		switch content := item.(type) {
		case mcpgo.TextContent:
			parts = append(parts, content.Text)
		case *mcpgo.TextContent:
			parts = append(parts, content.Text)
		}
	}
	return strings.Join(parts, "\n")
}

func testClient(t *testing.T, s *Server, opts ...ClientOption) *Client {
	t.Helper()
	httpServer := mcpserver.NewTestStreamableHTTPServer(s.mcpServer)
	t.Cleanup(httpServer.Close)

	c, err := NewClientWithStreamableHTTP(httpServer.URL, opts...)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func TestServerExposesOperations(t *testing.T) {
	s := NewServer("adjutant-test", "0.0.1")
	s.RegisterOperations([]core.Operation{
		{
			Name:        "send_notification",
			Description: "Deliver a notification.",
			InputSchema: map[string]string{"title": "string", "message": "string"},
			Handler: func(_ context.Context, input map[string]any) (any, error) {
				return map[string]any{"delivered": input["title"]}, nil
			},
		},
		{
			Name: "always_fails",
			Handler: func(_ context.Context, _ map[string]any) (any, error) {
				return nil, fmt.Errorf("backend offline")
			},
		},
	})

	c := testClient(t, s)

	tools, err := c.ListTools(context.Background())
	if err != nil {
		t.Fatalf("list tools: %v", err)
	}
	names := map[string]bool{}
	for _, tool := range tools {
		names[tool.Name] = true
	}
	if !names["send_notification"] || !names["always_fails"] {
		t.Fatalf("missing tools in listing: %+v", tools)
	}

	result, err := c.CallTool(context.Background(), "send_notification", map[string]any{
		"title":   "standup",
		"message": "daily standup in 10 minutes",
	})
	if err != nil {
		t.Fatalf("call tool: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected tool error: %s", textContent(result.Content))
	}
	if !strings.Contains(textContent(result.Content), "standup") {
		t.Fatalf("unexpected content: %s", textContent(result.Content))
	}
}

func TestServerContainsHandlerErrors(t *testing.T) {
	s := NewServer("adjutant-test", "0.0.1")
	s.RegisterOperations([]core.Operation{
		{
			Name: "always_fails",
			Handler: func(_ context.Context, _ map[string]any) (any, error) {
				return nil, fmt.Errorf("backend offline")
			},
		},
	})

	c := testClient(t, s)

	result, err := c.CallTool(context.Background(), "always_fails", nil)
	if err != nil {
		t.Fatalf("transport error instead of tool error: %v", err)
	}
	if !result.IsError {
		t.Fatal("expected an error result")
	}
	if got := textContent(result.Content); got != "backend offline" {
		t.Fatalf("unexpected error text: %q", got)
	}
}

func TestRegisterUnitDegradedStubsAnswer(t *testing.T) {
	s := NewServer("adjutant-test", "0.0.1")
	s.RegisterUnit(&core.Unit{
		Name:   "flight",
		Status: core.UnitDegraded,
		Reason: "flight API key not set",
		Operations: []core.Operation{
			{
				Name: "search_flights",
				Handler: func(_ context.Context, _ map[string]any) (any, error) {
					return core.DegradedResult{
						Unit:      "flight",
						Operation: "search_flights",
						Reason:    "flight API key not set",
					}, nil
				},
			},
		},
	})
	// Nothing to expose for a unit that never constructed.
	s.RegisterUnit(&core.Unit{Name: "broken", Status: core.UnitUnavailable})

	c := testClient(t, s)

	tools, err := c.ListTools(context.Background())
	if err != nil {
		t.Fatalf("list tools: %v", err)
	}
	if len(tools) != 1 || tools[0].Name != "search_flights" {
		t.Fatalf("expected only the degraded stub, got %+v", tools)
	}

	result, err := c.CallTool(context.Background(), "search_flights", map[string]any{})
	if err != nil {
		t.Fatalf("call tool: %v", err)
	}
	if result.IsError {
		t.Fatalf("stub must answer, not error: %s", textContent(result.Content))
	}
	if !strings.Contains(textContent(result.Content), "flight API key not set") {
		t.Fatalf("stub did not explain the missing dependency: %s", textContent(result.Content))
	}
}

func TestToolSchemaTypes(t *testing.T) {
	schema := toolSchema(map[string]string{
		"title":         "string",
		"delay_seconds": "int",
		"unread_only":   "bool",
	})
	if schema.Type != "object" {
		t.Fatalf("expected object schema, got %q", schema.Type)
	}
	want := map[string]string{
		"title":         "string",
		"delay_seconds": "number",
		"unread_only":   "boolean",
	}
	for key, kind := range want {
		prop, ok := schema.Properties[key].(map[string]any)
		if !ok {
			t.Fatalf("missing property %q", key)
		}
		if prop["type"] != kind {
			t.Fatalf("%s: expected type %q, got %v", key, kind, prop["type"])
		}
	}
}

func TestClientCachesToolListing(t *testing.T) {
	s := NewServer("adjutant-test", "0.0.1")
	s.RegisterOperations([]core.Operation{
		{
			Name: "first",
			Handler: func(_ context.Context, _ map[string]any) (any, error) {
				return "ok", nil
			},
		},
	})

	c := testClient(t, s)

	tools, err := c.ListTools(context.Background())
	if err != nil {
		t.Fatalf("list tools: %v", err)
	}
	if len(tools) != 1 {
		t.Fatalf("expected 1 tool, got %d", len(tools))
	}

	s.RegisterOperations([]core.Operation{
		{
			Name: "second",
			Handler: func(_ context.Context, _ map[string]any) (any, error) {
				return "ok", nil
			},
		},
	})

	cached, err := c.ListTools(context.Background())
	if err != nil {
		t.Fatalf("list tools: %v", err)
	}
	if len(cached) != 1 {
		t.Fatalf("expected the cached listing, got %d tools", len(cached))
	}
}
