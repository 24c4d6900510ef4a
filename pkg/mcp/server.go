// SPDX-License-Identifier: Apache-2.0
// Package mcp exposes capability operations as MCP tools so external
// clients can drive the assistant over stdio or streamable HTTP.
package mcp

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/dmoret/adjutant/pkg/core"
	"github.com/dmoret/adjutant/pkg/registry"
)

// Server wraps the mcp-go server and adapts core operations into tools.
type Server struct {
	mcpServer *server.MCPServer
	logger    *slog.Logger
}

// ServerOption customizes the Server.
type ServerOption func(*Server)

// WithServerLogger sets the logger for tool registration warnings.
func WithServerLogger(logger *slog.Logger) ServerOption {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewServer creates a new MCP server.
func NewServer(name, version string, opts ...ServerOption) *Server {
	s := &Server{
		mcpServer: server.NewMCPServer(name, version),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RegisterTool registers a raw tool with the server.
func (s *Server) RegisterTool(name, description string, handler func(ctx context.Context, args map[string]any) (*mcp.CallToolResult, error)) {
	tool := mcp.NewTool(name, mcp.WithDescription(description))

	s.mcpServer.AddTool(tool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, _ := request.Params.Arguments.(map[string]any)
		return handler(ctx, args)
	})
}

// RegisterOperations registers each operation as a tool under its own
// name. Handler errors become tool error results, never transport
// failures, so one bad call cannot take the session down.
func (s *Server) RegisterOperations(ops []core.Operation) {
	for _, op := range ops {
		op := op
		tool := mcp.Tool{
			Name:        op.Name,
			Description: op.Description,
			InputSchema: toolSchema(op.InputSchema),
		}
		s.mcpServer.AddTool(tool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args, _ := request.Params.Arguments.(map[string]any)
			if args == nil {
				args = map[string]any{}
			}
			out, err := op.Handler(ctx, args)
			if err != nil {
				return errorResult(err.Error()), nil
			}
			return outputResult(out)
		})
	}
}

// RegisterUnit exposes one loaded unit. Degraded units keep their stub
// operations, so their tools answer with the missing dependency instead
// of disappearing from the listing. Unavailable units register nothing.
func (s *Server) RegisterUnit(unit *core.Unit) {
	if unit == nil || unit.Status == core.UnitUnavailable {
		return
	}
	s.RegisterOperations(unit.Operations)
}

// RegisterDirectory exposes every loadable unit in the registry.
func (s *Server) RegisterDirectory(reg *registry.Registry) {
	for _, unit := range reg.Units() {
		if unit.Status == core.UnitUnavailable {
			s.logger.Warn("mcp.skip_unavailable_unit",
				slog.String("unit", unit.Name),
				slog.String("reason", unit.Reason),
			)
			continue
		}
		s.RegisterUnit(unit)
	}
}

// ServeStdio starts the server on stdio and blocks until the client
// disconnects.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeStreamableHTTP starts the server on the given address.
func (s *Server) ServeStreamableHTTP(addr string) error {
	return server.NewStreamableHTTPServer(s.mcpServer).Start(addr)
}

// toolSchema maps the flat operation schema onto a JSON schema object.
func toolSchema(schema map[string]string) mcp.ToolInputSchema {
	properties := make(map[string]any, len(schema))
	for key, kind := range schema {
		switch kind {
		case "int", "float", "number":
			properties[key] = map[string]any{"type": "number"}
		case "bool":
			properties[key] = map[string]any{"type": "boolean"}
		default:
			properties[key] = map[string]any{"type": "string"}
		}
	}
	return mcp.ToolInputSchema{
		Type:       "object",
		Properties: properties,
	}
}

func errorResult(message string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: message}},
	}
}

// outputResult renders an operation output as text content. Strings
// pass through; everything else is rendered as JSON.
func outputResult(out any) (*mcp.CallToolResult, error) {
	text, ok := out.(string)
	if !ok {
		encoded, err := json.MarshalIndent(out, "", "  ")
		if err != nil {
			return nil, err
		}
		text = string(encoded)
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: text}},
	}, nil
}
