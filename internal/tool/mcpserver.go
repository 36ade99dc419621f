package tool

import (
	"context"
	"encoding/json"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// NewMCPServer exposes the dispatcher's tool catalogue as a Model Context
// Protocol server, so external MCP clients (editors, other agents) can drive
// the same preview/confirm tools the conversation loop uses.
//
// userID is the authenticated identity every MCP call executes as — MCP
// transports carry no session of their own, so the identity is fixed at
// server construction and the dispatcher's parameter override applies as
// usual.
func NewMCPServer(d *Dispatcher, userID, version string) *mcp.Server {
	srv := mcp.NewServer(&mcp.Implementation{
		Name:    "ledgerly",
		Version: version,
	}, nil)

	for _, def := range d.Definitions() {
		srv.AddTool(&mcp.Tool{
			Name:        def.Name,
			Description: def.Description,
			InputSchema: toSchema(def.Parameters),
		}, mcpHandler(d, def.Name, userID))
	}
	return srv
}

// mcpHandler adapts one registered tool to the SDK's raw handler signature.
// The Result is serialised whole: MCP clients get the same tagged payload
// the chat loop narrates from.
func mcpHandler(d *Dispatcher, name, userID string) mcp.ToolHandler {
	return func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := decodeArguments(req.Params.Arguments)
		res := d.Dispatch(ctx, name, userID, args)

		payload, err := json.Marshal(res)
		if err != nil {
			return nil, err
		}
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: string(payload)}},
			IsError: res.Status == StatusError,
		}, nil
	}
}

// decodeArguments normalises the SDK's argument payload, which arrives as
// raw JSON or an already-decoded map depending on transport.
func decodeArguments(v any) map[string]any {
	switch a := v.(type) {
	case nil:
		return nil
	case map[string]any:
		return a
	case json.RawMessage:
		var m map[string]any
		if err := json.Unmarshal(a, &m); err == nil {
			return m
		}
	default:
		if data, err := json.Marshal(a); err == nil {
			var m map[string]any
			if err := json.Unmarshal(data, &m); err == nil {
				return m
			}
		}
	}
	return nil
}

// toSchema converts a plain JSON Schema map into the SDK's schema type via a
// JSON round-trip.
func toSchema(params map[string]any) *jsonschema.Schema {
	if params == nil {
		params = map[string]any{"type": "object"}
	}
	data, err := json.Marshal(params)
	if err != nil {
		return &jsonschema.Schema{Type: "object"}
	}
	var s jsonschema.Schema
	if err := json.Unmarshal(data, &s); err != nil {
		return &jsonschema.Schema{Type: "object"}
	}
	return &s
}
