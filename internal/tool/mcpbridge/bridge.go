// Package mcpbridge adapts a remote MCP (Model Context Protocol)
// server's tools into the engine's tool.Tool interface, so a vendor data
// source can be plugged into the registry without internal/tool ever
// depending on a vendor SDK.
package mcpbridge

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	sdkclient "github.com/mark3labs/mcp-go/client"
	sdkmcp "github.com/mark3labs/mcp-go/mcp"

	"github.com/quiver-labs/finagent/internal/tool"
)

// callTimeout bounds a single MCP tool call, in seconds, so a hung server
// cannot block a step indefinitely.
const callTimeout = 60

// ServerConfig describes one MCP server connection, mirroring the
// per-server shape of a conventional mcp.json file.
type ServerConfig struct {
	Name    string   // logical name, used in trace lines and tool naming
	Command string   // stdio: executable path
	Args    []string // stdio: command arguments
	Env     []string // stdio: extra environment variables ("KEY=VALUE")
	URL     string   // sse: base URL; set instead of Command for an SSE server
}

// toolInfo captures one tool's metadata as advertised by the server.
type toolInfo struct {
	Name        string
	Description string
	InputSchema json.RawMessage
}

// Client wraps the mcp-go SDK client for a single server connection.
type Client struct {
	mu    sync.RWMutex
	cfg   ServerConfig
	inner sdkclient.MCPClient
}

// NewClient returns an unconnected Client for cfg. Call Connect before
// ListTools or CallTool.
func NewClient(cfg ServerConfig) *Client {
	return &Client{cfg: cfg}
}

// Connect establishes the transport and performs the MCP initialize
// handshake.
func (c *Client) Connect(ctx context.Context) error {
	var inner sdkclient.MCPClient
	var err error

	switch {
	case c.cfg.URL != "":
		inner, err = sdkclient.NewSSEMCPClient(c.cfg.URL)
		if err != nil {
			return fmt.Errorf("mcpbridge: create sse client %q: %w", c.cfg.Name, err)
		}
		if sseClient, ok := inner.(*sdkclient.Client); ok {
			if startErr := sseClient.Start(ctx); startErr != nil {
				return fmt.Errorf("mcpbridge: start sse client %q: %w", c.cfg.Name, startErr)
			}
		}
	case c.cfg.Command != "":
		inner, err = sdkclient.NewStdioMCPClient(c.cfg.Command, c.cfg.Env, c.cfg.Args...)
		if err != nil {
			return fmt.Errorf("mcpbridge: start stdio server %q: %w", c.cfg.Name, err)
		}
	default:
		return fmt.Errorf("mcpbridge: server %q has neither Command nor URL set", c.cfg.Name)
	}

	_, err = inner.Initialize(ctx, sdkmcp.InitializeRequest{
		Params: sdkmcp.InitializeParams{
			ProtocolVersion: sdkmcp.LATEST_PROTOCOL_VERSION,
			ClientInfo: sdkmcp.Implementation{
				Name:    "finagent",
				Version: "0.1.0",
			},
		},
	})
	if err != nil {
		_ = inner.Close()
		return fmt.Errorf("mcpbridge: initialize server %q: %w", c.cfg.Name, err)
	}

	c.mu.Lock()
	c.inner = inner
	c.mu.Unlock()
	return nil
}

// ListTools returns metadata for every tool the connected server exposes.
func (c *Client) ListTools(ctx context.Context) ([]toolInfo, error) {
	c.mu.RLock()
	inner := c.inner
	c.mu.RUnlock()
	if inner == nil {
		return nil, fmt.Errorf("mcpbridge: client %q not connected", c.cfg.Name)
	}

	result, err := inner.ListTools(ctx, sdkmcp.ListToolsRequest{})
	if err != nil {
		return nil, fmt.Errorf("mcpbridge: list tools %q: %w", c.cfg.Name, err)
	}

	infos := make([]toolInfo, 0, len(result.Tools))
	for _, t := range result.Tools {
		schema, marshalErr := json.Marshal(t.InputSchema)
		if marshalErr != nil {
			schema = json.RawMessage("{}")
		}
		infos = append(infos, toolInfo{Name: t.Name, Description: t.Description, InputSchema: schema})
	}
	return infos, nil
}

// CallTool invokes name on the server and returns its concatenated text
// content. A server-reported tool error is returned as a plain Go error;
// callers (Adapter.Invoke) fold it into StepResult.Error rather than
// letting it cross further node boundaries.
func (c *Client) CallTool(ctx context.Context, name string, args map[string]any) (string, error) {
	c.mu.RLock()
	inner := c.inner
	c.mu.RUnlock()
	if inner == nil {
		return "", fmt.Errorf("mcpbridge: client %q not connected", c.cfg.Name)
	}

	req := sdkmcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args

	ctx, cancel := context.WithTimeout(ctx, callTimeout*time.Second)
	defer cancel()
	result, err := inner.CallTool(ctx, req)
	if err != nil {
		return "", fmt.Errorf("mcpbridge: call tool %q on %q: %w", name, c.cfg.Name, err)
	}

	var parts []string
	for _, content := range result.Content {
		if tc, ok := content.(sdkmcp.TextContent); ok {
			parts = append(parts, tc.Text)
		}
	}
	text := strings.Join(parts, "\n")
	if result.IsError {
		return "", fmt.Errorf("mcpbridge: tool %q returned error: %s", name, text)
	}
	return text, nil
}

// Close terminates the server connection.
func (c *Client) Close() error {
	c.mu.Lock()
	inner := c.inner
	c.inner = nil
	c.mu.Unlock()
	if inner == nil {
		return nil
	}
	return inner.Close()
}

// Adapter bridges one MCP server tool into the tool.Tool interface. Its
// Name is namespaced mcp_<server>__<tool>: the double underscore is
// unambiguous because it cannot occur inside a single-underscore server
// or tool name.
type Adapter struct {
	client     *Client
	serverName string
	info       toolInfo
	schema     tool.ParameterSchema
}

// DiscoverTools connects to client's server (if not already connected) and
// returns one Adapter per tool it advertises, ready to Register with a
// tool.Registry.
func DiscoverTools(ctx context.Context, client *Client, serverName string) ([]*Adapter, error) {
	client.mu.RLock()
	connected := client.inner != nil
	client.mu.RUnlock()
	if !connected {
		if err := client.Connect(ctx); err != nil {
			return nil, err
		}
	}
	infos, err := client.ListTools(ctx)
	if err != nil {
		return nil, err
	}
	adapters := make([]*Adapter, 0, len(infos))
	for _, info := range infos {
		adapters = append(adapters, &Adapter{
			client:     client,
			serverName: serverName,
			info:       info,
			schema:     convertSchema(info.InputSchema),
		})
	}
	return adapters, nil
}

func (a *Adapter) Name() string        { return fmt.Sprintf("mcp_%s__%s", a.serverName, a.info.Name) }
func (a *Adapter) Description() string { return a.info.Description }
func (a *Adapter) ParameterSchema() tool.ParameterSchema { return a.schema }

// Invoke marshals params over the MCP connection and attempts to parse the
// server's text response as JSON; a plain string is returned unmodified
// when that fails, since many MCP tools return prose rather than JSON.
func (a *Adapter) Invoke(ctx context.Context, params map[string]any) (any, error) {
	text, err := a.client.CallTool(ctx, a.info.Name, params)
	if err != nil {
		return nil, err
	}
	var decoded any
	if jsonErr := json.Unmarshal([]byte(text), &decoded); jsonErr == nil {
		return decoded, nil
	}
	return text, nil
}

func (a *Adapter) Init(_ context.Context) error { return nil }
func (a *Adapter) Close() error                 { return nil }

// convertSchema flattens a server-advertised JSON Schema object's
// top-level properties into tool.ParameterSchema, the shape
// internal/tool's validator and planner-prompt renderer both expect. Only
// scalar and array/object-typed top-level properties are represented;
// nested schemas are preserved as opaque object/array parameters since the
// Decomposer only needs enough shape to fill in top-level arguments.
func convertSchema(raw json.RawMessage) tool.ParameterSchema {
	var doc struct {
		Properties map[string]struct {
			Type        string   `json:"type"`
			Description string   `json:"description"`
			Enum        []string `json:"enum"`
		} `json:"properties"`
		Required []string `json:"required"`
	}
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil
	}

	required := make(map[string]bool, len(doc.Required))
	for _, r := range doc.Required {
		required[r] = true
	}

	schema := make(tool.ParameterSchema, 0, len(doc.Properties))
	for name, prop := range doc.Properties {
		schema = append(schema, tool.Param{
			Name:        name,
			Type:        mapJSONType(prop.Type),
			Required:    required[name],
			Description: prop.Description,
			Enum:        prop.Enum,
		})
	}
	return schema
}

func mapJSONType(t string) tool.ParamType {
	switch t {
	case "integer":
		return tool.ParamInteger
	case "number":
		return tool.ParamNumber
	case "boolean":
		return tool.ParamBoolean
	case "array":
		return tool.ParamArray
	case "object":
		return tool.ParamObject
	default:
		return tool.ParamString
	}
}
