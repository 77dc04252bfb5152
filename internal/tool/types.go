// Package tool defines the registered-tool contract the StepExecutor
// dispatches DATA steps against, and the immutable registry that holds
// them. Concrete vendor bindings (market data, filings, macro series, web
// search) live outside this package; tool implements only the interface
// they satisfy.
package tool

import (
	"context"
	"encoding/json"
)

// Tool is the unified interface every registered tool implements, whether
// it calls a vendor HTTP API, wraps a local computation, or proxies an MCP
// server. The engine never depends on a concrete vendor SDK directly.
type Tool interface {
	// Name returns the tool identifier referenced by DecompositionStep.ToolName.
	Name() string

	// Description returns a one-line human summary injected into the
	// Decomposer's planning prompt.
	Description() string

	// ParameterSchema returns the declared parameter schema used both to
	// render the planning-prompt catalog and to validate a step's
	// parameters before invocation.
	ParameterSchema() ParameterSchema

	// Invoke runs the tool with validated parameters and returns a
	// JSON-serializable value, or a non-nil error describing why the tool
	// itself failed. A non-nil error here always becomes
	// StepResult.Error — it is data, not a Go-level fault that propagates
	// past the StepExecutor.
	Invoke(ctx context.Context, params map[string]any) (any, error)

	// Init prepares tool resources (HTTP clients, credentials checks).
	// Tools with no setup may return nil.
	Init(ctx context.Context) error

	// Close releases tool resources acquired by Init.
	Close() error
}

// ParamType enumerates the JSON-schema-compatible scalar types a tool
// parameter may declare.
type ParamType string

const (
	ParamString  ParamType = "string"
	ParamInteger ParamType = "integer"
	ParamNumber  ParamType = "number"
	ParamBoolean ParamType = "boolean"
	ParamArray   ParamType = "array"
	ParamObject  ParamType = "object"
)

// Param describes a single declared tool parameter: name, type,
// required, default, and description.
type Param struct {
	Name        string
	Type        ParamType
	Required    bool
	Default     any
	Description string
	Enum        []string
}

// ParameterSchema is the ordered list of parameters a tool declares. It is
// both rendered into the planner prompt and compiled into a JSON-schema
// validator (see schema.go) used to reject malformed or unknown
// DecompositionStep.Parameters before a tool is ever invoked.
type ParameterSchema []Param

// JSONSchema renders the parameter list as a standard JSON Schema object,
// compatible with function-calling tool definitions.
func (s ParameterSchema) JSONSchema() json.RawMessage {
	properties := make(map[string]any, len(s))
	required := make([]string, 0, len(s))

	for _, p := range s {
		prop := map[string]any{
			"type":        string(p.Type),
			"description": p.Description,
		}
		if len(p.Enum) > 0 {
			prop["enum"] = p.Enum
		}
		if p.Default != nil {
			prop["default"] = p.Default
		}
		properties[p.Name] = prop
		if p.Required {
			required = append(required, p.Name)
		}
	}

	schema := map[string]any{
		"type":                 "object",
		"properties":           properties,
		"additionalProperties": false,
	}
	if len(required) > 0 {
		schema["required"] = required
	}

	data, _ := json.Marshal(schema)
	return data
}
