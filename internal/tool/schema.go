package tool

import (
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// Validate checks params against the declared schema: every required
// parameter must be present, every value must type-check, and no unknown
// parameter names may appear. It returns the first
// validation failure; the Decomposer re-prompts once with this message
// before falling back to a degenerate plan.
func (s ParameterSchema) Validate(params map[string]any) error {
	schemaDoc, err := decodeSchemaDoc(s.JSONSchema())
	if err != nil {
		return fmt.Errorf("compile parameter schema: %w", err)
	}

	c := jsonschema.NewCompiler()
	if err := c.AddResource("params.json", schemaDoc); err != nil {
		return fmt.Errorf("add schema resource: %w", err)
	}
	compiled, err := c.Compile("params.json")
	if err != nil {
		return fmt.Errorf("compile parameter schema: %w", err)
	}

	// jsonschema validates against an any-typed document decoded the same
	// way the payload would be if it round-tripped through JSON, so
	// map[string]any (as produced by json.Unmarshal) is the right shape.
	if err := compiled.Validate(map[string]any(params)); err != nil {
		return err
	}
	return nil
}

// decodeSchemaDoc round-trips the raw schema JSON into the any-typed
// document jsonschema.Compiler.AddResource expects.
func decodeSchemaDoc(raw json.RawMessage) (any, error) {
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// WithDefaults returns a copy of params with each missing optional
// parameter filled from its declared default. Required parameters without
// a default are left absent so Validate still reports them.
func (s ParameterSchema) WithDefaults(params map[string]any) map[string]any {
	out := make(map[string]any, len(params))
	for k, v := range params {
		out[k] = v
	}
	for _, p := range s {
		if _, ok := out[p.Name]; !ok && p.Default != nil {
			out[p.Name] = p.Default
		}
	}
	return out
}
