package tool

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"
)

// Registry holds the set of tools available to a run's StepExecutor,
// keyed by name. A Registry is built once at startup (see cmd/finagent)
// and never mutated concurrently with a running query, so the lock below
// guards against the rare case of concurrent Init/Close during shutdown
// rather than steady-state contention.
type Registry struct {
	mu       sync.RWMutex
	tools    map[string]Tool
	disabled map[string]bool
}

// NewRegistry creates an empty tool registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool), disabled: make(map[string]bool)}
}

// Disable excludes the named tools from List/Catalog (and therefore from
// the planner's prompt), driven by operator configuration
// (internal/config's DisabledTools). It is the only way a tool is
// disabled: the registry does not detect a missing credential, and
// InitAll returns the first Init error rather than disabling that tool.
func (r *Registry) Disable(names ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, n := range names {
		r.disabled[n] = true
	}
}

// Register adds a tool to the registry. Registering a second tool under an
// already-used name overwrites the first and logs a warning — this should
// never happen outside of a wiring mistake in cmd/finagent.
func (r *Registry) Register(t Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[t.Name()]; exists {
		log.Printf("[tool] WARNING: overwriting existing tool %q", t.Name())
	}
	r.tools[t.Name()] = t
}

// Get retrieves a tool by name. A disabled tool is treated the same as
// an unregistered one — plan validation and Invoke must reject it
// exactly as they would an unknown tool_name.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.disabled[name] {
		return nil, false
	}
	t, ok := r.tools[name]
	return t, ok
}

// List returns all registered, non-disabled tools sorted by name.
func (r *Registry) List() []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Tool, 0, len(r.tools))
	for name, t := range r.tools {
		if r.disabled[name] {
			continue
		}
		result = append(result, t)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Name() < result[j].Name()
	})
	return result
}

// Catalog renders the full tool set as a human-readable prompt fragment,
// injected into the Decomposer's planning prompt so the model knows
// which tool names and parameters are available.
func (r *Registry) Catalog() string {
	tools := r.List()
	if len(tools) == 0 {
		return "(no tools available)"
	}

	var sb strings.Builder
	sb.WriteString("Available tools:\n")
	for _, t := range tools {
		sb.WriteString(fmt.Sprintf("\n### %s\n%s\nparameters: %s\n", t.Name(), t.Description(), string(t.ParameterSchema().JSONSchema())))
	}
	return sb.String()
}

// InitAll initializes every registered tool, stopping at the first error.
func (r *Registry) InitAll(ctx context.Context) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for name, t := range r.tools {
		if err := t.Init(ctx); err != nil {
			return fmt.Errorf("init tool %q: %w", name, err)
		}
	}
	return nil
}

// CloseAll closes every registered tool, logging (not failing on) errors —
// shutdown must proceed even if one tool's Close misbehaves.
func (r *Registry) CloseAll() {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for name, t := range r.tools {
		if err := t.Close(); err != nil {
			log.Printf("[tool] error closing %s: %v", name, err)
		}
	}
}

// Invoke looks up a tool by name, validates and defaults its parameters
// against the tool's declared schema, and invokes it. Both "unknown tool
// name" and "schema validation failure" are returned as plain errors — the
// StepExecutor converts them into StepResult.Error rather than letting them
// escape as Go-level faults.
func (r *Registry) Invoke(ctx context.Context, name string, params map[string]any) (any, error) {
	t, ok := r.Get(name)
	if !ok {
		return nil, fmt.Errorf("unknown tool %q", name)
	}

	schema := t.ParameterSchema()
	filled := schema.WithDefaults(params)
	if err := schema.Validate(filled); err != nil {
		return nil, fmt.Errorf("invalid parameters for tool %q: %w", name, err)
	}

	return t.Invoke(ctx, filled)
}
