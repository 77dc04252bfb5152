package graph

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/quiver-labs/finagent/internal/state"
	"github.com/quiver-labs/finagent/internal/tool"
)

// validatePlan checks the hard invariants that trigger a re-prompt on
// failure: every step has a unique step_id and a known step_type, every
// DATA step names a registered tool, every parameter set satisfies that
// tool's schema, every ANALYSIS step has an analysis_prompt, a
// final_synthesis step (if present) is the last step and of type
// ANALYSIS, and the dependency graph is acyclic and topologically
// consistent with the list's own order. A plan with no final_synthesis
// step passes — that omission is repaired by ensureFinalSynthesis instead
// of failing validation.
func validatePlan(steps []state.DecompositionStep, registry *tool.Registry) []string {
	var errs []string
	seen := make(map[string]int, len(steps))

	for i, step := range steps {
		if step.StepID == "" {
			errs = append(errs, fmt.Sprintf("step %d: missing step_id", i))
			continue
		}
		if _, dup := seen[step.StepID]; dup {
			errs = append(errs, fmt.Sprintf("step %q: duplicate step_id", step.StepID))
		}
		seen[step.StepID] = i

		switch step.StepType {
		case state.StepData:
			t, ok := registry.Get(step.ToolName)
			if !ok {
				errs = append(errs, fmt.Sprintf("step %q: unknown tool %q", step.StepID, step.ToolName))
				continue
			}
			schema := t.ParameterSchema()
			filled := schema.WithDefaults(step.Parameters)
			if err := schema.Validate(filled); err != nil {
				errs = append(errs, fmt.Sprintf("step %q: invalid parameters for tool %q: %v", step.StepID, step.ToolName, err))
			}
		case state.StepAnalysis:
			if step.AnalysisPrompt == "" {
				errs = append(errs, fmt.Sprintf("step %q: ANALYSIS step missing analysis_prompt", step.StepID))
			}
		default:
			errs = append(errs, fmt.Sprintf("step %q: unknown step_type %q", step.StepID, step.StepType))
		}

		if step.StepID == state.FinalSynthesisStepID {
			if i != len(steps)-1 {
				errs = append(errs, fmt.Sprintf("step %q must be the last step of the plan", step.StepID))
			}
			if step.StepType != state.StepAnalysis {
				errs = append(errs, fmt.Sprintf("step %q must have step_type %s", step.StepID, state.StepAnalysis))
			}
		}

		for _, dep := range step.DependsOn {
			depIdx, ok := seen[dep]
			if !ok {
				errs = append(errs, fmt.Sprintf("step %q: depends_on %q which has not appeared earlier in the plan", step.StepID, dep))
				continue
			}
			if depIdx >= i {
				errs = append(errs, fmt.Sprintf("step %q: depends_on %q which is not strictly earlier (acyclicity violation)", step.StepID, dep))
			}
		}
	}
	return errs
}

// ensureFinalSynthesis guarantees that the plan ends with exactly one
// synthesis step bearing the reserved id. A step carrying that id
// anywhere in the plan counts as present — a misplaced one is moved to
// the end (and dropped from other steps' depends_on, since nothing may
// depend on the terminal step) rather than shadowed by an appended
// duplicate. The surviving step's type, prompt, and dependency list are
// repaired so it is an ANALYSIS step covering — directly or
// transitively — every other step.
func ensureFinalSynthesis(steps []state.DecompositionStep) []state.DecompositionStep {
	for i := 0; i < len(steps)-1; i++ {
		if steps[i].StepID != state.FinalSynthesisStepID {
			continue
		}
		synth := steps[i]
		steps = append(steps[:i:i], steps[i+1:]...)
		for j := range steps {
			steps[j].DependsOn = without(steps[j].DependsOn, state.FinalSynthesisStepID)
		}
		steps = append(steps, synth)
		break
	}

	if n := len(steps); n > 0 && steps[n-1].StepID == state.FinalSynthesisStepID {
		last := &steps[n-1]
		last.StepType = state.StepAnalysis
		if last.AnalysisPrompt == "" {
			last.AnalysisPrompt = defaultSynthesisPrompt
		}
		last.ToolName = ""
		last.Parameters = nil
		last.DependsOn = completeDependencies(steps[:n-1], without(last.DependsOn, state.FinalSynthesisStepID))
		return steps
	}

	deps := make([]string, 0, len(steps))
	for _, s := range steps {
		deps = append(deps, s.StepID)
	}
	return append(steps, state.DecompositionStep{
		StepID:         state.FinalSynthesisStepID,
		StepType:       state.StepAnalysis,
		Description:    "Synthesize all prior results into a final answer",
		AnalysisPrompt: defaultSynthesisPrompt,
		DependsOn:      deps,
	})
}

const defaultSynthesisPrompt = "Summarize the findings above into a complete answer to the original question."

// without returns deps with every occurrence of id removed.
func without(deps []string, id string) []string {
	out := deps[:0:0]
	for _, d := range deps {
		if d != id {
			out = append(out, d)
		}
	}
	return out
}

// completeDependencies returns deps extended with the id of every step
// in prior not already reachable from deps through the plan's own
// dependency edges, preserving the original order and appending the
// missing ids in plan order.
func completeDependencies(prior []state.DecompositionStep, deps []string) []string {
	byID := make(map[string]state.DecompositionStep, len(prior))
	for _, s := range prior {
		byID[s.StepID] = s
	}

	reachable := make(map[string]bool, len(prior))
	var visit func(id string)
	visit = func(id string) {
		if reachable[id] {
			return
		}
		reachable[id] = true
		for _, d := range byID[id].DependsOn {
			visit(d)
		}
	}
	for _, d := range deps {
		visit(d)
	}

	out := append([]string(nil), deps...)
	for _, s := range prior {
		if !reachable[s.StepID] {
			out = append(out, s.StepID)
		}
	}
	return out
}

// degeneratePlan builds the minimal plan guaranteed to let the pipeline
// progress when the LLM's plan fails validation twice: one DATA step for
// the most-confident ticker hint (or a bare analysis step if no tickers
// were found) plus final_synthesis.
func degeneratePlan(toolName string, tickers []string) []state.DecompositionStep {
	if toolName == "" || len(tickers) == 0 {
		return ensureFinalSynthesis(nil)
	}
	first := state.DecompositionStep{
		StepID:      "degenerate_lookup_" + uuid.NewString(),
		StepType:    state.StepData,
		Description: fmt.Sprintf("Look up %s", tickers[0]),
		ToolName:    toolName,
		Parameters:  map[string]any{"ticker": tickers[0]},
	}
	return ensureFinalSynthesis([]state.DecompositionStep{first})
}
