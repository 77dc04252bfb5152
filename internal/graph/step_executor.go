package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/quiver-labs/finagent/internal/core"
	"github.com/quiver-labs/finagent/internal/model"
	"github.com/quiver-labs/finagent/internal/state"
	"github.com/quiver-labs/finagent/internal/tool"
)

// perDependencyByteBudget caps how much of each dependency's rendered
// result is injected into an ANALYSIS step's prompt.
const perDependencyByteBudget = 16 * 1024

// StepExecutorImpl implements core.BaseNode for the StepExecutor node.
// It executes exactly one step — the step at CurrentStepIndex, or
// state.LastVerification.RetryStep when the Verifier asked for a
// retry — and never advances the index itself.
type StepExecutorImpl struct {
	Provider model.Provider
	Registry *tool.Registry

	// TruncationBytes caps a DATA step's serialized result size before
	// storage (default 256 KiB, see internal/config).
	TruncationBytes int

	// ToolTimeout bounds a single tool invocation; zero means no
	// deadline beyond the caller's context. An exceeded deadline is a
	// step-level failure like any other tool error.
	ToolTimeout time.Duration
}

// stepExecutorPrep is the step to run plus its position, captured before
// Exec so Post doesn't need to re-derive it from mutable state.
type stepExecutorPrep struct {
	Step  state.DecompositionStep
	Index int

	// Dependencies holds the already-produced StepResult for every id in
	// Step.DependsOn, captured during Prep (which has state access) so
	// Exec — which does not — can build an ANALYSIS prompt without
	// reaching back into FinanceState.
	Dependencies map[string]state.StepResult
}

func (n *StepExecutorImpl) Prep(s *state.FinanceState) []stepExecutorPrep {
	step, ok := s.CurrentStep()
	if !ok {
		return nil
	}
	if s.LastVerification != nil && s.LastVerification.Verdict == state.VerdictNeedsMoreData && s.LastVerification.RetryStep != nil {
		retry := *s.LastVerification.RetryStep
		if retry.StepID == step.StepID {
			step = retry
		}
	}

	deps := make(map[string]state.StepResult, len(step.DependsOn))
	for _, dep := range step.DependsOn {
		if r, ok := s.Get(dep); ok {
			deps[dep] = r
		}
	}

	return []stepExecutorPrep{{Step: step, Index: s.CurrentStepIndex, Dependencies: deps}}
}

func (n *StepExecutorImpl) Exec(ctx context.Context, prep stepExecutorPrep) (state.StepResult, error) {
	switch prep.Step.StepType {
	case state.StepData:
		return n.execData(ctx, prep.Step), nil
	case state.StepAnalysis:
		return n.execAnalysis(ctx, prep.Step, prep.Dependencies), nil
	default:
		return state.StepResult{
			StepID:     prep.Step.StepID,
			StepType:   prep.Step.StepType,
			Success:    false,
			Error:      fmt.Sprintf("unknown step_type %q", prep.Step.StepType),
			ProducedAt: time.Now(),
		}, nil
	}
}

// ExecFallback is unreachable in practice — execData and execAnalysis
// already convert every failure into a failed StepResult rather than
// returning a Go error.
func (n *StepExecutorImpl) ExecFallback(err error) state.StepResult {
	return state.StepResult{
		Success:    false,
		Error:      err.Error(),
		ProducedAt: time.Now(),
	}
}

func (n *StepExecutorImpl) Post(s *state.FinanceState, preps []stepExecutorPrep, results ...state.StepResult) core.Action {
	if len(preps) == 0 || len(results) == 0 {
		s.Trace("StepExecutor: no current step to execute")
		return core.ActionContinue
	}
	result := results[0]
	s.StepResults[result.StepID] = result
	s.Trace(fmt.Sprintf("StepExecutor: step %q success=%v", result.StepID, result.Success))
	return core.ActionContinue
}

func (n *StepExecutorImpl) execData(ctx context.Context, step state.DecompositionStep) state.StepResult {
	result := state.StepResult{
		StepID:     step.StepID,
		StepType:   state.StepData,
		ProducedAt: time.Now(),
	}

	if n.ToolTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, n.ToolTimeout)
		defer cancel()
	}
	value, err := n.Registry.Invoke(ctx, step.ToolName, step.Parameters)
	if err != nil {
		// A tool-level failure is a successful execution of a step that
		// failed — it becomes data on the result, never a Go error
		// crossing the node boundary.
		result.Success = false
		result.Error = err.Error()
		return result
	}

	raw, err := json.Marshal(value)
	if err != nil {
		result.Success = false
		result.Error = fmt.Sprintf("serialize tool result: %v", err)
		return result
	}

	cap := n.TruncationBytes
	if cap <= 0 {
		cap = 256 * 1024
	}

	result.Success = true
	result.DataKeys = topLevelKeys(value)
	if len(raw) > cap {
		// The capped serialized form replaces the value itself, so the
		// oversized payload never reaches StepResults, dependency
		// rendering, or the formatter. The prefix is no longer valid
		// JSON, so it is stored as a string.
		raw = raw[:cap]
		result.Data = string(raw)
		result.Truncated = true
	} else {
		result.Data = value
	}
	result.DataSize = len(raw)
	return result
}

func (n *StepExecutorImpl) execAnalysis(ctx context.Context, step state.DecompositionStep, deps map[string]state.StepResult) state.StepResult {
	result := state.StepResult{
		StepID:     step.StepID,
		StepType:   state.StepAnalysis,
		ProducedAt: time.Now(),
	}

	var sb strings.Builder
	sb.WriteString(step.AnalysisPrompt)
	if len(deps) > 0 {
		sb.WriteString("\n\nCollected results:\n")
		for _, dep := range step.DependsOn {
			depResult, ok := deps[dep]
			if !ok {
				continue
			}
			sb.WriteString(fmt.Sprintf("\n### %s\n%s\n", dep, renderDependency(depResult)))
		}
	}

	text, err := n.Provider.Complete(ctx, model.Request{
		SystemPrompt: "You are a financial analyst. Reason over the collected data and answer the prompt.",
		UserPrompt:   sb.String(),
	})
	if err != nil {
		result.Success = false
		result.Error = err.Error()
		return result
	}

	result.Success = true
	result.AnalysisFull = text
	return result
}

// renderDependency renders one dependency's StepResult for inclusion in
// an ANALYSIS prompt, eliding values beyond perDependencyByteBudget.
func renderDependency(r state.StepResult) string {
	if !r.Success {
		return fmt.Sprintf("(failed: %s)", r.Error)
	}
	var text string
	switch r.StepType {
	case state.StepAnalysis:
		analysis, err := r.AnalysisResult()
		if err != nil {
			return fmt.Sprintf("(unusable: %v)", err)
		}
		text = analysis
	default:
		data, err := r.DataResult()
		if err != nil {
			return fmt.Sprintf("(unusable: %v)", err)
		}
		raw, err := json.Marshal(data)
		if err != nil {
			return fmt.Sprintf("(unserializable: %v)", err)
		}
		text = string(raw)
	}
	if len(text) > perDependencyByteBudget {
		text = text[:perDependencyByteBudget] + "...(truncated)"
	}
	return text
}

// topLevelKeys returns the top-level keys of a JSON-object-shaped value
// for the verifier's introspection. Non-object values yield no keys.
func topLevelKeys(value any) []string {
	obj, ok := value.(map[string]any)
	if !ok {
		return nil
	}
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	return keys
}
