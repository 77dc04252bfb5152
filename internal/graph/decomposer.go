package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/quiver-labs/finagent/internal/core"
	"github.com/quiver-labs/finagent/internal/model"
	"github.com/quiver-labs/finagent/internal/state"
	"github.com/quiver-labs/finagent/internal/ticker"
	"github.com/quiver-labs/finagent/internal/tool"
)

const decomposerSystemPrompt = `You are a financial research planner. Given a user question, produce a
JSON array of steps to answer it. Each step has: step_id (string, unique), step_type
("DATA" or "ANALYSIS"), description, tool_name and parameters (DATA only),
analysis_prompt (ANALYSIS only), and depends_on (list of earlier step_ids).
The last step must have step_id "final_synthesis" and step_type "ANALYSIS", and must
depend on every other step. Respond with ONLY the JSON array, no commentary.`

// decomposerPrep is what Decomposer needs to build its prompt: the
// original query, and — when re-entered after a replan verdict — the
// reason the prior plan failed.
type decomposerPrep struct {
	Query        string
	ReplanReason string
}

// decomposerResult is what Exec hands to Post: the validated plan and
// the model's stated reasoning.
type decomposerResult struct {
	Steps     []state.DecompositionStep
	Reasoning string
}

// DecomposerImpl implements core.BaseNode for the Decomposer node.
type DecomposerImpl struct {
	Provider  model.Provider
	Registry  *tool.Registry
	Extractor ticker.Extractor

	// DefaultDataTool names the tool degeneratePlan falls back to when
	// validation fails twice. Left empty, the degenerate plan contains
	// no DATA step at all.
	DefaultDataTool string
}

func (n *DecomposerImpl) Prep(s *state.FinanceState) []decomposerPrep {
	prep := decomposerPrep{Query: s.Query}
	if s.LastVerification != nil && s.LastVerification.Verdict == state.VerdictReplan {
		prep.ReplanReason = s.LastVerification.Reason
	}
	return []decomposerPrep{prep}
}

func (n *DecomposerImpl) Exec(ctx context.Context, prep decomposerPrep) (decomposerResult, error) {
	var tickers []string
	if n.Extractor != nil {
		if found, err := n.Extractor.ExtractTickers(ctx, prep.Query); err == nil {
			tickers = found
		}
		// Ticker extraction failure is silently ignored — planning
		// proceeds without hints.
	}

	userPrompt := n.buildPrompt(prep, tickers, "")
	steps, reasoning, err := n.planOnce(ctx, userPrompt)
	if err == nil {
		if errs := validatePlan(steps, n.Registry); len(errs) == 0 {
			return decomposerResult{Steps: ensureFinalSynthesis(steps), Reasoning: reasoning}, nil
		} else {
			// Re-prompt once with the specific validation errors.
			retryPrompt := n.buildPrompt(prep, tickers, strings.Join(errs, "; "))
			steps2, reasoning2, err2 := n.planOnce(ctx, retryPrompt)
			if err2 == nil {
				if errs2 := validatePlan(steps2, n.Registry); len(errs2) == 0 {
					return decomposerResult{Steps: ensureFinalSynthesis(steps2), Reasoning: reasoning2}, nil
				}
			}
		}
	}

	// Both the initial plan and the re-prompt failed: fall back to a
	// minimal degenerate plan so the pipeline always progresses.
	return decomposerResult{
		Steps:     degeneratePlan(n.DefaultDataTool, tickers),
		Reasoning: "degenerate plan: planning failed validation twice",
	}, nil
}

// ExecFallback mirrors the degenerate-plan path for the rare case where
// Exec itself returns an error despite the fallback logic above (defense
// in depth; Exec's own degenerate-plan path already guarantees nil).
func (n *DecomposerImpl) ExecFallback(err error) decomposerResult {
	return decomposerResult{
		Steps:     degeneratePlan(n.DefaultDataTool, nil),
		Reasoning: fmt.Sprintf("degenerate plan: %v", err),
	}
}

func (n *DecomposerImpl) Post(s *state.FinanceState, _ []decomposerPrep, results ...decomposerResult) core.Action {
	result := decomposerResult{Steps: ensureFinalSynthesis(nil)}
	if len(results) > 0 {
		result = results[0]
	}

	s.Steps = result.Steps
	s.DecompositionReasoning = result.Reasoning
	s.CurrentStepIndex = 0

	// After a replan, every step_id in the new plan has its retry count
	// reset to 0 — including ids carried over from the prior plan, not
	// just newly introduced ones. Counters for dropped ids are discarded
	// outright.
	live := make(map[string]bool, len(result.Steps))
	for _, step := range result.Steps {
		live[step.StepID] = true
	}
	for id := range s.RetryCount {
		if !live[id] {
			delete(s.RetryCount, id)
		}
	}
	for _, step := range result.Steps {
		s.RetryCount[step.StepID] = 0
	}

	s.Trace(fmt.Sprintf("Decomposer: produced %d-step plan", len(result.Steps)))
	return core.ActionContinue
}

func (n *DecomposerImpl) buildPrompt(prep decomposerPrep, tickers []string, validationErrors string) string {
	var sb strings.Builder
	sb.WriteString("Question: ")
	sb.WriteString(prep.Query)
	sb.WriteString("\n\n")
	sb.WriteString(n.Registry.Catalog())
	if len(tickers) > 0 {
		sb.WriteString(fmt.Sprintf("\nLikely subjects: %s\n", strings.Join(tickers, ", ")))
	}
	if prep.ReplanReason != "" {
		sb.WriteString(fmt.Sprintf("\nPrior plan failed because: %s\n", prep.ReplanReason))
	}
	if validationErrors != "" {
		sb.WriteString(fmt.Sprintf("\nYour previous plan was invalid: %s\nProduce a corrected plan.\n", validationErrors))
	}
	return sb.String()
}

func (n *DecomposerImpl) planOnce(ctx context.Context, userPrompt string) ([]state.DecompositionStep, string, error) {
	text, err := n.Provider.Complete(ctx, model.Request{
		SystemPrompt: decomposerSystemPrompt,
		UserPrompt:   userPrompt,
	})
	if err != nil {
		return nil, "", fmt.Errorf("plan generation: %w", err)
	}

	jsonText := extractJSONArray(text)
	var steps []state.DecompositionStep
	if err := json.Unmarshal([]byte(jsonText), &steps); err != nil {
		return nil, "", fmt.Errorf("parse plan JSON: %w", err)
	}
	return steps, text, nil
}

// extractJSONArray trims any leading/trailing commentary the model might
// emit despite being instructed to return only JSON, by slicing from the
// first '[' to the last ']'.
func extractJSONArray(text string) string {
	start := strings.IndexByte(text, '[')
	end := strings.LastIndexByte(text, ']')
	if start < 0 || end < 0 || end < start {
		return text
	}
	return text[start : end+1]
}
