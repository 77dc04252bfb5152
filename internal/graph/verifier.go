package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/quiver-labs/finagent/internal/budget"
	"github.com/quiver-labs/finagent/internal/core"
	"github.com/quiver-labs/finagent/internal/model"
	"github.com/quiver-labs/finagent/internal/state"
	"github.com/quiver-labs/finagent/internal/trace"
	"github.com/quiver-labs/finagent/internal/util"
)

// verifierPromptMaxRunes bounds how much of an ANALYSIS step's
// analysis_full is quoted back into the verification prompt (counted in
// runes, separately from the StepExecutor's 16 KiB per-dependency byte
// budget) so a verbose synthesis step doesn't blow out the Verifier's
// own call.
const verifierPromptMaxRunes = 8000

const verifierSystemPrompt = `You are the quality-control reviewer for a financial research pipeline.
Inspect the result of the step that was just executed and decide one of three verdicts:

"ok" - the result is usable; the pipeline may proceed.
"needs_more_data" - the result is incomplete, erroneous, or missing what the step needed;
    the same step should be retried with adjusted parameters or prompt.
"replan" - the entire plan is wrong (wrong tickers, wrong tools, wrong approach) and the
    Decomposer should produce a new plan from scratch.

Respond with ONLY a JSON object: {"verdict": "...", "reason": "...", "retry_step": {...}}.
"retry_step" is required only when verdict is "needs_more_data"; it must be a full step
object with the same step_id as the step under review and adjusted parameters or
analysis_prompt. Omit "retry_step" otherwise.`

// verifierLLMResponse mirrors the JSON object the LLM is asked to emit.
// It is decoded separately from state.VerificationResult because the
// model's retry_step omits step_type/step_id in some responses — those
// are always repaired from the current step before the result is used.
type verifierLLMResponse struct {
	Verdict   state.Verdict            `json:"verdict"`
	Reason    string                   `json:"reason"`
	RetryStep *state.DecompositionStep `json:"retry_step,omitempty"`
}

// verifierPrep is everything Exec needs to build its prompt: the step
// under review, its result, the full plan, and the step's retry count
// so far (captured in Prep since Exec has no state access).
type verifierPrep struct {
	Step        state.DecompositionStep
	Result      state.StepResult
	Steps       []state.DecompositionStep
	RetryCount  int
	ReplanCount int
}

// VerifierImpl implements core.BaseNode for the Verifier node: the
// quality-control heart of the engine. It always calls the LLM — no
// shortcircuit on Result.Success, because a tool may succeed with
// unusable data — and then overrides the LLM's verdict when a safety
// budget is already exhausted.
type VerifierImpl struct {
	Provider model.Provider
	Safety   budget.Safety
	Tracer   *trace.Tracer
}

func (n *VerifierImpl) Prep(s *state.FinanceState) []verifierPrep {
	step, ok := s.CurrentStep()
	if !ok {
		return nil
	}
	result, ok := s.Get(step.StepID)
	if !ok {
		return nil
	}
	return []verifierPrep{{
		Step:        step,
		Result:      result,
		Steps:       s.Steps,
		RetryCount:  s.RetryCount[step.StepID],
		ReplanCount: s.ReplanCount,
	}}
}

func (n *VerifierImpl) Exec(ctx context.Context, prep verifierPrep) (state.VerificationResult, error) {
	text, err := n.Provider.Complete(ctx, model.Request{
		SystemPrompt: verifierSystemPrompt,
		UserPrompt:   n.buildPrompt(prep),
	})
	if err != nil {
		return state.VerificationResult{}, fmt.Errorf("verification: %w", err)
	}

	var resp verifierLLMResponse
	jsonText := extractJSONObject(text)
	if err := json.Unmarshal([]byte(jsonText), &resp); err != nil {
		return state.VerificationResult{}, fmt.Errorf("parse verdict JSON: %w", err)
	}

	vr := state.VerificationResult{Verdict: resp.Verdict, Reason: resp.Reason}
	if resp.Verdict == state.VerdictNeedsMoreData {
		retry := prep.Step
		if resp.RetryStep != nil {
			retry = *resp.RetryStep
			retry.StepID = prep.Step.StepID // retry_step.step_id is never model-controlled
			retry.StepType = prep.Step.StepType
		}
		vr.RetryStep = &retry
	}
	return vr, nil
}

// ExecFallback treats an LLM failure on the verification call itself as
// "needs_more_data" — conservative, since we have no model opinion and
// the result may genuinely be bad; the retry/replan budgets below still
// bound how long this can persist.
func (n *VerifierImpl) ExecFallback(err error) state.VerificationResult {
	return state.VerificationResult{
		Verdict: state.VerdictNeedsMoreData,
		Reason:  fmt.Sprintf("verification call failed: %v", err),
	}
}

func (n *VerifierImpl) Post(s *state.FinanceState, preps []verifierPrep, results ...state.VerificationResult) core.Action {
	if len(preps) == 0 || len(results) == 0 {
		// No current step to verify (e.g. an already-exhausted plan) —
		// treat as done.
		s.LastVerification = &state.VerificationResult{Verdict: state.VerdictOK, Reason: "no step to verify"}
		return routeAfterVerification(s)
	}

	prep := preps[0]
	vr := results[0]

	switch vr.Verdict {
	case state.VerdictNeedsMoreData:
		if n.Safety.RetryExhausted(prep.RetryCount) {
			vr.Verdict = state.VerdictOK
			vr.Reason = vr.Reason + " [retry budget exhausted]"
			vr.RetryStep = nil
			if n.Tracer != nil {
				n.Tracer.RecordBudgetExhausted(context.Background(), "retry")
			}
		} else {
			s.RetryCount[prep.Step.StepID] = prep.RetryCount + 1
		}
	case state.VerdictReplan:
		if n.Safety.ReplanExhausted(prep.ReplanCount) {
			vr.Verdict = state.VerdictOK
			vr.Reason = vr.Reason + " [replan budget exhausted]"
			if n.Tracer != nil {
				n.Tracer.RecordBudgetExhausted(context.Background(), "replan")
			}
		} else {
			s.ReplanCount = prep.ReplanCount + 1
		}
	case state.VerdictOK:
		// nothing to override
	default:
		// Unrecognized verdict from the model: treat as ok so the
		// pipeline still progresses.
		vr.Reason = fmt.Sprintf("unrecognized verdict %q treated as ok: %s", vr.Verdict, vr.Reason)
		vr.Verdict = state.VerdictOK
	}

	s.LastVerification = &vr
	if n.Tracer != nil {
		n.Tracer.RecordVerdict(context.Background(), string(vr.Verdict))
	}
	s.Trace(fmt.Sprintf("Verifier: step %q verdict=%s reason=%q", prep.Step.StepID, vr.Verdict, vr.Reason))

	return routeAfterVerification(s)
}

// routeAfterVerification is the single source of truth for "where does
// control go next after the Verifier?". It is a pure function of
// state.LastVerification.Verdict and the position of CurrentStepIndex
// relative to len(Steps) — the only place the "done" condition is
// evaluated.
func routeAfterVerification(s *state.FinanceState) core.Action {
	if s.LastVerification == nil {
		return ActionOKDone
	}
	switch s.LastVerification.Verdict {
	case state.VerdictNeedsMoreData:
		return ActionNeedsMoreData
	case state.VerdictReplan:
		return ActionReplan
	default: // VerdictOK (and any verdict normalized to it above)
		if s.HasMoreSteps() {
			return ActionOKMore
		}
		return ActionOKDone
	}
}

func (n *VerifierImpl) buildPrompt(prep verifierPrep) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Step under review (%d of %d):\n", indexOf(prep.Steps, prep.Step.StepID)+1, len(prep.Steps)))
	sb.WriteString(fmt.Sprintf("step_id: %s\ndescription: %s\ntype: %s\n", prep.Step.StepID, prep.Step.Description, prep.Step.StepType))
	if prep.Step.StepType == state.StepData {
		sb.WriteString(fmt.Sprintf("tool_name: %s\nparameters: %v\n", prep.Step.ToolName, prep.Step.Parameters))
	} else {
		sb.WriteString(fmt.Sprintf("analysis_prompt: %s\n", prep.Step.AnalysisPrompt))
	}

	sb.WriteString("\nResult:\n")
	if !prep.Result.Success {
		sb.WriteString(fmt.Sprintf("success: false\nerror: %s\n", prep.Result.Error))
	} else {
		sb.WriteString("success: true\n")
		switch prep.Result.StepType {
		case state.StepData:
			sb.WriteString(fmt.Sprintf("data_keys: %v\ndata_size: %d\ntruncated: %v\n", prep.Result.DataKeys, prep.Result.DataSize, prep.Result.Truncated))
		case state.StepAnalysis:
			sb.WriteString(fmt.Sprintf("analysis_full: %s\n", util.TruncateRunes(prep.Result.AnalysisFull, verifierPromptMaxRunes)))
		}
	}

	sb.WriteString(fmt.Sprintf("\nThis step has already been retried %d time(s); replans so far this query: %d.\n", prep.RetryCount, prep.ReplanCount))
	return sb.String()
}

// indexOf returns the position of stepID in steps, or -1.
func indexOf(steps []state.DecompositionStep, stepID string) int {
	for i, s := range steps {
		if s.StepID == stepID {
			return i
		}
	}
	return -1
}

// extractJSONObject trims any leading/trailing commentary around a JSON
// object, by slicing from the first '{' to the last '}' — the same
// defensive parsing style the Decomposer uses for JSON arrays.
func extractJSONObject(text string) string {
	start := strings.IndexByte(text, '{')
	end := strings.LastIndexByte(text, '}')
	if start < 0 || end < 0 || end < start {
		return text
	}
	return text[start : end+1]
}
