package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/quiver-labs/finagent/internal/core"
	"github.com/quiver-labs/finagent/internal/model"
	"github.com/quiver-labs/finagent/internal/state"
)

const structuredOutputSystemPrompt = `You produce a single structured JSON artifact for a financial analysis UI.
Respond with ONLY a JSON object with exactly these fields:
{
  "summary": "...",
  "content_blocks": [{"kind": "metric|table|chart|comparison|insight|text", "data": {...}}],
  "key_insights": ["..."],
  "recommendations": ["..."],
  "metadata": {...}
}`

const uiComponentSystemPrompt = `You write a single self-contained UI component (TypeScript/TSX) that
renders the given structured analysis artifact. Respond with ONLY the component source code, no
commentary or markdown fences.`

// formatterPrep is the content OutputFormatter sources its two LLM calls
// from, resolved in Prep from FinanceState in priority order:
// final_synthesis > all ANALYSIS results > direct_response > empty.
type formatterPrep struct {
	Content      string
	ErrorReasons []string
}

// formatterResult carries both generated artifacts plus a flag for
// whether the structured-output call itself had to fall back.
type formatterResult struct {
	Structured   state.StructuredOutput
	UsedFallback bool
	Component    string
}

// OutputFormatterImpl implements core.BaseNode for the OutputFormatter
// node. It runs once at the end of every path and always writes a
// structured artifact — falling back to a single text block wrapping
// RawAnalysis if the structuring LLM call fails to parse — plus an
// optional UI-component artifact that is simply skipped on failure.
type OutputFormatterImpl struct {
	Provider model.Provider
}

func (n *OutputFormatterImpl) Prep(s *state.FinanceState) []formatterPrep {
	prep := formatterPrep{}

	if r, ok := s.Get(state.FinalSynthesisStepID); ok && r.Success && r.AnalysisFull != "" {
		prep.Content = r.AnalysisFull
	} else if all := s.AllAnalysisResults(); len(all) > 0 {
		prep.Content = strings.Join(all, "\n\n")
	} else if s.DirectResponse != "" {
		prep.Content = s.DirectResponse
	}

	for _, step := range s.Steps {
		if r, ok := s.Get(step.StepID); ok && !r.Success {
			prep.ErrorReasons = append(prep.ErrorReasons, fmt.Sprintf("%s: %s", step.StepID, r.Error))
		}
	}

	s.RawAnalysis = prep.Content
	return []formatterPrep{prep}
}

func (n *OutputFormatterImpl) Exec(ctx context.Context, prep formatterPrep) (formatterResult, error) {
	structured, usedFallback := n.buildStructured(ctx, prep)

	component := ""
	if text, err := n.Provider.Complete(ctx, model.Request{
		SystemPrompt: uiComponentSystemPrompt,
		UserPrompt:   mustMarshal(structured),
	}); err == nil {
		component = text
	}
	// A failed UI-component call is skipped entirely; the structured
	// artifact alone is sufficient.

	return formatterResult{Structured: structured, UsedFallback: usedFallback, Component: component}, nil
}

// ExecFallback never triggers in practice: buildStructured and the
// UI-component call both already convert every failure into data rather
// than a Go error. Kept for BaseNode conformance and as a last-resort
// safety net.
func (n *OutputFormatterImpl) ExecFallback(err error) formatterResult {
	return formatterResult{Structured: fallbackStructured("", []string{err.Error()}), UsedFallback: true}
}

func (n *OutputFormatterImpl) Post(s *state.FinanceState, _ []formatterPrep, results ...formatterResult) core.Action {
	result := formatterResult{Structured: fallbackStructured(s.RawAnalysis, nil)}
	if len(results) > 0 {
		result = results[0]
	}

	out := result.Structured
	s.StructuredOutput = &out
	s.TypescriptComponent = result.Component
	s.Trace(fmt.Sprintf("OutputFormatter: produced structured output (%d content blocks, fallback=%v)", len(out.ContentBlocks), result.UsedFallback))
	return core.ActionEnd
}

// buildStructured calls the LLM for the structured artifact and parses
// its response. On a call failure or an unparseable response, it falls
// back to wrapping the content (or, if every step failed, the
// accumulated error reasons) into a single text block.
func (n *OutputFormatterImpl) buildStructured(ctx context.Context, prep formatterPrep) (state.StructuredOutput, bool) {
	text, err := n.Provider.Complete(ctx, model.Request{
		SystemPrompt: structuredOutputSystemPrompt,
		UserPrompt:   n.buildPrompt(prep),
	})
	if err != nil {
		return fallbackStructured(prep.Content, prep.ErrorReasons), true
	}

	var out state.StructuredOutput
	jsonText := extractJSONObject(text)
	if err := json.Unmarshal([]byte(jsonText), &out); err != nil {
		return fallbackStructured(prep.Content, prep.ErrorReasons), true
	}
	if out.Summary == "" && len(out.ContentBlocks) == 0 {
		return fallbackStructured(prep.Content, prep.ErrorReasons), true
	}
	return out, false
}

func (n *OutputFormatterImpl) buildPrompt(prep formatterPrep) string {
	var sb strings.Builder
	sb.WriteString("Content to structure:\n")
	if prep.Content != "" {
		sb.WriteString(prep.Content)
	} else {
		sb.WriteString("(no successful analysis was produced)")
	}
	if len(prep.ErrorReasons) > 0 {
		sb.WriteString("\n\nStep failures encountered:\n")
		for _, reason := range prep.ErrorReasons {
			sb.WriteString("- " + reason + "\n")
		}
	}
	return sb.String()
}

// fallbackStructured wraps content into a single text content block for
// the degraded path. When content is empty and errors were recorded
// (every step failed), the summary explicitly states that no reliable
// data was obtainable and the content_blocks surface the accumulated
// reasons.
func fallbackStructured(content string, errorReasons []string) state.StructuredOutput {
	if content == "" {
		text := "No reliable data was obtainable for this query."
		if len(errorReasons) > 0 {
			text += "\n\n" + strings.Join(errorReasons, "\n")
		}
		return state.StructuredOutput{
			Summary: "no reliable data was obtainable",
			ContentBlocks: []state.ContentBlock{
				{Kind: state.BlockText, Data: map[string]any{"text": text}},
			},
			Metadata: map[string]any{"fallback": true},
		}
	}
	return state.StructuredOutput{
		Summary: summarize(content),
		ContentBlocks: []state.ContentBlock{
			{Kind: state.BlockText, Data: map[string]any{"text": content}},
		},
		Metadata: map[string]any{"fallback": true},
	}
}

// summarize returns a short prefix of content for the fallback artifact's
// summary field, so a degraded response still has something other than
// the full text in its summary slot.
func summarize(content string) string {
	const maxLen = 200
	if len(content) <= maxLen {
		return content
	}
	return content[:maxLen] + "..."
}

func mustMarshal(v any) string {
	raw, err := json.Marshal(v)
	if err != nil {
		return "{}"
	}
	return string(raw)
}
