package graph

import (
	"context"
	"fmt"

	"github.com/quiver-labs/finagent/internal/core"
	"github.com/quiver-labs/finagent/internal/model"
	"github.com/quiver-labs/finagent/internal/state"
)

const directResponseSystemPrompt = `You are a helpful, concise financial-literacy assistant.
Answer the user's question directly in plain language.`

const directResponseApology = "I'm sorry, I wasn't able to generate a response to that question right now."

// DirectResponseImpl implements core.BaseNode for the DirectResponse
// node: a single LLM call for non_financial queries, no tool access.
type DirectResponseImpl struct {
	Provider model.Provider
}

func (n *DirectResponseImpl) Prep(s *state.FinanceState) []string {
	return []string{s.Query}
}

func (n *DirectResponseImpl) Exec(ctx context.Context, query string) (string, error) {
	text, err := n.Provider.Complete(ctx, model.Request{
		SystemPrompt: directResponseSystemPrompt,
		UserPrompt:   query,
	})
	if err != nil {
		return "", fmt.Errorf("direct response: %w", err)
	}
	return text, nil
}

// ExecFallback never raises — it produces a fixed apology string.
func (n *DirectResponseImpl) ExecFallback(err error) string {
	return directResponseApology
}

func (n *DirectResponseImpl) Post(s *state.FinanceState, _ []string, results ...string) core.Action {
	answer := directResponseApology
	if len(results) > 0 {
		answer = results[0]
	}
	s.DirectResponse = answer
	s.RawAnalysis = answer
	s.Trace("DirectResponse: answered directly")
	return core.ActionContinue
}
