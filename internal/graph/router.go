package graph

import (
	"context"
	"fmt"
	"strings"

	"github.com/quiver-labs/finagent/internal/core"
	"github.com/quiver-labs/finagent/internal/model"
	"github.com/quiver-labs/finagent/internal/state"
)

const routerSystemPrompt = `You classify a user's question about public equities.
Reply with exactly one word: "financial" if the question requires market data,
company fundamentals, or analysis of a public company or the market; "non_financial"
for anything else (definitions, general conversation, unrelated topics).`

// QueryRouterImpl implements core.BaseNode for the QueryRouter node.
// Input: FinanceState.Query. Output: FinanceState.QueryType plus one
// trace line. It never calls a tool and never retries — a single LLM
// call, with a permissive fallback to "financial" on failure.
type QueryRouterImpl struct {
	Provider model.Provider
}

func (n *QueryRouterImpl) Prep(s *state.FinanceState) []string {
	return []string{s.Query}
}

func (n *QueryRouterImpl) Exec(ctx context.Context, query string) (state.QueryType, error) {
	text, err := n.Provider.Complete(ctx, model.Request{
		SystemPrompt: routerSystemPrompt,
		UserPrompt:   query,
	})
	if err != nil {
		return "", fmt.Errorf("classify query: %w", err)
	}
	normalized := strings.ToLower(strings.TrimSpace(text))
	if strings.Contains(normalized, "non_financial") || strings.Contains(normalized, "non-financial") {
		return state.QueryNonFinancial, nil
	}
	if strings.Contains(normalized, "financial") {
		return state.QueryFinancial, nil
	}
	// Any other response is treated as non_financial — a permissive
	// fallback since DirectResponse is harmless.
	return state.QueryNonFinancial, nil
}

// ExecFallback degrades to the richer pipeline on LLM failure: the
// financial path handles anything DirectResponse could have.
func (n *QueryRouterImpl) ExecFallback(err error) state.QueryType {
	return state.QueryFinancial
}

func (n *QueryRouterImpl) Post(s *state.FinanceState, _ []string, results ...state.QueryType) core.Action {
	queryType := state.QueryFinancial
	if len(results) > 0 {
		queryType = results[0]
	}
	s.QueryType = queryType
	s.Trace(fmt.Sprintf("QueryRouter: classified as %s", queryType))

	if queryType == state.QueryNonFinancial {
		return ActionNonFinancial
	}
	return ActionFinancial
}
