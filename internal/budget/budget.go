// Package budget enforces the hard safety caps that override an LLM's
// own verdict once exhausted: per-step retries, whole-query replans, and
// total graph transitions.
package budget

import "sync/atomic"

// Default caps: two retries per step, one replan per query, fifty node
// transitions per query.
const (
	DefaultRetryBudget  = 2
	DefaultReplanBudget = 1
	DefaultStepLimit    = 50
)

// Safety holds the three hard caps the Verifier enforces regardless of
// what the LLM's verdict says. It is owned by the query's FinanceState
// lifetime (one Safety per query), not shared across queries.
type Safety struct {
	RetryBudget  int
	ReplanBudget int
	StepLimit    int
}

// NewSafety returns a Safety with the default caps. Fields can be
// overridden afterward (e.g. from internal/config).
func NewSafety() Safety {
	return Safety{
		RetryBudget:  DefaultRetryBudget,
		ReplanBudget: DefaultReplanBudget,
		StepLimit:    DefaultStepLimit,
	}
}

// RetryExhausted reports whether another needs_more_data verdict for a
// step already retried `count` times would exceed the per-step retry
// budget.
func (s Safety) RetryExhausted(count int) bool {
	return count >= s.RetryBudget
}

// ReplanExhausted reports whether another replan verdict would exceed the
// whole-query replan budget.
func (s Safety) ReplanExhausted(count int) bool {
	return count >= s.ReplanBudget
}

// StepLimitExceeded reports whether `steps` node transitions have
// reached the engine's hard cap on total graph transitions.
func (s Safety) StepLimitExceeded(steps int) bool {
	return steps >= s.StepLimit
}

// TokenGuard is an optional, independent cost cap on total LLM tokens
// consumed by a single query, alongside the verdict/step-count caps
// above. A zero-value TokenGuard (MaxTokens == 0) never reports
// exceeded, so adopting it is opt-in.
type TokenGuard struct {
	MaxTokens  int64
	usedTokens atomic.Int64
}

// RecordTokens adds n tokens to the running total.
func (g *TokenGuard) RecordTokens(n int64) {
	g.usedTokens.Add(n)
}

// UsedTokens returns the running total.
func (g *TokenGuard) UsedTokens() int64 {
	return g.usedTokens.Load()
}

// IsExceeded reports whether the running total has reached MaxTokens.
// Always false when MaxTokens is unset (<= 0).
func (g *TokenGuard) IsExceeded() bool {
	if g.MaxTokens <= 0 {
		return false
	}
	return g.usedTokens.Load() >= g.MaxTokens
}
