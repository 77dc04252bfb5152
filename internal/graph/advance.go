package graph

import (
	"context"
	"strconv"

	"github.com/quiver-labs/finagent/internal/core"
	"github.com/quiver-labs/finagent/internal/state"
)

// AdvanceIndexImpl implements core.BaseNode for the AdvanceIndex node:
// trivially increments CurrentStepIndex. It exists as its own
// node purely so the Verifier's "ok, more steps remain" routing has a
// single clean destination, keeping the Verifier itself free of state
// mutation beyond its own VerificationResult.
type AdvanceIndexImpl struct{}

func (n *AdvanceIndexImpl) Prep(s *state.FinanceState) []struct{} {
	return []struct{}{{}}
}

func (n *AdvanceIndexImpl) Exec(_ context.Context, _ struct{}) (struct{}, error) {
	return struct{}{}, nil
}

func (n *AdvanceIndexImpl) ExecFallback(_ error) struct{} {
	return struct{}{}
}

func (n *AdvanceIndexImpl) Post(s *state.FinanceState, _ []struct{}, _ ...struct{}) core.Action {
	s.CurrentStepIndex++
	s.Trace("AdvanceIndex: advanced to step index " + strconv.Itoa(s.CurrentStepIndex))
	return core.ActionContinue
}
