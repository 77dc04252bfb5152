package graph

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quiver-labs/finagent/internal/core"
	"github.com/quiver-labs/finagent/internal/state"
)

func TestAdvanceIndex_IncrementsIndex(t *testing.T) {
	s := state.NewFinanceState("q")
	s.Steps = []state.DecompositionStep{{StepID: "a"}, {StepID: "b"}}
	s.CurrentStepIndex = 0

	node := &AdvanceIndexImpl{}
	prep := node.Prep(s)
	exec, err := node.Exec(context.Background(), prep[0])
	require.NoError(t, err)

	action := node.Post(s, prep, exec)

	assert.Equal(t, 1, s.CurrentStepIndex)
	assert.Equal(t, core.ActionContinue, action)
	assert.NotEmpty(t, s.DebugMessages, "expected a trace line to be recorded")
}
