package graph

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quiver-labs/finagent/internal/state"
	"github.com/quiver-labs/finagent/internal/tool"
)

// blobTool returns a payload whose serialized size the test controls, for
// exercising the executor's truncation cap.
type blobTool struct {
	size int
}

func (t *blobTool) Name() string        { return "get_blob" }
func (t *blobTool) Description() string { return "returns a large opaque payload" }
func (t *blobTool) ParameterSchema() tool.ParameterSchema {
	return tool.ParameterSchema{{Name: "ticker", Type: tool.ParamString, Required: true}}
}
func (t *blobTool) Invoke(_ context.Context, _ map[string]any) (any, error) {
	return map[string]any{"blob": strings.Repeat("x", t.size)}, nil
}
func (t *blobTool) Init(_ context.Context) error { return nil }
func (t *blobTool) Close() error                 { return nil }

func newExecState(steps ...state.DecompositionStep) *state.FinanceState {
	s := state.NewFinanceState("What is Apple's current stock price?")
	s.Steps = steps
	return s
}

func TestStepExecutor_DataStep_Success(t *testing.T) {
	quote := &fakeQuoteTool{}
	node := &StepExecutorImpl{Registry: newTestRegistry(quote)}

	step := state.DecompositionStep{
		StepID: "price_lookup", StepType: state.StepData,
		ToolName: "get_current_price", Parameters: map[string]any{"ticker": "AAPL"},
	}
	s := newExecState(step)

	prep := node.Prep(s)
	require.Len(t, prep, 1)
	result, err := node.Exec(context.Background(), prep[0])
	require.NoError(t, err)
	node.Post(s, prep, result)

	stored, ok := s.Get("price_lookup")
	require.True(t, ok)
	assert.True(t, stored.Success)
	assert.Equal(t, state.StepData, stored.StepType)
	assert.ElementsMatch(t, []string{"ticker", "price"}, stored.DataKeys)
	assert.Positive(t, stored.DataSize)
	assert.False(t, stored.Truncated)
}

func TestStepExecutor_DataStep_ToolFailureBecomesFailedResult(t *testing.T) {
	registry := tool.NewRegistry()
	registry.Register(&failingQuoteTool{})
	node := &StepExecutorImpl{Registry: registry}

	step := state.DecompositionStep{
		StepID: "price_lookup", StepType: state.StepData,
		ToolName: "get_current_price", Parameters: map[string]any{"ticker": "AAPL"},
	}
	s := newExecState(step)

	prep := node.Prep(s)
	result, err := node.Exec(context.Background(), prep[0])
	require.NoError(t, err, "a tool failure must never surface as a Go error")
	node.Post(s, prep, result)

	stored, ok := s.Get("price_lookup")
	require.True(t, ok)
	assert.False(t, stored.Success)
	assert.NotEmpty(t, stored.Error)
}

func TestStepExecutor_DataStep_UnknownToolBecomesFailedResult(t *testing.T) {
	node := &StepExecutorImpl{Registry: tool.NewRegistry()}
	step := state.DecompositionStep{
		StepID: "lookup", StepType: state.StepData,
		ToolName: "no_such_tool", Parameters: map[string]any{},
	}
	s := newExecState(step)

	prep := node.Prep(s)
	result, err := node.Exec(context.Background(), prep[0])
	require.NoError(t, err)

	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "no_such_tool")
}

func TestStepExecutor_DataStep_OversizedResultTruncated(t *testing.T) {
	registry := tool.NewRegistry()
	registry.Register(&blobTool{size: 4096})
	node := &StepExecutorImpl{Registry: registry, TruncationBytes: 1024}

	step := state.DecompositionStep{
		StepID: "blob", StepType: state.StepData,
		ToolName: "get_blob", Parameters: map[string]any{"ticker": "AAPL"},
	}
	s := newExecState(step)

	prep := node.Prep(s)
	result, err := node.Exec(context.Background(), prep[0])
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.True(t, result.Truncated)
	assert.Equal(t, 1024, result.DataSize)
	assert.Equal(t, []string{"blob"}, result.DataKeys)

	// The stored value itself must be bounded, not just flagged: the
	// full 4 KiB payload may not survive into StepResults.
	capped, ok := result.Data.(string)
	require.True(t, ok, "an oversized result is stored as its capped serialized form")
	assert.Len(t, capped, 1024)
}

func TestStepExecutor_AnalysisStep_DependenciesRenderedIntoPrompt(t *testing.T) {
	provider := &mockProvider{Responses: []string{"AAPL looks fairly valued."}}
	node := &StepExecutorImpl{Provider: provider, Registry: tool.NewRegistry()}

	dataStep := state.DecompositionStep{StepID: "price_lookup", StepType: state.StepData, ToolName: "get_current_price"}
	synthesis := state.DecompositionStep{
		StepID: state.FinalSynthesisStepID, StepType: state.StepAnalysis,
		AnalysisPrompt: "Assess the valuation.", DependsOn: []string{"price_lookup"},
	}
	s := newExecState(dataStep, synthesis)
	s.CurrentStepIndex = 1
	s.StepResults["price_lookup"] = state.StepResult{
		StepID: "price_lookup", StepType: state.StepData, Success: true,
		Data: map[string]any{"price": 200.5},
	}

	prep := node.Prep(s)
	require.Len(t, prep, 1)
	result, err := node.Exec(context.Background(), prep[0])
	require.NoError(t, err)
	node.Post(s, prep, result)

	stored, ok := s.Get(state.FinalSynthesisStepID)
	require.True(t, ok)
	assert.True(t, stored.Success)
	assert.Equal(t, "AAPL looks fairly valued.", stored.AnalysisFull)

	require.Len(t, provider.Requests, 1)
	prompt := provider.Requests[0].UserPrompt
	assert.Contains(t, prompt, "Assess the valuation.")
	assert.Contains(t, prompt, "price_lookup")
	assert.Contains(t, prompt, "200.5")
}

func TestStepExecutor_AnalysisStep_FailedDependencyRenderedAsFailure(t *testing.T) {
	provider := &mockProvider{Responses: []string{"cannot assess"}}
	node := &StepExecutorImpl{Provider: provider, Registry: tool.NewRegistry()}

	synthesis := state.DecompositionStep{
		StepID: state.FinalSynthesisStepID, StepType: state.StepAnalysis,
		AnalysisPrompt: "Summarize.", DependsOn: []string{"price_lookup"},
	}
	s := newExecState(synthesis)
	s.StepResults["price_lookup"] = state.StepResult{
		StepID: "price_lookup", StepType: state.StepData, Success: false, Error: "rate limited",
	}

	prep := node.Prep(s)
	_, err := node.Exec(context.Background(), prep[0])
	require.NoError(t, err)

	require.Len(t, provider.Requests, 1)
	assert.Contains(t, provider.Requests[0].UserPrompt, "rate limited")
}

func TestStepExecutor_AnalysisStep_OversizedDependencyElided(t *testing.T) {
	provider := &mockProvider{Responses: []string{"summarized"}}
	node := &StepExecutorImpl{Provider: provider, Registry: tool.NewRegistry()}

	synthesis := state.DecompositionStep{
		StepID: state.FinalSynthesisStepID, StepType: state.StepAnalysis,
		AnalysisPrompt: "Summarize.", DependsOn: []string{"big"},
	}
	s := newExecState(synthesis)
	s.StepResults["big"] = state.StepResult{
		StepID: "big", StepType: state.StepAnalysis, Success: true,
		AnalysisFull: strings.Repeat("y", perDependencyByteBudget*2),
	}

	prep := node.Prep(s)
	_, err := node.Exec(context.Background(), prep[0])
	require.NoError(t, err)

	require.Len(t, provider.Requests, 1)
	prompt := provider.Requests[0].UserPrompt
	assert.Contains(t, prompt, "...(truncated)")
	assert.Less(t, len(prompt), perDependencyByteBudget+1024)
}

// When the Verifier asked for a retry, the executor runs the modified
// step instead of the planned one — but only if its id matches the
// current step's.
func TestStepExecutor_RetryStepSubstitution(t *testing.T) {
	quote := &fakeQuoteTool{}
	node := &StepExecutorImpl{Registry: newTestRegistry(quote)}

	planned := state.DecompositionStep{
		StepID: "price_lookup", StepType: state.StepData,
		ToolName: "get_current_price", Parameters: map[string]any{"ticker": "APPL"},
	}
	s := newExecState(planned)
	s.LastVerification = &state.VerificationResult{
		Verdict: state.VerdictNeedsMoreData,
		RetryStep: &state.DecompositionStep{
			StepID: "price_lookup", StepType: state.StepData,
			ToolName: "get_current_price", Parameters: map[string]any{"ticker": "AAPL"},
		},
	}

	prep := node.Prep(s)
	require.Len(t, prep, 1)
	assert.Equal(t, "AAPL", prep[0].Step.Parameters["ticker"], "the retry step's corrected parameters must win")
}

func TestStepExecutor_RetryStepWithMismatchedID_Ignored(t *testing.T) {
	quote := &fakeQuoteTool{}
	node := &StepExecutorImpl{Registry: newTestRegistry(quote)}

	planned := state.DecompositionStep{
		StepID: "price_lookup", StepType: state.StepData,
		ToolName: "get_current_price", Parameters: map[string]any{"ticker": "AAPL"},
	}
	s := newExecState(planned)
	s.LastVerification = &state.VerificationResult{
		Verdict: state.VerdictNeedsMoreData,
		RetryStep: &state.DecompositionStep{
			StepID: "some_other_step", StepType: state.StepData,
			ToolName: "get_current_price", Parameters: map[string]any{"ticker": "MSFT"},
		},
	}

	prep := node.Prep(s)
	require.Len(t, prep, 1)
	assert.Equal(t, "AAPL", prep[0].Step.Parameters["ticker"], "a retry step with a foreign id must be ignored")
}

func TestStepExecutor_NoCurrentStep_NoResultWritten(t *testing.T) {
	node := &StepExecutorImpl{Registry: tool.NewRegistry()}
	s := newExecState() // empty plan

	prep := node.Prep(s)
	assert.Empty(t, prep)
	node.Post(s, prep)
	assert.Empty(t, s.StepResults)
}
