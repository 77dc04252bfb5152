// Package state defines FinanceState, the single object threaded through
// the query graph, and the typed value model (steps, results, verdicts)
// every node reads and writes. No node holds a lock over FinanceState: it
// is strictly single-owner, passed by pointer to whichever node is
// currently active, and never touched by two nodes concurrently.
package state

import "time"

// StepType tags a DecompositionStep (and its StepResult) as a tool
// invocation or an LLM reasoning pass over prior results.
type StepType string

const (
	StepData     StepType = "DATA"
	StepAnalysis StepType = "ANALYSIS"
)

// FinalSynthesisStepID is the mandatory id of the last step in any plan.
const FinalSynthesisStepID = "final_synthesis"

// DecompositionStep is one unit of a plan produced by the Decomposer.
type DecompositionStep struct {
	StepID         string         `json:"step_id"`
	StepType       StepType       `json:"step_type"`
	Description    string         `json:"description"`
	ToolName       string         `json:"tool_name,omitempty"`
	Parameters     map[string]any `json:"parameters,omitempty"`
	AnalysisPrompt string         `json:"analysis_prompt,omitempty"`
	DependsOn      []string       `json:"depends_on,omitempty"`
}

// StepResult is what a StepExecutor produces for one step, tagged by
// StepType. Exactly one of the DATA or ANALYSIS fields is populated,
// mirroring which StepType this result belongs to. The StepExecutor reads
// a dependency's result through DataResult/AnalysisResult (see
// accessors.go) when building an ANALYSIS prompt, so a shape mismatch
// fails loudly instead of silently zeroing.
type StepResult struct {
	StepID     string    `json:"step_id"`
	StepType   StepType  `json:"step_type"`
	Success    bool      `json:"success"`
	Error      string    `json:"error,omitempty"`
	ProducedAt time.Time `json:"produced_at"`

	// Populated when StepType == StepData && Success.
	Data      any      `json:"data,omitempty"`
	DataKeys  []string `json:"data_keys,omitempty"`
	DataSize  int      `json:"data_size,omitempty"`
	Truncated bool     `json:"truncated,omitempty"`

	// Populated when StepType == StepAnalysis && Success.
	AnalysisFull string `json:"analysis_full,omitempty"`
}

// Verdict is the Verifier's three-way decision on a just-executed step.
type Verdict string

const (
	VerdictOK            Verdict = "ok"
	VerdictNeedsMoreData Verdict = "needs_more_data"
	VerdictReplan        Verdict = "replan"
)

// VerificationResult is the Verifier's output for one step.
type VerificationResult struct {
	Verdict Verdict `json:"verdict"`
	Reason  string  `json:"reason"`

	// RetryStep is set only when Verdict == VerdictNeedsMoreData: a
	// modified DecompositionStep that replaces the current one for the
	// next execution. Its StepID must equal the current step's id.
	RetryStep *DecompositionStep `json:"retry_step,omitempty"`
}

// QueryType classifies the original user query.
type QueryType string

const (
	QueryFinancial    QueryType = "financial"
	QueryNonFinancial QueryType = "non_financial"
)

// FinanceState is the single object threaded through every node of the
// graph for one query. It is created at START and discarded (or handed to
// an external observer) at END; nothing outside the currently active node
// ever mutates it.
type FinanceState struct {
	Query     string    `json:"query"`
	QueryType QueryType `json:"query_type,omitempty"`

	DirectResponse string `json:"direct_response,omitempty"`

	Steps            []DecompositionStep    `json:"steps,omitempty"`
	CurrentStepIndex int                    `json:"current_step_index"`
	StepResults      map[string]StepResult  `json:"step_results,omitempty"`
	RetryCount       map[string]int         `json:"retry_count,omitempty"`
	ReplanCount      int                    `json:"replan_count"`
	LastVerification *VerificationResult    `json:"last_verification,omitempty"`

	DecompositionReasoning string `json:"decomposition_reasoning,omitempty"`

	RawAnalysis         string            `json:"raw_analysis,omitempty"`
	StructuredOutput    *StructuredOutput `json:"structured_output,omitempty"`
	TypescriptComponent string            `json:"typescript_component,omitempty"`

	DebugMessages []string `json:"debug_messages,omitempty"`
}

// NewFinanceState creates a FinanceState ready for START with the given
// user query. All maps are pre-allocated so every node can write into
// them without a nil check.
func NewFinanceState(query string) *FinanceState {
	return &FinanceState{
		Query:       query,
		StepResults: make(map[string]StepResult),
		RetryCount:  make(map[string]int),
	}
}

// Trace appends a line to DebugMessages. Nodes call this instead of
// logging directly, so the full trace travels with the state and is
// available to an external observer regardless of whether anything is
// listening to stderr.
func (s *FinanceState) Trace(line string) {
	s.DebugMessages = append(s.DebugMessages, line)
}

// CurrentStep returns the step at CurrentStepIndex, or false if the index
// is out of range (an empty or already-exhausted plan).
func (s *FinanceState) CurrentStep() (DecompositionStep, bool) {
	if s.CurrentStepIndex < 0 || s.CurrentStepIndex >= len(s.Steps) {
		return DecompositionStep{}, false
	}
	return s.Steps[s.CurrentStepIndex], true
}

// HasMoreSteps reports whether any step remains after the current one.
func (s *FinanceState) HasMoreSteps() bool {
	return s.CurrentStepIndex < len(s.Steps)-1
}

// ContentBlockKind tags a ContentBlock's shape.
type ContentBlockKind string

const (
	BlockMetric     ContentBlockKind = "metric"
	BlockTable      ContentBlockKind = "table"
	BlockChart      ContentBlockKind = "chart"
	BlockComparison ContentBlockKind = "comparison"
	BlockInsight    ContentBlockKind = "insight"
	BlockText       ContentBlockKind = "text"
)

// ContentBlock is one tagged item in a StructuredOutput's ContentBlocks.
// Data holds the kind-specific payload (e.g. a table's rows, a metric's
// value and unit); it is a plain map so the formatter's LLM output can be
// decoded directly without a closed set of Go structs per kind.
type ContentBlock struct {
	Kind ContentBlockKind `json:"kind"`
	Data map[string]any   `json:"data"`
}

// StructuredOutput is the UI-renderable artifact OutputFormatter
// produces for every query.
type StructuredOutput struct {
	Summary         string         `json:"summary"`
	ContentBlocks   []ContentBlock `json:"content_blocks"`
	KeyInsights     []string       `json:"key_insights"`
	Recommendations []string       `json:"recommendations"`
	Metadata        map[string]any `json:"metadata"`
}
