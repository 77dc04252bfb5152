package graph

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/quiver-labs/finagent/internal/budget"
	"github.com/quiver-labs/finagent/internal/core"
	"github.com/quiver-labs/finagent/internal/model"
	"github.com/quiver-labs/finagent/internal/state"
	"github.com/quiver-labs/finagent/internal/ticker"
	"github.com/quiver-labs/finagent/internal/tool"
	"github.com/quiver-labs/finagent/internal/trace"
)

// ErrCancelled is returned by Engine.Run when the query's context was
// cancelled mid-flight. The returned FinanceState carries no formatter
// artifact in this case — the engine transitions directly to END.
var ErrCancelled = errors.New("finagent: query cancelled")

// ErrGraphStepLimitExceeded is returned by Engine.Run when the total
// number of node transitions for a single query reached the configured
// cap. The returned FinanceState carries a defined error artifact in
// StructuredOutput in place of whatever OutputFormatter would have
// produced.
var ErrGraphStepLimitExceeded = errors.New("finagent: graph step limit exceeded")

// Engine owns the assembled node graph and exposes Run as the single
// entry point for one query's lifecycle: FinanceState creation at START
// through to END. Each call to Run is independent and safe to issue
// concurrently from multiple goroutines — the graph (registry, provider,
// extractor) is immutable after construction and each call gets its own
// FinanceState and its own core.Flow instance.
type Engine struct {
	provider  model.Provider
	registry  *tool.Registry
	extractor ticker.Extractor
	safety    budget.Safety
	tracer    *trace.Tracer

	truncationBytes int
	defaultDataTool string
	callTimeout     time.Duration
}

// Option configures an Engine at construction time.
type Option func(*Engine)

// WithSafety overrides the default safety budgets.
func WithSafety(s budget.Safety) Option {
	return func(e *Engine) { e.safety = s }
}

// WithTracer attaches an observability tracer (internal/trace); nil is a
// valid value and simply disables metric recording.
func WithTracer(t *trace.Tracer) Option {
	return func(e *Engine) { e.tracer = t }
}

// WithTruncationBytes overrides the StepExecutor's DATA-step size cap
// (default 256 KiB).
func WithTruncationBytes(n int) Option {
	return func(e *Engine) { e.truncationBytes = n }
}

// WithDefaultDataTool names the tool the Decomposer's degenerate plan
// falls back to. Left unset, a degenerate plan contains no DATA step.
func WithDefaultDataTool(name string) Option {
	return func(e *Engine) { e.defaultDataTool = name }
}

// WithCallTimeout bounds every LLM and tool call with a deadline
// (default: none beyond whatever the provider's own HTTP client does).
// An exceeded deadline is a step-level failure, handled by the Verifier
// like any other failed result.
func WithCallTimeout(d time.Duration) Option {
	return func(e *Engine) { e.callTimeout = d }
}

// NewEngine constructs an Engine over an immutable tool registry, a
// single LLM provider, and a ticker-extraction collaborator (the engine
// depends only on the ticker.Extractor interface, never on a concrete
// company catalog).
func NewEngine(provider model.Provider, registry *tool.Registry, extractor ticker.Extractor, opts ...Option) *Engine {
	e := &Engine{
		provider:  provider,
		registry:  registry,
		extractor: extractor,
		safety:    budget.NewSafety(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// buildFlow assembles the graph edges: QueryRouter
// branches to DirectResponse or Decomposer; the Decomposer/StepExecutor/
// Verifier/AdvanceIndex cycle implements the retry/replan/advance
// protocol; both DirectResponse and a "done" Verifier verdict converge on
// OutputFormatter, the sole terminal node.
func (e *Engine) buildFlow() *core.Flow[state.FinanceState] {
	provider := model.WithTimeout(e.provider, e.callTimeout)

	router := traceNode(core.NewNode[state.FinanceState, string, state.QueryType](
		&QueryRouterImpl{Provider: provider}, 0,
	), "QueryRouter", e.tracer)
	direct := traceNode(core.NewNode[state.FinanceState, string, string](
		&DirectResponseImpl{Provider: provider}, 0,
	), "DirectResponse", e.tracer)
	decomposer := traceNode(core.NewNode[state.FinanceState, decomposerPrep, decomposerResult](
		&DecomposerImpl{
			Provider:        provider,
			Registry:        e.registry,
			Extractor:       e.extractor,
			DefaultDataTool: e.defaultDataTool,
		}, 0,
	), "Decomposer", e.tracer)
	stepExecutor := traceNode(core.NewNode[state.FinanceState, stepExecutorPrep, state.StepResult](
		&StepExecutorImpl{
			Provider:        provider,
			Registry:        e.registry,
			TruncationBytes: e.truncationBytes,
			ToolTimeout:     e.callTimeout,
		}, 0,
	), "StepExecutor", e.tracer)
	verifier := traceNode(core.NewNode[state.FinanceState, verifierPrep, state.VerificationResult](
		&VerifierImpl{Provider: provider, Safety: e.safety, Tracer: e.tracer}, 0,
	), "Verifier", e.tracer)
	advance := traceNode(core.NewNode[state.FinanceState, struct{}, struct{}](
		&AdvanceIndexImpl{}, 0,
	), "AdvanceIndex", e.tracer)
	formatter := traceNode(core.NewNode[state.FinanceState, formatterPrep, formatterResult](
		&OutputFormatterImpl{Provider: provider}, 0,
	), "OutputFormatter", e.tracer)

	router.AddSuccessor(direct, ActionNonFinancial)
	router.AddSuccessor(decomposer, ActionFinancial)

	direct.AddSuccessor(formatter, core.ActionContinue)

	decomposer.AddSuccessor(stepExecutor, core.ActionContinue)

	stepExecutor.AddSuccessor(verifier, core.ActionContinue)

	verifier.AddSuccessor(stepExecutor, ActionNeedsMoreData)
	verifier.AddSuccessor(decomposer, ActionReplan)
	verifier.AddSuccessor(advance, ActionOKMore)
	verifier.AddSuccessor(formatter, ActionOKDone)

	advance.AddSuccessor(stepExecutor, core.ActionContinue)

	// formatter's ActionEnd has no registered successor — Flow.Run stops
	// there, which is END.

	stepLimit := e.safety.StepLimit
	if stepLimit <= 0 {
		stepLimit = budget.DefaultStepLimit
	}
	return core.NewFlowWithLimit[state.FinanceState](router, stepLimit)
}

// Run executes one query from START to END. It always returns a non-nil
// FinanceState; the returned error is nil on ordinary completion
// (financial or non_financial, with or without individual step/tool
// failures — those are captured inside the state, not surfaced as a Go
// error) and is one of ErrCancelled or ErrGraphStepLimitExceeded
// otherwise.
func (e *Engine) Run(ctx context.Context, query string) (*state.FinanceState, error) {
	s := state.NewFinanceState(query)
	flow := e.buildFlow()

	flow.Run(ctx, s)

	err := flow.Err()
	if err == nil {
		return s, nil
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		// Cancellation skips the formatter entirely — StructuredOutput
		// is left unset.
		s.Trace("Engine: query cancelled, no formatter artifact produced")
		return s, ErrCancelled
	}

	if errors.Is(err, core.ErrStepLimitExceeded) {
		s.StructuredOutput = &state.StructuredOutput{
			Summary: "graph step limit exceeded",
			ContentBlocks: []state.ContentBlock{
				{Kind: state.BlockText, Data: map[string]any{
					"text": fmt.Sprintf("The query aborted after reaching the graph transition limit (%d steps).", e.effectiveStepLimit()),
				}},
			},
			Metadata: map[string]any{"error": "GraphStepLimitExceeded"},
		}
		s.Trace("Engine: graph step limit exceeded, aborting with defined error artifact")
		return s, ErrGraphStepLimitExceeded
	}

	// Any other flow-level error is traced and returned unchanged. The only
	// other error core.Flow reports is a missing start node, which
	// buildFlow never produces.
	s.Trace(fmt.Sprintf("Engine: flow aborted: %v", err))
	return s, err
}

func (e *Engine) effectiveStepLimit() int {
	if e.safety.StepLimit > 0 {
		return e.safety.StepLimit
	}
	return budget.DefaultStepLimit
}
