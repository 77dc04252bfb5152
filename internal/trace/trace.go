// Package trace carries the engine's observability ambient stack: the
// per-query debug log (state.FinanceState.DebugMessages), an optional
// Observer interface for per-node events (defined here; the engine in
// internal/graph does not call it), and OpenTelemetry spans/metrics
// around every node transition —
// the suspension points where LLM and tool calls happen.
package trace

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/quiver-labs/finagent/internal/graph"

// Observer receives per-node trace events. Implementations may log,
// accumulate a report, or forward to an external system.
type Observer interface {
	OnNodeEnter(queryID, node string)
	OnNodeExit(queryID, node, action string)
}

// NoopObserver discards every event.
type NoopObserver struct{}

func (NoopObserver) OnNodeEnter(string, string)         {}
func (NoopObserver) OnNodeExit(string, string, string) {}

// Tracer wraps an OTEL tracer/meter pair scoped to the graph engine,
// plus instruments for the counts a Prometheus exporter (promexport)
// would publish: verdict outcomes, budget exhaustion, and step latency.
type Tracer struct {
	tracer trace.Tracer
	meter  metric.Meter

	stepDuration  metric.Float64Histogram
	verdictCount  metric.Int64Counter
	budgetHits    metric.Int64Counter
}

// New constructs a Tracer using the global OTEL providers. cmd/finagent
// installs concrete SDK providers (or leaves the no-op defaults in place
// when telemetry isn't configured) before this is called.
func New() *Tracer {
	meter := otel.Meter(instrumentationName)

	stepDuration, _ := meter.Float64Histogram(
		"finagent.step.duration_seconds",
		metric.WithDescription("Wall-clock duration of a single graph node transition"),
	)
	verdictCount, _ := meter.Int64Counter(
		"finagent.verifier.verdicts_total",
		metric.WithDescription("Count of Verifier verdicts by outcome"),
	)
	budgetHits, _ := meter.Int64Counter(
		"finagent.budget.exhausted_total",
		metric.WithDescription("Count of retry/replan budget exhaustion events"),
	)

	return &Tracer{
		tracer:       otel.Tracer(instrumentationName),
		meter:        meter,
		stepDuration: stepDuration,
		verdictCount: verdictCount,
		budgetHits:   budgetHits,
	}
}

// StartSpan starts a span covering one node's Run — the transition
// whose Exec phase holds the LLM or tool call.
func (t *Tracer) StartSpan(ctx context.Context, node string) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, node)
}

// RecordStepDuration records the wall-clock seconds a node transition
// took.
func (t *Tracer) RecordStepDuration(ctx context.Context, node string, seconds float64) {
	t.stepDuration.Record(ctx, seconds, metric.WithAttributes(attribute.String("node", node)))
}

// RecordVerdict increments the verdict counter for one outcome.
func (t *Tracer) RecordVerdict(ctx context.Context, verdict string) {
	t.verdictCount.Add(ctx, 1, metric.WithAttributes(attribute.String("verdict", verdict)))
}

// RecordBudgetExhausted increments the budget-exhaustion counter for one
// budget kind ("retry" or "replan").
func (t *Tracer) RecordBudgetExhausted(ctx context.Context, kind string) {
	t.budgetHits.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", kind)))
}
