package graph

import (
	"context"
	"time"

	"github.com/quiver-labs/finagent/internal/core"
	"github.com/quiver-labs/finagent/internal/state"
	"github.com/quiver-labs/finagent/internal/trace"
)

// tracedWorkflow wraps one graph node so every Run is recorded as an
// OTEL span plus a step-duration sample named after the node. Successor
// routing is delegated untouched, so wrapped and unwrapped nodes compose
// in the same flow.
type tracedWorkflow struct {
	inner  core.Workflow[state.FinanceState]
	name   string
	tracer *trace.Tracer
}

// traceNode wraps inner with span/duration recording. A nil tracer
// returns inner unchanged, keeping the untraced path allocation-free.
func traceNode(inner core.Workflow[state.FinanceState], name string, t *trace.Tracer) core.Workflow[state.FinanceState] {
	if t == nil {
		return inner
	}
	return &tracedWorkflow{inner: inner, name: name, tracer: t}
}

func (w *tracedWorkflow) Run(ctx context.Context, s *state.FinanceState) core.Action {
	ctx, span := w.tracer.StartSpan(ctx, w.name)
	defer span.End()

	start := time.Now()
	action := w.inner.Run(ctx, s)
	w.tracer.RecordStepDuration(ctx, w.name, time.Since(start).Seconds())
	return action
}

func (w *tracedWorkflow) GetSuccessor(action core.Action) core.Workflow[state.FinanceState] {
	return w.inner.GetSuccessor(action)
}

func (w *tracedWorkflow) AddSuccessor(successor core.Workflow[state.FinanceState], action ...core.Action) core.Workflow[state.FinanceState] {
	return w.inner.AddSuccessor(successor, action...)
}
