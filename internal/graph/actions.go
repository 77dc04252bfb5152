// Package graph wires the seven engine nodes (QueryRouter,
// DirectResponse, Decomposer, StepExecutor, Verifier, AdvanceIndex,
// OutputFormatter) into a core.Flow[state.FinanceState] using the
// action-routed Node/Flow composition from internal/core.
package graph

import "github.com/quiver-labs/finagent/internal/core"

// Domain action vocabulary. core's baseline actions (ActionContinue,
// ActionEnd, ActionAborted, ...) remain in play for graph-engine-level
// conditions; these name the Verifier's and QueryRouter's own routing
// decisions so the successor tables below read like the edge list in the
// system overview.
const (
	ActionFinancial    core.Action = "financial"
	ActionNonFinancial core.Action = "non_financial"

	ActionNeedsMoreData core.Action = "needs_more_data"
	ActionReplan        core.Action = "replan"
	ActionOKMore        core.Action = "ok_more"
	ActionOKDone        core.Action = "ok_done"
)
