// Package analysis defines the hand-off point between a finished execution
// and an external trace-analysis plugin (§6 "trace-analysis plugins" /
// "Post-pass trace handoff"): the engine exposes its trace and mo-graph
// through accessor methods and a registered pass implements TracePass,
// never learning what the pass actually checks.
package analysis

import (
	"github.com/kolkov/c11model/internal/actionlist"
	"github.com/kolkov/c11model/internal/mograph"
)

// Execution is the subset of *execution.Execution a TracePass needs: the
// finished trace and its modification-order graph. Declared here instead of
// accepting *execution.Execution directly so this package has no
// dependency on package execution — execution depends on analysis, not the
// other way around.
type Execution interface {
	Trace() *actionlist.List
	MOGraph() *mograph.Graph
}

// TracePass inspects a finished execution's trace and mo-graph. A toy SC
// checker (walking the committed trace looking for the IRIW/message-passing
// violations §8 describes) is the reference implementation; nothing stops a
// caller from registering several.
type TracePass interface {
	Run(e Execution)
}
