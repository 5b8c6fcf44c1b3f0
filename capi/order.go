package capi

import "github.com/kolkov/c11model/internal/action"

// Order re-exports the §3 memory-order enum so capi callers never need to
// import internal/action directly.
type Order = action.Order

const (
	Relaxed       = action.Relaxed
	Consume       = action.Consume
	Acquire       = action.Acquire
	Release       = action.Release
	AcqRel        = action.AcqRel
	SeqCst        = action.SeqCst
	VolatileLoad  = action.VolatileLoad
	VolatileStore = action.VolatileStore
	WildcardBase  = action.WildcardBase
)
