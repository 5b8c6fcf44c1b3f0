package capi

import (
	"github.com/kolkov/c11model/internal/action"
	"github.com/kolkov/c11model/internal/driver"
)

// Plain is a non-atomic (ordinary) memory location: the `store_N`/`load_N`
// helpers of §6. It feeds the shadow race detector exactly like a real
// plain load/store would, but the actual value lives in whatever native Go
// variable the caller stores it in — Plain only tracks the race-detector
// metadata, per §3's "Non-atomic stores/loads ... do not create Actions but
// record writes/reads in the shadow race table."
type Plain struct {
	loc action.Location
}

// NewPlain allocates a fresh non-atomic location.
func NewPlain() *Plain {
	return &Plain{loc: newLocation()}
}

// RecordStore tells the shadow detector a plain store by h's thread just
// happened at this location; the caller is responsible for performing the
// actual Go assignment itself.
func (p *Plain) RecordStore(h *driver.Handle) {
	h.SubmitPlain(p.loc, false)
}

// RecordLoad tells the shadow detector a plain load by h's thread just
// happened at this location. The first modeled atomic read of a location
// with a recorded plain store synthesizes a back-dated NonAtomicWrite
// (§4.2.1 step 1); RecordLoad itself never returns a value — the caller
// reads its own Go variable.
func (p *Plain) RecordLoad(h *driver.Handle) {
	h.SubmitPlain(p.loc, true)
}
