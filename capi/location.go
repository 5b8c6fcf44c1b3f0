package capi

import (
	"sync/atomic"

	"github.com/kolkov/c11model/internal/action"
)

// nextLoc hands out the dense, monotonically increasing identifiers capi
// uses as action.Location values. The engine only ever treats a Location as
// an opaque key (§3 "opaque pointer for atomics and mutexes"); a counter is
// the straightforward Go stand-in for the original's literal object
// addresses, without the unsafe.Pointer games a literal port would need.
var nextLoc uint64

// newLocation allocates a fresh, never-reused location distinct from
// action.FenceLocation (reserved as zero).
func newLocation() action.Location {
	return action.Location(atomic.AddUint64(&nextLoc, 1))
}
