// Package stackdepot captures and deduplicates Go call stacks, adapted
// from the teacher's internal/race/stackdepot: a fixed-size frame buffer
// hashed with FNV-1a into a global, deduplicated sync.Map, so the same
// data race reported by many executions (or many times within one, before
// GC prunes the racing actions) costs one stack capture instead of one per
// occurrence (§4.4 "Reporting", §7 "deduplicated by captured stack").
package stackdepot

import (
	"fmt"
	"hash/fnv"
	"runtime"
	"strings"
	"sync"
	"unsafe"
)

// MaxFrames bounds how much of the call stack is captured at a bug site.
// Eight frames is enough to show the instrumented atomic call and its
// immediate caller chain without ballooning memory for long-running
// explorations.
const MaxFrames = 8

// StackTrace is a captured, unsymbolized call stack.
type StackTrace struct {
	PC [MaxFrames]uintptr
}

var depot sync.Map // uint64 hash -> *StackTrace

// Capture captures the stack starting at its caller (runtime.Callers and
// Capture itself are skipped) and returns a hash identifying it, reusing
// any previously captured identical stack.
func Capture() uint64 {
	var pcs [MaxFrames]uintptr
	n := runtime.Callers(2, pcs[:])
	if n == 0 {
		return 0
	}
	hash := hashStack(pcs[:n])
	if _, exists := depot.Load(hash); exists {
		return hash
	}
	depot.Store(hash, &StackTrace{PC: pcs})
	return hash
}

// Lookup returns the stack previously captured under hash, if any.
func Lookup(hash uint64) *StackTrace {
	if hash == 0 {
		return nil
	}
	v, ok := depot.Load(hash)
	if !ok {
		return nil
	}
	return v.(*StackTrace)
}

func hashStack(pcs []uintptr) uint64 {
	h := fnv.New64a()
	for _, pc := range pcs {
		b := (*[8]byte)(unsafe.Pointer(&pc))[:]
		_, _ = h.Write(b)
	}
	return h.Sum64()
}

// Format renders the stack one function and source line per frame,
// eliding runtime-internal frames.
func (st *StackTrace) Format() string {
	if st == nil {
		return "  <unknown>\n"
	}
	frames := runtime.CallersFrames(st.PC[:])
	var buf strings.Builder
	for {
		frame, more := frames.Next()
		if frame.PC == 0 {
			break
		}
		if !strings.HasPrefix(frame.Function, "runtime.") {
			fmt.Fprintf(&buf, "  %s()\n      %s:%d\n", frame.Function, frame.File, frame.Line)
		}
		if !more {
			break
		}
	}
	if buf.Len() == 0 {
		return "  <runtime internal>\n"
	}
	return buf.String()
}

// Reset clears the global stack depot. Test-only.
func Reset() { depot = sync.Map{} }
