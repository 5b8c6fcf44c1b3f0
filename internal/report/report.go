package report

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/kolkov/c11model/internal/action"
	"github.com/kolkov/c11model/internal/stackdepot"
)

// Kind identifies one of the bug categories from §7.
type Kind uint8

const (
	UninitializedRead Kind = iota
	Deadlock
	DataRace
	UserAssert
	MOInconsistency
	InvalidSync
)

func (k Kind) String() string {
	switch k {
	case UninitializedRead:
		return "uninitialized-read"
	case Deadlock:
		return "deadlock"
	case DataRace:
		return "data-race"
	case UserAssert:
		return "user-assert"
	case MOInconsistency:
		return "mo-inconsistency"
	case InvalidSync:
		return "invalid-sync"
	default:
		return "unknown"
	}
}

// Sentinel errors for the §7 error taxonomy; Bug.Unwrap maps each Kind to
// its sentinel, so callers use errors.Is against these to classify a bug
// without string matching.
var (
	ErrUninitializedRead = errors.New("report: read observed uninitialized atomic")
	ErrDeadlock          = errors.New("report: deadlock, no thread enabled")
	ErrDataRace          = errors.New("report: data race")
	ErrUserAssert        = errors.New("report: user assertion failed")
	ErrMOInconsistency   = errors.New("report: no write in rf-set satisfies modification order")
	ErrInvalidSync       = errors.New("report: synchronize-with a non-past action")
)

func (k Kind) sentinel() error {
	switch k {
	case UninitializedRead:
		return ErrUninitializedRead
	case Deadlock:
		return ErrDeadlock
	case DataRace:
		return ErrDataRace
	case UserAssert:
		return ErrUserAssert
	case MOInconsistency:
		return ErrMOInconsistency
	case InvalidSync:
		return ErrInvalidSync
	default:
		return errors.New("report: unknown bug kind")
	}
}

// Bug is one entry in an execution's bug list (§7 "Propagation policy":
// bugs are appended, the engine never unwinds on one).
type Bug struct {
	Kind      Kind
	Message   string
	TID       action.ThreadID
	Seq       action.SeqNum
	StackHash uint64

	// OtherStackHash is the racing access on the other side of a DataRace
	// bug, when the trace still holds it (§4.4 "both accesses"); zero for
	// every other Kind, and for a DataRace whose counterpart has already
	// been GC'd out of the trace.
	OtherStackHash uint64
}

func (b Bug) Error() string {
	return fmt.Sprintf("%s: %s (thread %d, seq %d)", b.Kind, b.Message, b.TID, b.Seq)
}

// Unwrap lets errors.Is(bug, report.ErrDataRace) work without every caller
// re-deriving the mapping from Kind to sentinel.
func (b Bug) Unwrap() error { return b.Kind.sentinel() }

// List accumulates the bugs found during one execution and deduplicates
// data races by captured stack, per §7.
type List struct {
	bugs     []Bug
	seenRace map[uint64]bool
}

// NewList returns an empty bug list.
func NewList() *List {
	return &List{seenRace: make(map[uint64]bool)}
}

// Add appends a bug to the list under the given stack hash. Callers capture
// the hash themselves — on the goroutine that actually issued the access
// being reported, not here, since by the time Add runs on the model thread
// the original caller's stack is long gone.
func (l *List) Add(kind Kind, tid action.ThreadID, seq action.SeqNum, stackHash uint64, format string, args ...any) {
	l.bugs = append(l.bugs, Bug{
		Kind:      kind,
		Message:   fmt.Sprintf(format, args...),
		TID:       tid,
		Seq:       seq,
		StackHash: stackHash,
	})
}

// AddRace is Add's DataRace-specific counterpart: besides the reporting
// access's own stack (stackHash), it carries the racing access's stack
// (otherStackHash) when the trace still holds that action, and deduplicates
// on stackHash so the same call site doesn't re-report across every
// execution a fuzzing run explores (§7 "deduplicated by captured stack").
func (l *List) AddRace(tid action.ThreadID, seq action.SeqNum, stackHash, otherStackHash uint64, format string, args ...any) {
	if l.seenRace[stackHash] {
		return
	}
	l.seenRace[stackHash] = true
	l.bugs = append(l.bugs, Bug{
		Kind:           DataRace,
		Message:        fmt.Sprintf(format, args...),
		TID:            tid,
		Seq:            seq,
		StackHash:      stackHash,
		OtherStackHash: otherStackHash,
	})
}

// Bugs returns every bug recorded so far, in the order reported.
func (l *List) Bugs() []Bug { return l.bugs }

// Empty reports whether no bug has been recorded.
func (l *List) Empty() bool { return len(l.bugs) == 0 }

// Log writes every recorded bug to logger at error level, one event each,
// with the originating call site's stack attached when available (§7).
// No package in this module calls it.
func (l *List) Log(logger zerolog.Logger) {
	for _, b := range l.bugs {
		ev := logger.Error().
			Str("kind", b.Kind.String()).
			Int32("tid", int32(b.TID)).
			Uint32("seq", uint32(b.Seq))
		if st := stackdepot.Lookup(b.StackHash); st != nil {
			ev = ev.Str("stack", st.Format())
		}
		if st := stackdepot.Lookup(b.OtherStackHash); st != nil {
			ev = ev.Str("other_stack", st.Format())
		}
		ev.Msg(b.Message)
	}
}
