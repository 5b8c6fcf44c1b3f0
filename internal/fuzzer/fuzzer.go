// Package fuzzer defines the pluggable strategy collaborator the execution
// engine consults whenever the memory model leaves a choice
// underdetermined (§4.8): which write a read observes, which waiter a
// notify-one wakes, and sleep/condvar scheduling decisions.
package fuzzer

import "github.com/kolkov/c11model/internal/action"

// Fuzzer resolves the non-deterministic choices the axiomatic memory model
// leaves open. Implementations are expected to be deterministic given a
// fixed seed, so that a reported bug can be replayed.
type Fuzzer interface {
	// SelectWrite picks which of rfSet the given read observes. rfSet is
	// never empty when this is called.
	SelectWrite(read *action.Action, rfSet []*action.Action) *action.Action

	// SelectNotify picks which waiter a notify_one action wakes. waiters is
	// never empty when this is called.
	SelectNotify(waiters []action.ThreadID) action.ThreadID

	// ShouldSleep reports whether the thread performing sleepAction should
	// actually go to sleep (vs. a fuzzer modeling a zero-duration sleep).
	ShouldSleep(sleepAction *action.Action) bool

	// ShouldWake is consulted once per currently-sleeping thread, for every
	// newly committed action, to decide whether that thread wakes now.
	ShouldWake(sleeper action.ThreadID, committed *action.Action) bool

	// ShouldWait models spurious condvar wakeups: if it returns false, the
	// waiting thread is told to skip blocking and re-observe the predicate
	// immediately.
	ShouldWait(waitAction *action.Action) bool
}

// Source abstracts the randomness a default Fuzzer draws on, so tests can
// supply a deterministic sequence without the fuzzer needing to know it is
// under test.
type Source interface {
	Intn(n int) int
}
