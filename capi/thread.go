package capi

import (
	"github.com/kolkov/c11model/internal/action"
	"github.com/kolkov/c11model/internal/driver"
)

// mainTID is the program's entry thread (§3 "Thread identifier", tid 1 is
// the first non-driver thread; 0 is reserved for the driver).
const mainTID action.ThreadID = 1

// RunMain spawns fn as the program's entry thread and wires it to
// automatically submit ThreadFinish on return, the same wrapping Go gives
// every other thread — see Go. A capi-based program under runner.RunMany
// calls RunMain once from its Program func before d.Run.
func RunMain(d *driver.Driver, fn func(h *driver.Handle)) {
	d.Spawn(mainTID, finishing(fn))
}

// Go allocates a new thread (§3 "Thread create/start/join/finish"), starts
// fn on it, and returns the new thread's id so the caller can Join it
// later. It corresponds to pthread_create: the ThreadCreate action runs on
// the calling thread, and the child begins running concurrently from the
// driver's perspective as soon as this call returns (§4.2.4).
func Go(d *driver.Driver, parent *driver.Handle, fn func(h *driver.Handle)) (action.ThreadID, error) {
	act := action.New(parent.TID(), action.ThreadCreate, action.Relaxed, action.FenceLocation, 0)
	if _, err := parent.Submit(act); err != nil {
		return 0, err
	}
	child := act.ThreadOperand
	d.Spawn(child, finishing(fn))
	return child, nil
}

// finishing wraps a thread body so it always submits ThreadFinish on
// return, waking any thread parked in Join (§4.2.4 "ThreadFinish: mark
// thread complete; wake all joiners").
func finishing(fn func(h *driver.Handle)) driver.Thread {
	return func(h *driver.Handle) {
		fn(h)
		h.Submit(action.New(h.TID(), action.ThreadFinish, action.Relaxed, action.FenceLocation, 0))
	}
}

// Join blocks the calling thread until tid has finished, synchronizing
// with its last action (§4.2.4 ThreadJoin).
func Join(h *driver.Handle, tid action.ThreadID) error {
	act := action.New(h.TID(), action.ThreadJoin, action.Relaxed, action.FenceLocation, 0)
	act.ThreadOperand = tid
	_, err := h.Submit(act)
	return err
}

// Sleep models a thread-local sleep: the fuzzer decides whether it actually
// suspends (§4.8 ShouldSleep) or is treated as a zero-duration no-op.
func Sleep(h *driver.Handle) error {
	_, err := h.Submit(action.New(h.TID(), action.ThreadSleep, action.Relaxed, action.FenceLocation, 0))
	return err
}

// Yield hints that the calling thread is willing to let another thread run;
// it commits as a plain trace marker with no engine side effects of its
// own, letting the scheduler's ordinary thread-selection pick someone else
// on the next step.
func Yield(h *driver.Handle) error {
	_, err := h.Submit(action.New(h.TID(), action.ThreadYield, action.Relaxed, action.FenceLocation, 0))
	return err
}

// AssertBug halts the execution with a user-reported bug (§6 assert_bug,
// §7 UserAssert).
func AssertBug(h *driver.Handle, msg string) {
	h.AssertBug(msg)
}
