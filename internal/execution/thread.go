package execution

import "github.com/kolkov/c11model/internal/action"

// processThreadAction implements §4.2.4: spawn/join/finish/sleep handling,
// and is called unconditionally from checkCurrentAction's stage 5 — it is a
// no-op for every other action type.
func (e *Execution) processThreadAction(a *action.Action) {
	switch a.Type {
	case action.ThreadCreate:
		child := a.ThreadOperand
		if child == 0 {
			child = e.CreateThread()
			a.ThreadOperand = child
		}
		cts := e.threads[child]
		if cts == nil {
			cts = e.registerThread(child)
		}
		// The child's first action inherits hb from the create (wiring the
		// "parent/creation back-pointer" the spec calls for); CreateCV
		// cannot run yet since the child has no action of its own, so stash
		// the creator on the child's state for its first commit to fold in.
		if cts.lastAction == nil {
			cts.lastAction = a
		}

	case action.ThreadJoin:
		target := e.threads[a.ThreadOperand]
		if target == nil {
			return
		}
		if !target.complete {
			// A caller that steps a Join before its target is enabled (§5
			// "Suspension points") gets this record-and-block fallback;
			// package driver instead defers the Step itself (see
			// Driver.handle) so the eventual commit's seqnum postdates the
			// target's ThreadFinish and SynchronizeWith below never needs
			// to run against a stale sequence number.
			e.sched.Block(a.TID)
			target.joiners = append(target.joiners, a.TID)
			return
		}
		if target.lastAction != nil {
			if err := a.SynchronizeWith(target.lastAction); err != nil {
				e.assertf("thread join synchronize-with: %v", err)
			}
		}

	case action.ThreadFinish:
		ts := e.threads[a.TID]
		ts.complete = true
		for _, j := range ts.joiners {
			e.sched.Wake(j)
		}
		ts.joiners = nil
		e.sched.RemoveThread(a.TID)

	case action.ThreadSleep:
		if e.fz.ShouldSleep(a) {
			e.sched.Sleep(a.TID)
		}
	}
}

// PendingJoiners returns the threads currently blocked in ThreadJoin
// waiting on tid to finish.
func (e *Execution) PendingJoiners(tid action.ThreadID) []action.ThreadID {
	if ts := e.threads[tid]; ts != nil {
		return ts.joiners
	}
	return nil
}

// IsComplete reports whether every non-driver thread is disabled, i.e. the
// execution can make no further progress, per §4.2.6.
func (e *Execution) IsComplete() bool {
	return e.sched.AllFinishedOrBlocked()
}

// IsDeadlocked reports whether the execution ended with at least one thread
// still blocked rather than cleanly finished, per §4.2.6.
func (e *Execution) IsDeadlocked() bool {
	return e.sched.AllFinishedOrBlocked() && e.sched.AnyBlocked()
}

// IsSleeping reports whether tid is currently parked asleep (condvar wait
// or modeled sleep), letting the driver tell a genuine wait from a
// spurious-wakeup no-op (§4.2.3, §6).
func (e *Execution) IsSleeping(tid action.ThreadID) bool {
	return e.sched.IsSleeping(tid)
}

// IsThreadComplete reports whether tid has run its ThreadFinish action, so
// a driver can tell whether a ThreadJoin targeting it may proceed
// immediately or must be deferred (§4.2.4 "enabled only when the joined
// thread is complete").
func (e *Execution) IsThreadComplete(tid action.ThreadID) bool {
	ts := e.threads[tid]
	return ts != nil && ts.complete
}
