package execution

import "github.com/kolkov/c11model/internal/action"

// MutexOwner reports which thread currently holds loc, if any. The driver
// consults this before stepping a Lock action: a Lock only reaches
// processMutexCondvar once the driver already knows the mutex is free, a
// TryLock always reaches it and resolves success/failure itself.
func (e *Execution) MutexOwner(loc action.Location) (action.ThreadID, bool) {
	m, ok := e.mutexes[loc]
	if !ok || m.owner == 0 {
		return 0, false
	}
	return m.owner, true
}

func (e *Execution) mutexFor(loc action.Location) *mutexState {
	m, ok := e.mutexes[loc]
	if !ok {
		m = &mutexState{}
		e.mutexes[loc] = m
	}
	return m
}

// processMutexCondvar implements §4.2.3.
func (e *Execution) processMutexCondvar(a *action.Action) {
	switch a.Type {
	case action.TryLock:
		m := e.mutexFor(a.Location)
		if m.owner != 0 && m.owner != a.TID {
			a.Value = 0
			return
		}
		a.Value = 1
		e.lock(a, m)

	case action.Lock:
		e.lock(a, e.mutexFor(a.Location))

	case action.Unlock:
		m := e.mutexFor(a.Location)
		m.owner = 0
		m.lastUnlock = a
		e.wakeLockWaiters(a.Location)

	case action.CondWait:
		mutexLoc := action.Location(a.Value)
		if e.fz.ShouldWait(a) {
			e.wakeLockWaiters(mutexLoc)
			if m, ok := e.mutexes[mutexLoc]; ok {
				m.owner = 0
				m.lastUnlock = a
			}
			e.condWaiters[a.Location] = append(e.condWaiters[a.Location], a.TID)
			e.sched.Sleep(a.TID)
		}

	case action.CondNotifyAll:
		waiters := e.condWaiters[a.Location]
		delete(e.condWaiters, a.Location)
		for _, w := range waiters {
			e.sched.Wake(w)
		}

	case action.CondNotifyOne:
		waiters := e.condWaiters[a.Location]
		if len(waiters) == 0 {
			return
		}
		picked := e.fz.SelectNotify(waiters)
		e.sched.Wake(picked)
		kept := waiters[:0]
		for _, w := range waiters {
			if w != picked {
				kept = append(kept, w)
			}
		}
		e.condWaiters[a.Location] = kept
	}
}

func (e *Execution) lock(a *action.Action, m *mutexState) {
	m.owner = a.TID
	if m.lastUnlock != nil {
		if err := a.SynchronizeWith(m.lastUnlock); err != nil {
			e.assertf("lock synchronize-with: %v", err)
		}
	}
}

// wakeLockWaiters wakes every thread whose pending action is a Lock on
// loc. Pending-action introspection belongs to the driver in a full
// implementation (it knows what each blocked goroutine is waiting to
// submit); here the scheduler's blocked set stands in, and the driver is
// expected to have blocked a thread on Lock only when the mutex it wants is
// held (see package driver).
func (e *Execution) wakeLockWaiters(loc action.Location) {
	for tid, waitingOn := range e.lockWaiters {
		if waitingOn == loc {
			e.sched.Wake(tid)
			delete(e.lockWaiters, tid)
		}
	}
}

// RegisterLockWait records that tid is blocked trying to acquire loc, so a
// subsequent Unlock/Wait on loc knows to wake it (§4.2.3).
func (e *Execution) RegisterLockWait(tid action.ThreadID, loc action.Location) {
	if e.lockWaiters == nil {
		e.lockWaiters = make(map[action.ThreadID]action.Location)
	}
	e.lockWaiters[tid] = loc
	e.sched.Block(tid)
}
