package execution

import (
	"github.com/kolkov/c11model/internal/action"
	"github.com/kolkov/c11model/internal/clock"
)

// GC implements §4.7: compute cv_min across live threads, free every action
// dominated by it together with its mo-ancestors, and patch up the
// structures that held pointers to what was freed.
func (e *Execution) GC() {
	cvMin := e.computeCVMin()
	if cvMin == nil {
		return
	}

	freed := make(map[*action.Action]bool)
	it := e.trace.Begin()
	var toFree []*action.Action
	for it.Valid() {
		a := it.Action()
		if a.IsWrite() && uint32(a.Seq) <= cvMin.Get(int(a.TID)) {
			toFree = append(toFree, a)
		}
		it.Next()
	}
	for _, w := range toFree {
		e.markReadyFree(w, freed)
	}
	if len(freed) == 0 {
		e.gcNonWrites(cvMin)
		return
	}

	it = e.trace.Begin()
	var toRemove []*action.Action
	for it.Valid() {
		a := it.Action()
		if a.IsRead() && a.ReadsFrom != nil && freed[a.ReadsFrom] {
			if a.IsRMW() {
				a.Type = action.NonAtomicWrite
				a.ReadsFrom = nil
			} else {
				toRemove = append(toRemove, a)
			}
		}
		it.Next()
	}
	for _, a := range toRemove {
		e.removeAction(a)
	}
	for w := range freed {
		e.removeAction(w)
	}
	e.gcNonWrites(cvMin)
	e.synthesizeRetainedLastActions()
}

// computeCVMin elementwise-minimizes the clock vectors of every live
// (non-complete) thread's latest action.
func (e *Execution) computeCVMin() *clock.Vector {
	var result *clock.Vector
	for _, ts := range e.threads {
		if ts.complete || ts.lastAction == nil || ts.lastAction.CV == nil {
			continue
		}
		if result == nil {
			result = ts.lastAction.CV.Clone()
		} else {
			result.MinMerge(ts.lastAction.CV)
		}
	}
	return result
}

// markReadyFree marks w and everything reachable via mo-incoming edges from
// w as ready to free, by removing their mo-graph node (which walking
// incoming edges would otherwise still dangle into) and recording them in
// freed.
func (e *Execution) markReadyFree(w *action.Action, freed map[*action.Action]bool) {
	if freed[w] {
		return
	}
	var ancestors []*action.Action
	for _, writes := range e.writesByLocThread[w.Location] {
		for _, x := range writes {
			if x != w && !freed[x] && e.mo.CheckReachable(x, w) {
				ancestors = append(ancestors, x)
			}
		}
	}
	freed[w] = true
	e.mo.FreeAction(w)
	for _, x := range ancestors {
		freed[x] = true
		e.mo.FreeAction(x)
	}
}

// gcNonWrites discards acquire/release fences and unlock/wait markers below
// cv_min, retaining the last release (unlock or wait) on each mutex.
func (e *Execution) gcNonWrites(cvMin *clock.Vector) {
	lastUnlockSeq := make(map[action.Location]action.SeqNum)
	for loc, m := range e.mutexes {
		if m.lastUnlock != nil {
			lastUnlockSeq[loc] = m.lastUnlock.Seq
		}
	}

	it := e.trace.Begin()
	var toRemove []*action.Action
	for it.Valid() {
		a := it.Action()
		below := uint32(a.Seq) <= cvMin.Get(int(a.TID))
		switch {
		case a.IsFence():
			if below {
				toRemove = append(toRemove, a)
			}
		case a.Type == action.Unlock:
			if below && a.Seq != lastUnlockSeq[a.Location] {
				toRemove = append(toRemove, a)
			}
		case a.Type == action.CondWait:
			if below && a.Seq != lastUnlockSeq[action.Location(a.Value)] {
				toRemove = append(toRemove, a)
			}
		}
		it.Next()
	}
	for _, a := range toRemove {
		e.removeAction(a)
	}
}

// synthesizeRetainedLastActions keeps per-thread back-pointers valid: if
// GC removed a thread's recorded last action from the trace, a no-op
// placeholder takes its place.
func (e *Execution) synthesizeRetainedLastActions() {
	for tid, ts := range e.threads {
		if ts.lastAction == nil {
			continue
		}
		if _, ok := e.trace.Get(uint32(ts.lastAction.Seq)); ok {
			continue
		}
		placeholder := action.New(tid, action.Annotation, action.Relaxed, action.FenceLocation, 0)
		placeholder.Seq = ts.lastAction.Seq
		placeholder.CV = ts.lastAction.CV
		ts.lastAction = placeholder
		if len(ts.history) > 0 {
			ts.history[len(ts.history)-1] = placeholder
		}
	}
}

// removeAction drops a from the trace index and the per-location write
// list, and clears it from per-thread history so freed pointers don't
// linger in latestHappensBeforeOnThread's scan.
func (e *Execution) removeAction(a *action.Action) {
	e.trace.RemoveAction(uint32(a.Seq))
	if byThread, ok := e.writesByLocThread[a.Location]; ok {
		if writes, ok := byThread[a.TID]; ok {
			filtered := writes[:0]
			for _, w := range writes {
				if w != a {
					filtered = append(filtered, w)
				}
			}
			byThread[a.TID] = filtered
		}
	}
	if byThread, ok := e.actionsByLocThread[a.Location]; ok {
		if acts, ok := byThread[a.TID]; ok {
			filtered := acts[:0]
			for _, cand := range acts {
				if cand != a {
					filtered = append(filtered, cand)
				}
			}
			byThread[a.TID] = filtered
		}
	}
	if ts := e.threads[a.TID]; ts != nil {
		filtered := ts.history[:0]
		for _, h := range ts.history {
			if h != a {
				filtered = append(filtered, h)
			}
		}
		ts.history = filtered
	}
}
