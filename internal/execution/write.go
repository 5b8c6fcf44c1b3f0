package execution

import "github.com/kolkov/c11model/internal/action"

// processWrite implements §4.2.2: for each other thread, fold in an
// mo-edge from whatever that thread last did (hb-before this write) that
// touches this location, then (for seq_cst writes) chain onto the
// location's total seq_cst order.
func (e *Execution) processWrite(a *action.Action) {
	if a.Type != action.NonAtomicWrite {
		e.reportShadowRace(e.sh.CheckWrite(a.Location, a.TID, uint32(a.Seq), a.CV, true), a)
	}

	for _, tid := range e.otherThreads(a.TID) {
		prior := e.latestHappensBeforeOnThread(tid, a.Location, a)
		if prior == nil {
			continue
		}
		var priorWrite *action.Action
		switch {
		case prior.IsWrite() && prior.Location == a.Location:
			priorWrite = prior
		case prior.IsRead() && prior.ReadsFrom != nil && prior.ReadsFrom.Location == a.Location:
			priorWrite = prior.ReadsFrom
		}
		if priorWrite == nil || priorWrite == a {
			continue
		}
		e.mo.AddEdge(priorWrite, a, false)
	}

	if a.IsSeqCst() {
		if prev, ok := e.lastSeqCstWrite[a.Location]; ok && prev != a {
			e.mo.AddEdge(prev, a, true)
		}
		e.lastSeqCstWrite[a.Location] = a
	}
}
