package execution

import "github.com/kolkov/c11model/internal/action"

// finishRMW implements the second half of a CAS/fetch-op: a was submitted
// as AtomicRMWC (failure, closes as a plain read) or AtomicRMW (success,
// writes a new value and splices into modification order right after the
// write it read). It is dispatched from checkCurrentAction's stage 1
// because, unlike every other action type, an RMW's sequencing is anchored
// to its already-processed AtomicRMWR half rather than a fresh commit.
func (e *Execution) finishRMW(a *action.Action) error {
	ts := e.threads[a.TID]
	if ts == nil || ts.pendingRMWR == nil {
		e.assertf("finishRMW: no pending AtomicRMWR on thread %d", a.TID)
	}
	r := ts.pendingRMWR
	ts.pendingRMWR = nil

	a.Seq = r.Seq
	a.CV = r.CV
	a.ReadsFrom = r.ReadsFrom
	a.LastFenceRelease = r.LastFenceRelease
	a.Location = r.Location

	if a.Type == action.AtomicRMWC {
		// CAS failed: the read already stood on its own (§4.2.1 ran for
		// r), nothing further commits to the trace or mo-graph.
		return nil
	}

	e.commit(a, ts)
	if a.ReadsFrom != nil {
		e.mo.AddRMWEdge(a.ReadsFrom, a)
	}
	e.reportShadowRace(e.sh.CheckWrite(a.Location, a.TID, uint32(a.Seq), a.CV, true), a)

	if a.IsSeqCst() {
		if prev, ok := e.lastSeqCstWrite[a.Location]; ok && prev != a {
			e.mo.AddEdge(prev, a, true)
		}
		e.lastSeqCstWrite[a.Location] = a
	}
	return nil
}

// submitRMWR records a's pending read half so a subsequent AtomicRMWC/
// AtomicRMW on the same thread can complete it. Called from
// checkCurrentAction's normal read path once stage 1-4 finish processing an
// AtomicRMWR like any other read.
func (e *Execution) submitRMWR(a *action.Action) {
	ts := e.threads[a.TID]
	if ts == nil {
		ts = e.registerThread(a.TID)
	}
	ts.pendingRMWR = a
}
