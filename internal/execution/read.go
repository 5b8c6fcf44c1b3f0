package execution

import (
	"github.com/kolkov/c11model/internal/action"
	"github.com/kolkov/c11model/internal/clock"
	"github.com/kolkov/c11model/internal/mograph"
	"github.com/kolkov/c11model/internal/report"
	"github.com/kolkov/c11model/internal/shadow"
)

// processRead implements §4.2.1. On return, a.ReadsFrom and a.Value are
// set and a.CV has been extended with the release sequence ending at the
// chosen write; the shadow race detector has also observed the read.
func (e *Execution) processRead(a *action.Action) error {
	e.reportShadowRace(e.sh.CheckRead(a.Location, a.TID, uint32(a.Seq), a.CV, true), a)

	// Step 1: synthesize a back-dated NonAtomicWrite if the shadow table
	// knows of a prior plain store this read should observe.
	if wtid, wseq, atomic, ok := e.sh.LastWriter(a.Location); ok && !atomic {
		if _, known := e.trace.Get(wseq); !known {
			e.synthesizeNonAtomicWrite(a.Location, wtid, action.SeqNum(wseq))
		}
	}

	rfSet := e.buildReadsFromSet(a)
	if len(rfSet) == 0 {
		e.bugs.Add(report.UninitializedRead, a.TID, a.Seq, a.StackHash, "no candidate write for read at location %#x", a.Location)
		a.Value = e.cfg.UninitializedValue
		return nil
	}

	for len(rfSet) > 0 {
		idx := 0
		if len(rfSet) > 1 {
			w := e.fz.SelectWrite(a, rfSet)
			for i, cand := range rfSet {
				if cand == w {
					idx = i
					break
				}
			}
		}
		w := rfSet[idx]

		edges, ok := e.buildPriorSet(a, w)
		if !ok {
			rfSet = append(rfSet[:idx], rfSet[idx+1:]...)
			continue
		}

		e.mo.AddEdges(edges, w)
		a.ReadsFrom = w
		a.Value = w.Value
		a.CV.Merge(e.releaseSequenceCV(w))
		return nil
	}

	e.bugs.Add(report.MOInconsistency, a.TID, a.Seq, a.StackHash, "no write in rf-set satisfies modification order at location %#x", a.Location)
	return nil
}

// buildReadsFromSet walks each thread's per-location write list newest to
// oldest, per §4.2.1 step 2, stopping at the first hb-ordered write (at
// most one predecessor per thread can ever be selected, since anything
// older on that thread is necessarily hb-before that predecessor too).
func (e *Execution) buildReadsFromSet(a *action.Action) []*action.Action {
	byThread := e.writesByLocThread[a.Location]
	var set []*action.Action
	latestSeqCst := e.lastSeqCstWrite[a.Location]

	for tid, writes := range byThread {
		_ = tid
		for i := len(writes) - 1; i >= 0; i-- {
			w := writes[i]
			if w.Seq >= a.Seq {
				continue // not yet committed relative to this read in trace order
			}
			if a.IsRMW() {
				if node := e.mo.GetNodeIfExists(w); node != nil && node.RMW != nil {
					continue // already has an RMW successor, §4.2.1 step 2
				}
			}
			set = append(set, w)
			if w.HappensBefore(a) {
				break // at most one hb-ordered predecessor per thread
			}
		}
	}

	if a.IsSeqCst() && latestSeqCst != nil {
		filtered := set[:0]
		for _, w := range set {
			if w == latestSeqCst || !latestSeqCst.HappensBefore(a) || !w.HappensBefore(latestSeqCst) {
				filtered = append(filtered, w)
			}
		}
		set = filtered
	}
	return set
}

// buildPriorSet implements the r_modification_order half of §4.2.1 step 3:
// for each other thread, find the latest hb-before action and, if it
// implies an ordering against w that the mo-graph already contradicts,
// reject this candidate.
func (e *Execution) buildPriorSet(a, w *action.Action) ([]mograph.Edge, bool) {
	var edges []mograph.Edge
	for _, tid := range e.otherThreads(a.TID) {
		prior := e.latestHappensBeforeOnThread(tid, w.Location, a)
		if prior == nil {
			continue
		}
		var priorWrite *action.Action
		switch {
		case prior.IsWrite():
			priorWrite = prior
		case prior.IsRead():
			priorWrite = prior.ReadsFrom
		}
		if priorWrite == nil || priorWrite == w || priorWrite.Location != w.Location {
			continue
		}
		if e.mo.CheckReachable(w, priorWrite) {
			return nil, false // w is already mo-after priorWrite: contradiction
		}
		edges = append(edges, mograph.Edge{From: priorWrite, To: w})
	}
	return edges, true
}

// releaseSequenceCV implements §4.2.5: the clock vector that propagates hb
// through the release sequence ending at w, memoized on w.RFCV.
func (e *Execution) releaseSequenceCV(w *action.Action) *clock.Vector {
	if w.RFCV != nil {
		return w.RFCV
	}

	var result *clock.Vector
	cur := w
	for {
		var contribution *clock.Vector
		switch {
		case cur.IsRMW() && cur.IsAcquire() && cur.IsRelease():
			contribution = cur.CV
		case !cur.IsRMW() && cur.IsRelease():
			contribution = cur.CV
		case cur.IsRMW() && !cur.IsRelease():
			if cur.LastFenceRelease != nil {
				contribution = cur.LastFenceRelease.CV
			}
		default:
			contribution = cur.CV
		}
		if result == nil {
			result = clock.NewFrom(contribution)
		} else if contribution != nil {
			result.Merge(contribution)
		}

		if cur.IsRMW() && cur.ReadsFrom != nil && !(cur.IsAcquire() && cur.IsRelease()) {
			cur = cur.ReadsFrom
			continue
		}
		break
	}
	if result == nil {
		result = clock.New()
	}
	w.RFCV = result
	return result
}

func (e *Execution) synthesizeNonAtomicWrite(loc action.Location, tid action.ThreadID, seq action.SeqNum) {
	a := action.New(tid, action.NonAtomicWrite, action.Relaxed, loc, 0)
	a.Seq = seq
	if cv, ok := e.plainCV[seq]; ok {
		a.CV = cv.Clone()
	} else {
		a.CreateCV(nil)
	}
	e.trace.AddAction(a)
	byThread, ok := e.writesByLocThread[loc]
	if !ok {
		byThread = make(map[action.ThreadID][]*action.Action)
		e.writesByLocThread[loc] = byThread
	}
	byThread[tid] = append(byThread[tid], a)

	byLocThread, ok := e.actionsByLocThread[loc]
	if !ok {
		byLocThread = make(map[action.ThreadID][]*action.Action)
		e.actionsByLocThread[loc] = byLocThread
	}
	byLocThread[tid] = append(byLocThread[tid], a)
}

// reportShadowRace files one DataRace bug per race the shadow table found,
// resolving the other side's call stack by looking its action up in the
// trace by sequence number (r.Clock) — something only possible here, since
// this engine keeps the full trace around rather than the bare shadow
// memory a conventional race detector discards the other side into.
func (e *Execution) reportShadowRace(races []shadow.Race, a *action.Action) {
	for _, r := range races {
		var otherHash uint64
		if other, ok := e.trace.Get(r.Clock); ok {
			otherHash = other.StackHash
		}
		e.bugs.AddRace(a.TID, a.Seq, a.StackHash, otherHash, "race at %#x against thread %d (clock %d, write=%v)", a.Location, r.TID, r.Clock, r.WasWrite)
	}
}
