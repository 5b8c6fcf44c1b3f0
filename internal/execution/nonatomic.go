package execution

import (
	"github.com/kolkov/c11model/internal/action"
	"github.com/kolkov/c11model/internal/clock"
)

// nextPlainSeq mints a fresh global sequence number and the clock vector a
// non-atomic access by tid carries at this moment: a copy of the thread's
// last committed (atomic) action's cv, advanced to the new seq on tid's own
// component. Plain accesses never enter the trace/mo pipeline themselves
// (§3), but still need a real, nonzero position in happens-before so the
// shadow detector's clk==0 "never accessed" sentinel is never confused with
// a genuine first access.
func (e *Execution) nextPlainSeq(tid action.ThreadID) (action.SeqNum, *clock.Vector) {
	e.nextSeq++
	seq := e.nextSeq
	var parent *clock.Vector
	if ts := e.threads[tid]; ts != nil && ts.lastAction != nil {
		parent = ts.lastAction.CV
	}
	cv := clock.NewFrom(parent)
	cv.Set(int(tid), uint32(seq))
	e.plainCV[seq] = cv
	return seq, cv
}

// RecordPlainWrite feeds a non-atomic store directly to the shadow race
// detector, bypassing the trace/mo pipeline entirely (§3 "non-atomic write
// (auto-inserted on first read of a location with prior plain stores)" —
// plain accesses are only lifted into the trace lazily, by processRead,
// when some read needs to know about them). capi's store_N helpers are the
// only intended caller. stackHash is the issuing user goroutine's stack,
// captured by driver.Handle.SubmitPlain before this ever reaches the model
// thread.
func (e *Execution) RecordPlainWrite(loc action.Location, tid action.ThreadID, stackHash uint64) {
	seq, cv := e.nextPlainSeq(tid)
	e.reportShadowRace(e.sh.CheckWrite(loc, tid, uint32(seq), cv, false), &action.Action{TID: tid, Seq: seq, StackHash: stackHash})
}

// RecordPlainRead feeds a non-atomic load directly to the shadow race
// detector, for the same reason RecordPlainWrite exists.
func (e *Execution) RecordPlainRead(loc action.Location, tid action.ThreadID, stackHash uint64) {
	seq, cv := e.nextPlainSeq(tid)
	e.reportShadowRace(e.sh.CheckRead(loc, tid, uint32(seq), cv, false), &action.Action{TID: tid, Seq: seq, StackHash: stackHash})
}
