// Package execution implements the core orchestrator (§4.2): it owns the
// global trace for one explored execution and, for every action a user
// thread hands it, assigns a sequence number and clock vector, resolves
// reads against the memory model, maintains modification order, runs the
// shadow race detector, and drives mutexes/condvars/thread lifecycle.
//
// An Execution is single-writer by construction (§5 "the entire checker
// state is owned by the driver"): every exported method here is meant to
// be called from one goroutine at a time — the driver loop in package
// driver — never concurrently from user goroutines.
package execution

import (
	"fmt"

	"golang.org/x/exp/maps"

	"github.com/kolkov/c11model/internal/action"
	"github.com/kolkov/c11model/internal/actionlist"
	"github.com/kolkov/c11model/internal/analysis"
	"github.com/kolkov/c11model/internal/clock"
	"github.com/kolkov/c11model/internal/config"
	"github.com/kolkov/c11model/internal/fuzzer"
	"github.com/kolkov/c11model/internal/mograph"
	"github.com/kolkov/c11model/internal/report"
	"github.com/kolkov/c11model/internal/scheduler"
	"github.com/kolkov/c11model/internal/shadow"
	"github.com/kolkov/c11model/internal/stackdepot"
)

// threadState is the per-thread bookkeeping the engine needs beyond what
// lives on individual actions.
type threadState struct {
	lastAction       *action.Action
	lastReleaseFence *action.Action
	lastAcquireFence *action.Action
	acquireFenceCV   *clock.Vector
	pendingRMWR      *action.Action
	complete         bool
	joiners          []action.ThreadID
	history          []*action.Action
}

// mutexState is the §3 "Mutex state" record.
type mutexState struct {
	owner      action.ThreadID
	recursive  bool
	recursion  int
	lastUnlock *action.Action
}

// Execution owns one explored execution's entire state.
type Execution struct {
	cfg config.Config
	fz  fuzzer.Fuzzer
	an  []Pass

	bugs  *report.List
	trace *actionlist.List
	mo    *mograph.Graph
	sh    *shadow.Table
	sched *scheduler.Scheduler

	nextSeq action.SeqNum
	threads map[action.ThreadID]*threadState

	// writesByLocThread accelerates "most recent write by thread T to
	// location L" — the per-thread-per-location list of §3.
	writesByLocThread map[action.Location]map[action.ThreadID][]*action.Action

	// actionsByLocThread is obj_thrd_map: every action (read or write) by
	// thread T against location L, in commit order. latestHappensBeforeOnThread
	// scans this instead of a thread's whole history so that a thread's
	// latest hb-before action *at this location* is found even when its
	// globally-latest action touches some other location entirely.
	actionsByLocThread map[action.Location]map[action.ThreadID][]*action.Action

	lastSeqCstWrite map[action.Location]*action.Action
	mutexes         map[action.Location]*mutexState
	condWaiters     map[action.Location][]action.ThreadID
	lockWaiters     map[action.ThreadID]action.Location

	// plainCV remembers the clock vector a non-atomic access carried at the
	// moment the shadow detector observed it, keyed by the sequence number
	// RecordPlainWrite/RecordPlainRead minted for it, so a later
	// synthesizeNonAtomicWrite backdates with the access's real
	// happens-before view instead of a bare (tid, seq) singleton.
	plainCV map[action.SeqNum]*clock.Vector

	asserted  bool
	assertMsg string

	actionsSinceGC int
	nextThreadID   action.ThreadID
}

// Pass is the post-pass hook (§6 "trace-analysis plugins"), aliased to
// analysis.TracePass so both packages share one definition without
// analysis importing back into execution.
type Pass = analysis.TracePass

// New creates an execution with one pre-registered thread (tid 1, the
// program's entry thread) and registers any trace-analysis passes cfg
// names (resolution of plugin names to Pass values is the caller's job;
// New itself just takes the already-constructed passes).
func New(cfg config.Config, fz fuzzer.Fuzzer, passes ...Pass) *Execution {
	e := &Execution{
		cfg:                cfg,
		fz:                 fz,
		an:                 passes,
		bugs:               report.NewList(),
		trace:              actionlist.New(),
		mo:                 mograph.New(),
		sh:                 shadow.New(),
		sched:              scheduler.New(),
		threads:            make(map[action.ThreadID]*threadState),
		writesByLocThread:  make(map[action.Location]map[action.ThreadID][]*action.Action),
		actionsByLocThread: make(map[action.Location]map[action.ThreadID][]*action.Action),
		lastSeqCstWrite:    make(map[action.Location]*action.Action),
		mutexes:            make(map[action.Location]*mutexState),
		condWaiters:        make(map[action.Location][]action.ThreadID),
		lockWaiters:        make(map[action.ThreadID]action.Location),
		plainCV:            make(map[action.SeqNum]*clock.Vector),
		nextThreadID:      2,
	}
	e.registerThread(1)
	return e
}

func (e *Execution) registerThread(tid action.ThreadID) *threadState {
	ts := &threadState{}
	e.threads[tid] = ts
	e.sched.AddThread(tid)
	return ts
}

// Bugs returns the bug list accumulated so far.
func (e *Execution) Bugs() *report.List { return e.bugs }

// Trace exposes the committed trace to post-pass analyses (§6 "Post-pass
// trace handoff").
func (e *Execution) Trace() *actionlist.List { return e.trace }

// MOGraph exposes the modification-order graph to post-pass analyses.
func (e *Execution) MOGraph() *mograph.Graph { return e.mo }

// Asserted reports whether a user or internal assertion has halted this
// execution (§4.2.6).
func (e *Execution) Asserted() (bool, string) { return e.asserted, e.assertMsg }

// RunPasses hands the finished trace to every registered analysis.TracePass
// in registration order. Call once the driver has determined the execution
// is complete or deadlocked (§4.2.6); passes see the trace exactly as GC
// left it.
func (e *Execution) RunPasses() {
	for _, p := range e.an {
		p.Run(e)
	}
}

// assertf records an internal invariant failure and panics, matching §7's
// carve-out that internal invariant violations terminate the process
// rather than returning an error.
func (e *Execution) assertf(format string, args ...any) {
	panic(fmt.Sprintf("execution: internal invariant violated: "+format, args...))
}

// SetAssert halts the execution on a user or internal assertion (§4.2.6
// "Asserted", §6 `assert_bug`). stackHash is the calling user goroutine's
// stack, captured at the assert_bug call site by driver.Handle.AssertBug.
func (e *Execution) SetAssert(msg string, stackHash uint64) {
	e.asserted = true
	e.assertMsg = msg
	e.bugs.Add(report.UserAssert, action.ModelThread, e.nextSeq, stackHash, "%s", msg)
}

// RecordDeadlock files a §7 Deadlock bug once the driver's completion
// check finds every remaining thread blocked rather than finished
// (§4.2.6, §8 Scenario 5). No single user thread issued the action that
// deadlocked, so this captures the model thread's own stack rather than
// threading one through from a request.
func (e *Execution) RecordDeadlock() {
	e.bugs.Add(report.Deadlock, action.ModelThread, e.nextSeq, stackdepot.Capture(), "deadlock: no thread runnable")
}

// CreateThread allocates a fresh thread id for ThreadCreate handling and
// registers it in the scheduler.
func (e *Execution) CreateThread() action.ThreadID {
	tid := e.nextThreadID
	e.nextThreadID++
	e.registerThread(tid)
	return tid
}

// Step runs one action through the full §4.2 pipeline and returns the
// value the caller's atomic operation should observe (the chosen read
// value, or the action's own value for writes/fences/RMW-success).
func (e *Execution) Step(a *action.Action) (uint64, error) {
	if err := e.checkCurrentAction(a); err != nil {
		return 0, err
	}
	return a.Value, nil
}

// checkCurrentAction is the §4.2 orchestrator.
func (e *Execution) checkCurrentAction(a *action.Action) error {
	// Stage 1: initialize.
	if a.Type == action.AtomicRMWC || a.Type == action.AtomicRMW {
		return e.finishRMW(a)
	}

	ts := e.threads[a.TID]
	if ts == nil {
		ts = e.registerThread(a.TID)
	}
	parent := ts.lastAction
	e.nextSeq++
	a.Seq = e.nextSeq
	a.CreateCV(parent)
	a.LastFenceRelease = ts.lastReleaseFence

	// Stage 2: wake sleepers.
	for _, tid := range e.sched.Sleeping() {
		if e.fz.ShouldWake(tid, a) {
			e.sched.Wake(tid)
		}
	}

	// Stage 3: read processing.
	if a.IsRead() && a.Type != action.NonAtomicWrite {
		if err := e.processRead(a); err != nil {
			return err
		}
	}

	// Stage 4: commit to lists.
	e.commit(a, ts)

	// Stage 5: thread actions.
	e.processThreadAction(a)

	// Stage 6: write modification order.
	if a.IsWrite() {
		e.processWrite(a)
	}

	// Stage 7: fence.
	if a.IsFence() && a.IsAcquire() {
		if ts.acquireFenceCV != nil {
			a.CV.Merge(ts.acquireFenceCV)
		}
		ts.lastAcquireFence = a
	}
	if a.IsFence() && a.IsRelease() {
		ts.lastReleaseFence = a
	}

	// Stage 8: mutex/condvar.
	if a.IsLock() || a.Type == action.CondWait || a.Type == action.CondNotifyOne || a.Type == action.CondNotifyAll {
		e.processMutexCondvar(a)
	}

	if a.Type == action.AtomicRMWR {
		e.submitRMWR(a)
	}

	e.actionsSinceGC++
	if e.cfg.GCInterval > 0 && e.actionsSinceGC >= e.cfg.GCInterval {
		e.GC()
		e.actionsSinceGC = 0
	}
	return nil
}

// commit appends a to the trace and updates the per-thread/per-location
// indexes (§4.2 stage 4).
func (e *Execution) commit(a *action.Action, ts *threadState) {
	e.trace.AddAction(a)
	ts.lastAction = a
	ts.history = append(ts.history, a)

	byLocThread, ok := e.actionsByLocThread[a.Location]
	if !ok {
		byLocThread = make(map[action.ThreadID][]*action.Action)
		e.actionsByLocThread[a.Location] = byLocThread
	}
	byLocThread[a.TID] = append(byLocThread[a.TID], a)

	if a.IsWrite() {
		byThread, ok := e.writesByLocThread[a.Location]
		if !ok {
			byThread = make(map[action.ThreadID][]*action.Action)
			e.writesByLocThread[a.Location] = byThread
		}
		byThread[a.TID] = append(byThread[a.TID], a)
	}
}

// latestHappensBeforeOnThread implements obj_thrd_map's lookup
// (original_source/execution.cc:882,1027): scan tid's actions *at loc*,
// newest to oldest, for the latest one that happens-before ref. Scoping to
// loc (rather than tid's whole commit history) matters whenever tid's
// globally-latest action touches a different location than loc — that
// action would otherwise shadow tid's real same-location predecessor and
// the caller would skip adding an mo-edge or prior-set entry for tid
// entirely.
func (e *Execution) latestHappensBeforeOnThread(tid action.ThreadID, loc action.Location, ref *action.Action) *action.Action {
	byThread := e.actionsByLocThread[loc]
	if byThread == nil {
		return nil
	}
	acts := byThread[tid]
	for i := len(acts) - 1; i >= 0; i-- {
		cand := acts[i]
		if cand.HappensBefore(ref) {
			return cand
		}
	}
	return nil
}

// otherThreads returns every known thread id except tid, for the "for each
// other thread" loops in §4.2.1/§4.2.2.
func (e *Execution) otherThreads(tid action.ThreadID) []action.ThreadID {
	ids := maps.Keys(e.threads)
	out := ids[:0]
	for _, id := range ids {
		if id != tid {
			out = append(out, id)
		}
	}
	return out
}
