// Package driver realizes §4.6/§5's cooperative scheduling model on top of
// goroutines: each modeled user thread runs on its own goroutine, pinned to
// an unbuffered rendezvous channel, and blocks the instant it submits an
// Action until the driver goroutine — the single "model thread" that owns
// all checker state — has run it through execution.Step and handed back a
// verdict.
//
// Grounded on the teacher's one-RaceContext-per-goroutine model
// (internal/race/goroutine.RaceContext, one state record per concurrently
// running goroutine) generalized from a race-detector's passive
// bookkeeping into an active coordination protocol: no third-party
// scheduling/coroutine library appears anywhere in the retrieval pack, so
// the channel-and-goroutine rendezvous here is plain standard library —
// that is the only idiomatic way Go expresses cooperative thread switching
// without OS threads, and every other concern this package touches
// (logging, config) still goes through the pack's chosen libraries.
package driver

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/kolkov/c11model/internal/action"
	"github.com/kolkov/c11model/internal/analysis"
	"github.com/kolkov/c11model/internal/config"
	"github.com/kolkov/c11model/internal/execution"
	"github.com/kolkov/c11model/internal/fuzzer"
	"github.com/kolkov/c11model/internal/stackdepot"
)

// request is one user thread's pending action, submitted to the driver
// loop and waiting for a verdict.
type request struct {
	tid    action.ThreadID
	action *action.Action
	lockOn *action.Location // non-nil for a Lock whose mutex the driver must check before stepping
	joinOn *action.ThreadID // non-nil for a ThreadJoin whose target the driver must check before stepping
	plain  *plainOp         // non-nil for a non-atomic store_N/load_N submission (§6)
	assert *string          // non-nil for a user assert_bug(msg) call (§6, §7 UserAssert)
	result chan response

	// stackHash is the call stack captured on the submitting goroutine,
	// used for requests with no Action of their own to carry it (plain
	// accesses, asserts). Action-bearing requests carry their hash on
	// action.StackHash instead.
	stackHash uint64
}

// plainOp is a non-atomic store_N/load_N submission: it only needs to
// reach the shadow detector (§3), never the trace/mo pipeline, but still
// has to funnel through the driver's single-writer request channel since
// the shadow table is "driver-serialized" per §5.
type plainOp struct {
	loc    action.Location
	isRead bool
}

// response carries the outcome of stepping an action back to the
// submitting goroutine.
type response struct {
	value uint64
	err   error
}

// pendingCondWait is a thread parked inside capi's Cond.Wait: either still
// asleep in the engine's condWaiters list, or woken and waiting its turn to
// reacquire the mutex it must hold again before Wait can return (§4.2.3
// Scenario 6, "reacquires M, returns from wait with M held").
type pendingCondWait struct {
	req   request
	mutex action.Location
}

// Thread is the user-code side of one modeled thread: a function running
// on its own goroutine that calls Submit at every suspension point (§5).
type Thread func(t *Handle)

// Handle is what user code (or capi, on its behalf) holds to talk to the
// driver from inside a running Thread.
type Handle struct {
	tid action.ThreadID
	d   *Driver
}

// TID returns this handle's thread id.
func (h *Handle) TID() action.ThreadID { return h.tid }

// Submit hands a built Action to the driver and blocks until it has been
// processed, returning the model-chosen value (read result, or the
// action's own value for writes/fences). Lock actions are routed through
// the driver's mutex-ownership check first (§4.2.3's "a Lock only reaches
// processMutexCondvar once the driver already knows the mutex is free").
func (h *Handle) Submit(a *action.Action) (uint64, error) {
	a.TID = h.tid
	a.StackHash = stackdepot.Capture()
	req := request{tid: h.tid, action: a, result: make(chan response)}
	if a.Type == action.Lock {
		loc := a.Location
		req.lockOn = &loc
	}
	if a.Type == action.ThreadJoin {
		target := a.ThreadOperand
		req.joinOn = &target
	}
	h.d.requests <- req
	resp := <-req.result
	return resp.value, resp.err
}

// SubmitPlain records a non-atomic store_N/load_N access (§6) against the
// shadow race detector, without creating an Action or entering the
// trace/mo pipeline (§3). It blocks until the driver has processed it, the
// same as Submit, since the shadow table is driver-serialized (§5).
func (h *Handle) SubmitPlain(loc action.Location, isRead bool) {
	req := request{tid: h.tid, plain: &plainOp{loc: loc, isRead: isRead}, stackHash: stackdepot.Capture(), result: make(chan response)}
	h.d.requests <- req
	<-req.result
}

// AssertBug halts the execution with a §7 UserAssert bug, matching the
// runtime's `assert_bug(msg)` (§6). It blocks until the driver has
// recorded it, the same as Submit, since bug recording touches Execution
// state.
func (h *Handle) AssertBug(msg string) {
	req := request{tid: h.tid, assert: &msg, stackHash: stackdepot.Capture(), result: make(chan response)}
	h.d.requests <- req
	<-req.result
}

// Driver owns the single Execution and arbitrates every user thread's
// requests to it, one at a time, matching §5 "the entire checker state is
// owned by the driver."
type Driver struct {
	exec     *execution.Execution
	fz       fuzzer.Fuzzer
	cfg      config.Config
	log      zerolog.Logger
	requests chan request

	blocked      map[action.ThreadID]request         // threads parked on a held Lock
	condWaiting  map[action.ThreadID]pendingCondWait // threads asleep inside Cond.Wait
	condRelock   map[action.ThreadID]pendingCondWait // woken from Cond.Wait, waiting to reacquire their mutex
	blockedJoins map[action.ThreadID]request         // threads parked in ThreadJoin on an incomplete target
	done         chan struct{}
}

// New constructs a driver around a fresh execution with the given
// configuration, fuzzer, and trace-analysis passes (§4.8, §6).
func New(cfg config.Config, fz fuzzer.Fuzzer, logger zerolog.Logger, passes ...analysis.TracePass) *Driver {
	return &Driver{
		exec:     execution.New(cfg, fz, passes...),
		fz:       fz,
		cfg:      cfg,
		log:      logger,
		requests:     make(chan request),
		blocked:      make(map[action.ThreadID]request),
		condWaiting:  make(map[action.ThreadID]pendingCondWait),
		condRelock:   make(map[action.ThreadID]pendingCondWait),
		blockedJoins: make(map[action.ThreadID]request),
		done:         make(chan struct{}),
	}
}

// Spawn starts fn on a new goroutine as thread tid, wired to this driver.
// Thread 1 (the program's entry thread) is expected to be spawned first;
// every other thread is created by a ThreadCreate submitted from within a
// running Thread.
func (d *Driver) Spawn(tid action.ThreadID, fn Thread) {
	go fn(&Handle{tid: tid, d: d})
}

// Run pumps driver requests until every thread has finished, deadlocked, or
// an assertion halted the execution, then runs the registered
// trace-analysis passes. It returns only an error (a failed step or ctx
// expiring); the accumulated bugs are read afterwards through Bugs.
//
// ctx lets a caller bound the run with a timeout; there is no timeout at
// the core engine level (§5), this is purely the harness's watchdog.
func (d *Driver) Run(ctx context.Context) error {
	defer close(d.done)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case req := <-d.requests:
			if err := d.handle(req); err != nil {
				return err
			}
		default:
			if asserted, msg := d.exec.Asserted(); asserted {
				d.log.Error().Str("assert", msg).Msg("execution halted")
				d.exec.RunPasses()
				return nil
			}
			if d.exec.IsComplete() {
				if d.exec.IsDeadlocked() {
					d.log.Error().Msg("deadlock: no thread runnable")
					d.exec.RecordDeadlock()
				}
				d.exec.RunPasses()
				return nil
			}
			// No request pending and the execution isn't finished: block
			// for the next one (covers the steady-state wait between
			// bursts of concurrent submissions).
			select {
			case <-ctx.Done():
				return ctx.Err()
			case req := <-d.requests:
				if err := d.handle(req); err != nil {
					return err
				}
			}
		}
	}
}

func (d *Driver) handle(req request) error {
	if req.assert != nil {
		d.exec.SetAssert(*req.assert, req.stackHash)
		req.result <- response{}
		return nil
	}
	if req.plain != nil {
		if req.plain.isRead {
			d.exec.RecordPlainRead(req.plain.loc, req.tid, req.stackHash)
		} else {
			d.exec.RecordPlainWrite(req.plain.loc, req.tid, req.stackHash)
		}
		req.result <- response{}
		return nil
	}
	if req.lockOn != nil {
		if owner, held := d.exec.MutexOwner(*req.lockOn); held && owner != req.tid {
			d.exec.RegisterLockWait(req.tid, *req.lockOn)
			d.blocked[req.tid] = req
			d.wakeBlockedIfFree(*req.lockOn)
			return nil
		}
	}
	if req.joinOn != nil && !d.exec.IsThreadComplete(*req.joinOn) {
		// §4.2.4 ThreadJoin "enabled only when the joined thread is
		// complete": defer stepping (and therefore committing) the Join
		// action entirely until the target's ThreadFinish wakes it.
		d.blockedJoins[req.tid] = req
		return nil
	}

	if req.action.Type == action.CondWait {
		mutexLoc := action.Location(req.action.Value)
		v, err := d.exec.Step(req.action)
		if err != nil {
			req.result <- response{err: err}
			return fmt.Errorf("driver: step thread %d: %w", req.tid, err)
		}
		if d.exec.IsSleeping(req.tid) {
			// §4.2.3 Wait: genuinely asleep until a notify wakes it; Submit
			// stays blocked until resumeCondWaiters reacquires the mutex.
			d.condWaiting[req.tid] = pendingCondWait{req: req, mutex: mutexLoc}
			return nil
		}
		// ShouldWait declined (spurious-wakeup modeling, §8): the mutex was
		// never released, so Wait returns immediately still holding it.
		req.result <- response{value: v}
		d.resumeCondWaiters()
		d.resumeJoins()
		return nil
	}

	v, err := d.exec.Step(req.action)
	req.result <- response{value: v, err: err}
	if err != nil {
		return fmt.Errorf("driver: step thread %d: %w", req.tid, err)
	}
	if req.action.Type == action.Unlock {
		d.wakeBlockedIfFree(req.action.Location)
	}
	d.resumeCondWaiters()
	if req.action.Type == action.ThreadFinish {
		d.resumeJoins()
	}
	return nil
}

// resumeJoins re-dispatches every ThreadJoin the driver deferred in handle
// whose target has since finished (§4.2.4).
func (d *Driver) resumeJoins() {
	for tid, req := range d.blockedJoins {
		if !d.exec.IsThreadComplete(*req.joinOn) {
			continue
		}
		delete(d.blockedJoins, tid)
		v, err := d.exec.Step(req.action)
		req.result <- response{value: v, err: err}
	}
}

// wakeBlockedIfFree re-dispatches a parked Lock request, or a Cond.Wait
// reacquiring its mutex, once that mutex has become free — completing the
// deferred Step the driver withheld in handle or resumeCondWaiters.
func (d *Driver) wakeBlockedIfFree(loc action.Location) {
	for tid, req := range d.blocked {
		if *req.lockOn != loc {
			continue
		}
		if _, held := d.exec.MutexOwner(loc); held {
			continue
		}
		delete(d.blocked, tid)
		v, err := d.exec.Step(req.action)
		req.result <- response{value: v, err: err}
		return
	}
	for tid, pcw := range d.condRelock {
		if pcw.mutex != loc {
			continue
		}
		if _, held := d.exec.MutexOwner(loc); held {
			continue
		}
		delete(d.condRelock, tid)
		d.reacquireAfterWait(tid, pcw)
		return
	}
}

// resumeCondWaiters checks every thread parked in Cond.Wait for a wakeup
// (from a notify this same Step may just have processed, or from the
// §4.2 step-2 "wake sleepers" pass) and, once awake, attempts the mutex
// reacquisition Wait must complete before returning (§4.2.3 Scenario 6).
func (d *Driver) resumeCondWaiters() {
	for tid, pcw := range d.condWaiting {
		if d.exec.IsSleeping(tid) {
			continue
		}
		delete(d.condWaiting, tid)
		if owner, held := d.exec.MutexOwner(pcw.mutex); held && owner != tid {
			d.condRelock[tid] = pcw
			continue
		}
		d.reacquireAfterWait(tid, pcw)
	}
}

// reacquireAfterWait commits the Lock action that completes a woken
// Cond.Wait, then finally unblocks the goroutine that has been parked in
// Submit since it called Wait.
func (d *Driver) reacquireAfterWait(tid action.ThreadID, pcw pendingCondWait) {
	lockAct := action.New(tid, action.Lock, action.Relaxed, pcw.mutex, 0)
	lockAct.StackHash = pcw.req.action.StackHash
	v, err := d.exec.Step(lockAct)
	pcw.req.result <- response{value: v, err: err}
}

// Bugs exposes the accumulated bug list once Run has returned.
func (d *Driver) Bugs() []string {
	var out []string
	for _, b := range d.exec.Bugs().Bugs() {
		out = append(out, b.Error())
	}
	return out
}
