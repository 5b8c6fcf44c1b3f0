package capi

import (
	"github.com/kolkov/c11model/internal/action"
	"github.com/kolkov/c11model/internal/driver"
)

// Atomic is an instrumented atomic object of width 8/16/32/64 bits (§6).
// The zero value is not usable; call Init from the thread that first
// publishes it, exactly like c11tester's atomic_init.
type Atomic struct {
	loc   action.Location
	width uint8
}

// Init records the atomic's initializing write. It corresponds to
// atomic_init / the AtomicInit action type (§3) and must run exactly once,
// before any other thread can observe loc.
func (a *Atomic) Init(h *driver.Handle, value uint64, width uint8) error {
	a.loc = newLocation()
	a.width = width
	_, err := h.Submit(action.New(h.TID(), action.AtomicInit, action.Relaxed, a.loc, value))
	return err
}

// Load performs an atomic load at the given memory order, returning the
// value the model checker chose this read should observe.
func (a *Atomic) Load(h *driver.Handle, order Order) (uint64, error) {
	act := action.New(h.TID(), action.AtomicRead, order, a.loc, 0)
	act.Width = a.width
	return h.Submit(act)
}

// Store performs an atomic store at the given memory order.
func (a *Atomic) Store(h *driver.Handle, order Order, value uint64) error {
	act := action.New(h.TID(), action.AtomicWrite, order, a.loc, value)
	act.Width = a.width
	_, err := h.Submit(act)
	return err
}

// Exchange atomically replaces the value with newVal and returns the
// previous one, as an RMW whose written value does not depend on what was
// read.
func (a *Atomic) Exchange(h *driver.Handle, order Order, newVal uint64) (uint64, error) {
	return a.rmw(h, order, func(uint64) uint64 { return newVal })
}

// FetchAdd, FetchSub, FetchAnd, FetchOr, FetchXor implement the
// corresponding fetch_* RMWs (§6), each returning the pre-operation value.
func (a *Atomic) FetchAdd(h *driver.Handle, order Order, operand uint64) (uint64, error) {
	return a.rmw(h, order, func(old uint64) uint64 { return old + operand })
}

func (a *Atomic) FetchSub(h *driver.Handle, order Order, operand uint64) (uint64, error) {
	return a.rmw(h, order, func(old uint64) uint64 { return old - operand })
}

func (a *Atomic) FetchAnd(h *driver.Handle, order Order, operand uint64) (uint64, error) {
	return a.rmw(h, order, func(old uint64) uint64 { return old & operand })
}

func (a *Atomic) FetchOr(h *driver.Handle, order Order, operand uint64) (uint64, error) {
	return a.rmw(h, order, func(old uint64) uint64 { return old | operand })
}

func (a *Atomic) FetchXor(h *driver.Handle, order Order, operand uint64) (uint64, error) {
	return a.rmw(h, order, func(old uint64) uint64 { return old ^ operand })
}

// rmw performs the two-half RMWR/RMW protocol common to every
// unconditional read-modify-write: submit the read half, compute the new
// value from whatever the model chose to observe, then submit the write
// half so the engine can splice it into modification order right after the
// value it read (§4.2, "finishRMW").
func (a *Atomic) rmw(h *driver.Handle, order Order, next func(old uint64) uint64) (uint64, error) {
	rAct := action.New(h.TID(), action.AtomicRMWR, order, a.loc, 0)
	rAct.Width = a.width
	old, err := h.Submit(rAct)
	if err != nil {
		return 0, err
	}
	wAct := action.New(h.TID(), action.AtomicRMW, order, a.loc, next(old))
	wAct.Width = a.width
	if _, err := h.Submit(wAct); err != nil {
		return 0, err
	}
	return old, nil
}

// CompareExchangeStrong implements compare_exchange_strong: if the value
// the model chooses for the read half equals expected, it commits a write
// of desired (AtomicRMW, §4.2) and reports success; otherwise it closes the
// read as a plain observation (AtomicRMWC) and reports the actual value
// observed, per §8 Scenario 4's "the other's failing branch records a
// rmwc, not an rmw."
func (a *Atomic) CompareExchangeStrong(h *driver.Handle, successOrder, failureOrder Order, expected, desired uint64) (actual uint64, ok bool, err error) {
	return a.compareExchange(h, successOrder, failureOrder, expected, desired)
}

// CompareExchangeWeak is identical to CompareExchangeStrong here: this
// model never injects the spurious failures the C++ standard permits a
// weak CAS on some platforms, matching the original's treatment of weak
// and strong CAS as the same primitive at the model-checker level.
func (a *Atomic) CompareExchangeWeak(h *driver.Handle, successOrder, failureOrder Order, expected, desired uint64) (actual uint64, ok bool, err error) {
	return a.compareExchange(h, successOrder, failureOrder, expected, desired)
}

func (a *Atomic) compareExchange(h *driver.Handle, successOrder, failureOrder Order, expected, desired uint64) (uint64, bool, error) {
	rAct := action.New(h.TID(), action.AtomicRMWR, successOrder, a.loc, 0)
	rAct.Width = a.width
	observed, err := h.Submit(rAct)
	if err != nil {
		return 0, false, err
	}
	if observed != expected {
		cAct := action.New(h.TID(), action.AtomicRMWC, failureOrder, a.loc, observed)
		cAct.Width = a.width
		if _, err := h.Submit(cAct); err != nil {
			return observed, false, err
		}
		return observed, false, nil
	}
	wAct := action.New(h.TID(), action.AtomicRMW, successOrder, a.loc, desired)
	wAct.Width = a.width
	if _, err := h.Submit(wAct); err != nil {
		return observed, false, err
	}
	return observed, true, nil
}
