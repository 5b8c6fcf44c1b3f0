package capi

import (
	"github.com/kolkov/c11model/internal/action"
	"github.com/kolkov/c11model/internal/driver"
)

// Cond is the §6 condition-variable wrapper: init, wait, signal and
// broadcast. There is no timed wait.
type Cond struct {
	loc action.Location
}

// NewCond allocates a fresh condition variable.
func NewCond() *Cond {
	return &Cond{loc: newLocation()}
}

// Wait releases m, waits for a Signal/Broadcast (or a modeled spurious
// wakeup), then reacquires m before returning — the driver withholds the
// response until both have happened (§4.2.3, §8 Scenario 6).
func (c *Cond) Wait(h *driver.Handle, m *Mutex) error {
	act := action.New(h.TID(), action.CondWait, action.Relaxed, c.loc, uint64(m.loc))
	_, err := h.Submit(act)
	return err
}

// Signal wakes one waiter, chosen by the fuzzer (§4.8 SelectNotify).
func (c *Cond) Signal(h *driver.Handle) error {
	_, err := h.Submit(action.New(h.TID(), action.CondNotifyOne, action.Relaxed, c.loc, 0))
	return err
}

// Broadcast wakes every waiter.
func (c *Cond) Broadcast(h *driver.Handle) error {
	_, err := h.Submit(action.New(h.TID(), action.CondNotifyAll, action.Relaxed, c.loc, 0))
	return err
}
