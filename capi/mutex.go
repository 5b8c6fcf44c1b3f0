package capi

import (
	"github.com/kolkov/c11model/internal/action"
	"github.com/kolkov/c11model/internal/driver"
)

// Mutex is the §6 "mutex init/lock/trylock/unlock" wrapper. NewMutex takes
// no lock type and the engine keeps no recursion count: a Lock by the
// current owner succeeds again, and a single Unlock releases the mutex.
type Mutex struct {
	loc action.Location
}

// NewMutex allocates a fresh mutex, unlocked.
func NewMutex() *Mutex {
	return &Mutex{loc: newLocation()}
}

// Lock blocks until the mutex is free and takes ownership. The driver
// handles the "wait for free" part before the Lock action ever reaches the
// engine (§4.2.3), so Submit here only returns once ownership is granted.
func (m *Mutex) Lock(h *driver.Handle) error {
	_, err := h.Submit(action.New(h.TID(), action.Lock, action.Relaxed, m.loc, 0))
	return err
}

// TryLock attempts to take ownership without blocking, returning whether it
// succeeded.
func (m *Mutex) TryLock(h *driver.Handle) (bool, error) {
	v, err := h.Submit(action.New(h.TID(), action.TryLock, action.Relaxed, m.loc, 0))
	return v != 0, err
}

// Unlock releases ownership, waking any thread blocked in Lock on this
// mutex (§4.2.3).
func (m *Mutex) Unlock(h *driver.Handle) error {
	_, err := h.Submit(action.New(h.TID(), action.Unlock, action.Relaxed, m.loc, 0))
	return err
}
