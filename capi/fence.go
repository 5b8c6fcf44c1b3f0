package capi

import (
	"github.com/kolkov/c11model/internal/action"
	"github.com/kolkov/c11model/internal/driver"
)

// ThreadFence executes a standalone acquire/release/acq_rel/seq_cst fence
// (§3 Action type "acquire/release fence"), synchronizing the calling
// thread with whatever the memory model connects it to without itself
// reading or writing any location, per §4.2 stage 7.
func ThreadFence(h *driver.Handle, order Order) error {
	act := action.New(h.TID(), action.Fence, order, action.FenceLocation, 0)
	_, err := h.Submit(act)
	return err
}

// SignalFence is a compiler-ordering-only fence (the C11
// atomic_signal_fence): it constrains reordering against the same thread's
// own signal handler but establishes no inter-thread synchronization, so
// unlike ThreadFence it never enters the model's action trace at all — it
// is a pure no-op for a checker that does not model signal handlers.
func SignalFence(Order) {}
