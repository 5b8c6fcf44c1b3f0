package capi_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kolkov/c11model/capi"
	"github.com/kolkov/c11model/internal/config"
	"github.com/kolkov/c11model/internal/driver"
	"github.com/kolkov/c11model/internal/fuzzer"
	"github.com/kolkov/c11model/internal/runner"
)

// runOnce explores exactly one execution of prog, failing the test outright
// on a harness error. prog runs entirely on goroutines the driver spawns,
// never on this one, so every model-level failure inside it must surface
// through capi.AssertBug into the returned bug list rather than through
// testify — calling require/assert off the test goroutine is invalid.
func runOnce(t *testing.T, seed uint64, prog runner.Program) []string {
	t.Helper()
	cfg := config.Default()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	results := runner.RunMany(ctx, cfg, 1,
		func(int) fuzzer.Fuzzer { return fuzzer.NewRandomFuzzer(seed, seed+1) },
		prog,
		nil,
	)
	require.Len(t, results, 1)
	require.NoError(t, results[0].Err)
	return results[0].Bugs
}

func must(h *driver.Handle, err error) {
	if err != nil {
		capi.AssertBug(h, err.Error())
	}
}

// TestMessagePassingAlwaysObservesPublishedValue exercises §8 Scenario 2
// end to end through the public atomic wrapper: a release store must make
// the payload visible to an acquiring reader in every explored run.
func TestMessagePassingAlwaysObservesPublishedValue(t *testing.T) {
	for seed := uint64(0); seed < 20; seed++ {
		var data, flag capi.Atomic
		prog := func(d *driver.Driver) {
			capi.RunMain(d, func(h *driver.Handle) {
				must(h, data.Init(h, 0, 64))
				must(h, flag.Init(h, 0, 64))

				reader, err := capi.Go(d, h, func(h *driver.Handle) {
					for {
						v, err := flag.Load(h, capi.Acquire)
						if err != nil {
							capi.AssertBug(h, err.Error())
							return
						}
						if v != 0 {
							break
						}
						must(h, capi.Yield(h))
					}
					r, err := data.Load(h, capi.Relaxed)
					if err != nil {
						capi.AssertBug(h, err.Error())
						return
					}
					if r != 42 {
						capi.AssertBug(h, "message passing violated")
					}
				})
				if err != nil {
					capi.AssertBug(h, err.Error())
					return
				}

				must(h, data.Store(h, capi.Relaxed, 42))
				must(h, flag.Store(h, capi.Release, 1))
				must(h, capi.Join(h, reader))
			})
		}
		bugs := runOnce(t, seed, prog)
		assert.Empty(t, bugs, "seed %d", seed)
	}
}

// TestMutexExclusionCounterIsExact exercises §8 Scenario 3: two threads
// incrementing a counter under the same mutex must never race and must
// always leave the counter at exactly 2.
func TestMutexExclusionCounterIsExact(t *testing.T) {
	var counter capi.Atomic
	m := capi.NewMutex()

	increment := func(h *driver.Handle) {
		must(h, m.Lock(h))
		v, err := counter.Load(h, capi.Relaxed)
		if err != nil {
			capi.AssertBug(h, err.Error())
			return
		}
		must(h, counter.Store(h, capi.Relaxed, v+1))
		must(h, m.Unlock(h))
	}

	prog := func(d *driver.Driver) {
		capi.RunMain(d, func(h *driver.Handle) {
			must(h, counter.Init(h, 0, 64))
			t2, err := capi.Go(d, h, increment)
			if err != nil {
				capi.AssertBug(h, err.Error())
				return
			}
			increment(h)
			must(h, capi.Join(h, t2))

			final, err := counter.Load(h, capi.Relaxed)
			if err != nil {
				capi.AssertBug(h, err.Error())
				return
			}
			if final != 2 {
				capi.AssertBug(h, "counter not exactly 2")
			}
		})
	}

	bugs := runOnce(t, 7, prog)
	assert.Empty(t, bugs)
}

// TestCompareExchangeChainsSecondAfterFirst exercises §8 Scenario 4: a
// second CAS whose expected value equals the first's new value only
// succeeds when chained after it, never independently.
func TestCompareExchangeChainsSecondAfterFirst(t *testing.T) {
	for seed := uint64(0); seed < 20; seed++ {
		var x capi.Atomic
		prog := func(d *driver.Driver) {
			capi.RunMain(d, func(h *driver.Handle) {
				must(h, x.Init(h, 0, 64))

				var firstOK bool
				t2, err := capi.Go(d, h, func(h *driver.Handle) {
					_, ok, err := x.CompareExchangeStrong(h, capi.SeqCst, capi.SeqCst, 0, 1)
					if err != nil {
						capi.AssertBug(h, err.Error())
						return
					}
					firstOK = ok
				})
				if err != nil {
					capi.AssertBug(h, err.Error())
					return
				}

				_, secondOK, err := x.CompareExchangeStrong(h, capi.SeqCst, capi.SeqCst, 1, 2)
				if err != nil {
					capi.AssertBug(h, err.Error())
					return
				}
				must(h, capi.Join(h, t2))

				if firstOK && secondOK {
					final, err := x.Load(h, capi.SeqCst)
					if err != nil {
						capi.AssertBug(h, err.Error())
						return
					}
					if final != 2 {
						capi.AssertBug(h, "CAS chain broken")
					}
				}
			})
		}
		bugs := runOnce(t, seed, prog)
		assert.Empty(t, bugs, "seed %d", seed)
	}
}

// TestCondWaitBlocksUntilSignal exercises §8 Scenario 6: a waiter must not
// proceed past Wait until the holder signals and releases the mutex.
func TestCondWaitBlocksUntilSignal(t *testing.T) {
	m := capi.NewMutex()
	c := capi.NewCond()
	var ready capi.Atomic

	prog := func(d *driver.Driver) {
		capi.RunMain(d, func(h *driver.Handle) {
			must(h, ready.Init(h, 0, 64))

			waiter, err := capi.Go(d, h, func(h *driver.Handle) {
				must(h, m.Lock(h))
				for {
					v, err := ready.Load(h, capi.Relaxed)
					if err != nil {
						capi.AssertBug(h, err.Error())
						return
					}
					if v != 0 {
						break
					}
					must(h, c.Wait(h, m))
				}
				must(h, m.Unlock(h))
			})
			if err != nil {
				capi.AssertBug(h, err.Error())
				return
			}

			must(h, m.Lock(h))
			must(h, ready.Store(h, capi.Relaxed, 1))
			must(h, c.Signal(h))
			must(h, m.Unlock(h))
			must(h, capi.Join(h, waiter))
		})
	}

	bugs := runOnce(t, 11, prog)
	assert.Empty(t, bugs)
}

// TestPlainAccessRacesWithoutSynchronization shows an unsynchronized plain
// store/store pair across two threads is flagged by the shadow detector,
// the counterpart to TestPlainAccessGuardedByMutexNoRace below.
func TestPlainAccessRacesWithoutSynchronization(t *testing.T) {
	var shared int
	loc := capi.NewPlain()

	prog := func(d *driver.Driver) {
		capi.RunMain(d, func(h *driver.Handle) {
			t2, err := capi.Go(d, h, func(h *driver.Handle) {
				loc.RecordStore(h)
				shared = 2
			})
			if err != nil {
				capi.AssertBug(h, err.Error())
				return
			}
			loc.RecordStore(h)
			shared = 1
			must(h, capi.Join(h, t2))
		})
	}

	bugs := runOnce(t, 5, prog)
	_ = shared
	assert.NotEmpty(t, bugs, "two unsynchronized plain stores to the same location must race")
}

// TestPlainAccessGuardedByMutexNoRace shows the same pair of plain stores
// never races once both threads hold the same mutex around them.
func TestPlainAccessGuardedByMutexNoRace(t *testing.T) {
	var shared int
	loc := capi.NewPlain()
	m := capi.NewMutex()

	write := func(h *driver.Handle, value int) {
		must(h, m.Lock(h))
		loc.RecordStore(h)
		shared = value
		must(h, m.Unlock(h))
	}

	prog := func(d *driver.Driver) {
		capi.RunMain(d, func(h *driver.Handle) {
			t2, err := capi.Go(d, h, func(h *driver.Handle) { write(h, 2) })
			if err != nil {
				capi.AssertBug(h, err.Error())
				return
			}
			write(h, 1)
			must(h, capi.Join(h, t2))
		})
	}

	bugs := runOnce(t, 6, prog)
	_ = shared
	assert.Empty(t, bugs, "mutex-guarded plain stores must not race")
}

// TestMutexDetectsLockOrderDeadlock exercises §8 Scenario 5: reversed lock
// order between two threads must be reported as a deadlock.
func TestMutexDetectsLockOrderDeadlock(t *testing.T) {
	a := capi.NewMutex()
	b := capi.NewMutex()

	prog := func(d *driver.Driver) {
		capi.RunMain(d, func(h *driver.Handle) {
			_, err := capi.Go(d, h, func(h *driver.Handle) {
				must(h, b.Lock(h))
				must(h, a.Lock(h))
				must(h, a.Unlock(h))
				must(h, b.Unlock(h))
			})
			if err != nil {
				capi.AssertBug(h, err.Error())
				return
			}

			must(h, a.Lock(h))
			must(h, b.Lock(h))
			must(h, b.Unlock(h))
			must(h, a.Unlock(h))
		})
	}

	found := false
	for seed := uint64(0); seed < 40 && !found; seed++ {
		if bugs := runOnce(t, seed, prog); len(bugs) > 0 {
			found = true
		}
	}
	assert.True(t, found, "at least one interleaving must deadlock")
}
