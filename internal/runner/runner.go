// Package runner explores several independent executions concurrently
// (§6 "max executions" / "no-fork"): each Execution is internally
// single-threaded and cooperative per §5, but disjoint executions share
// nothing, so RunMany lets Go's own concurrency stand in for the original's
// sequential fork/snapshot loop — not the stateful hashing-based model
// checking that §1's Non-goals rule out, since no state is shared or
// deduplicated across runs.
package runner

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/kolkov/c11model/internal/analysis"
	"github.com/kolkov/c11model/internal/config"
	"github.com/kolkov/c11model/internal/driver"
	"github.com/kolkov/c11model/internal/fuzzer"
)

// Program is one user program under test: given a fresh driver, it spawns
// every thread and returns once they are all wired up (Run then pumps
// them to completion).
type Program func(d *driver.Driver)

// Result is the outcome of exploring one execution.
type Result struct {
	Index int
	Bugs  []string
	Err   error
}

// RunMany explores n independent executions of prog, each under its own
// Fuzzer instance (fuzzerForRun lets the caller vary the seed per run,
// e.g. for seed-sequence replay), bounding concurrency to cfg.Workers via
// a weighted semaphore. If cfg.NoFork is set, executions run sequentially
// on the calling goroutine instead — the "no-fork... keeps state
// in-process" fallback path §6 describes, reinterpreted here as "don't
// bother with extra goroutines" since this port never actually forks the
// process.
func RunMany(ctx context.Context, cfg config.Config, n int, fuzzerForRun func(i int) fuzzer.Fuzzer, prog Program, passesForRun func(i int) []analysis.TracePass) []Result {
	results := make([]Result, n)

	run := func(i int) {
		fz := fuzzerForRun(i)
		var passes []analysis.TracePass
		if passesForRun != nil {
			passes = passesForRun(i)
		}
		d := driver.New(cfg, fz, noopLogger(), passes...)
		prog(d)
		err := d.Run(ctx)
		results[i] = Result{Index: i, Bugs: d.Bugs(), Err: err}
	}

	if cfg.NoFork || cfg.Workers <= 1 {
		for i := 0; i < n; i++ {
			run(i)
		}
		return results
	}

	sem := semaphore.NewWeighted(int64(cfg.Workers))
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		if err := sem.Acquire(ctx, 1); err != nil {
			results[i] = Result{Index: i, Err: fmt.Errorf("runner: acquire worker slot: %w", err)}
			continue
		}
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			defer sem.Release(1)
			run(i)
		}(i)
	}
	wg.Wait()
	return results
}
