package runner_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kolkov/c11model/internal/action"
	"github.com/kolkov/c11model/internal/config"
	"github.com/kolkov/c11model/internal/driver"
	"github.com/kolkov/c11model/internal/fuzzer"
	"github.com/kolkov/c11model/internal/runner"
)

// trivialProgram spawns the single entry thread, which finishes
// immediately once the driver starts pumping requests, so the driver's
// completion check has something to converge on. Program implementations
// must only spawn and return — not wait on the spawned goroutines, since
// the driver loop that unblocks them hasn't started yet.
func trivialProgram(d *driver.Driver) {
	d.Spawn(1, func(h *driver.Handle) {
		_, _ = h.Submit(action.New(0, action.ThreadFinish, action.Relaxed, action.FenceLocation, 0))
	})
}

func TestRunManySequential(t *testing.T) {
	cfg := config.Default()
	cfg.NoFork = true
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	results := runner.RunMany(ctx, cfg, 3,
		func(i int) fuzzer.Fuzzer { return fuzzer.NewRandomFuzzer(uint64(i), 42) },
		trivialProgram,
		nil,
	)
	require.Len(t, results, 3)
	for _, r := range results {
		assert.NoError(t, r.Err)
	}
}

func TestRunManyParallel(t *testing.T) {
	cfg := config.Default()
	cfg.Workers = 4
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	results := runner.RunMany(ctx, cfg, 4,
		func(i int) fuzzer.Fuzzer { return fuzzer.NewRandomFuzzer(uint64(i), 7) },
		trivialProgram,
		nil,
	)
	require.Len(t, results, 4)
	for _, r := range results {
		assert.NoError(t, r.Err)
	}
}
