package fuzzer

import (
	"math/rand/v2"

	"github.com/kolkov/c11model/internal/action"
)

type randSource struct{ r *rand.Rand }

func (s randSource) Intn(n int) int { return s.r.IntN(n) }

// RandomFuzzer conforms to Fuzzer as the "simple fuzzer" baseline described
// in §4.8: it picks the write a read observes and the waiter a notify-one
// wakes uniformly at random, wakes a sleeping thread with probability 1/4
// on each action, and always lets a thread sleep or wait. No
// example repo in the retrieval pack pulls in a third-party randomness
// library for this kind of use, so math/rand/v2 is used directly.
type RandomFuzzer struct {
	src Source
}

// NewRandomFuzzer returns a RandomFuzzer seeded from a fresh PCG source.
func NewRandomFuzzer(seed1, seed2 uint64) *RandomFuzzer {
	return &RandomFuzzer{src: randSource{r: rand.New(rand.NewPCG(seed1, seed2))}}
}

// NewRandomFuzzerFrom builds a RandomFuzzer over a caller-supplied source,
// for deterministic tests.
func NewRandomFuzzerFrom(src Source) *RandomFuzzer {
	return &RandomFuzzer{src: src}
}

func (f *RandomFuzzer) SelectWrite(_ *action.Action, rfSet []*action.Action) *action.Action {
	return rfSet[f.src.Intn(len(rfSet))]
}

func (f *RandomFuzzer) SelectNotify(waiters []action.ThreadID) action.ThreadID {
	return waiters[f.src.Intn(len(waiters))]
}

func (f *RandomFuzzer) ShouldSleep(*action.Action) bool { return true }

func (f *RandomFuzzer) ShouldWake(_ action.ThreadID, _ *action.Action) bool {
	return f.src.Intn(4) == 0
}

func (f *RandomFuzzer) ShouldWait(*action.Action) bool { return true }
