package report_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kolkov/c11model/internal/report"
)

func TestBugUnwrapsToSentinel(t *testing.T) {
	l := report.NewList()
	l.Add(report.Deadlock, 1, 5, 0, "thread %d stuck", 1)
	require.Len(t, l.Bugs(), 1)
	assert.True(t, errors.Is(l.Bugs()[0], report.ErrDeadlock))
	assert.False(t, errors.Is(l.Bugs()[0], report.ErrDataRace))
}

// TestDataRaceDedupedByStack models two reports carrying the same caller
// stack hash, as happens when the same racing call site fires on repeated
// executions — AddRace must fold them into one entry.
func TestDataRaceDedupedByStack(t *testing.T) {
	l := report.NewList()
	const callSite = 0xCAFE
	l.AddRace(1, 1, callSite, 0xF00D, "race on x")
	l.AddRace(1, 2, callSite, 0xF00D, "race on x")
	assert.Len(t, l.Bugs(), 1, "identical call sites must dedupe to one race report")
}

func TestDataRaceNotDedupedAcrossDistinctStacks(t *testing.T) {
	l := report.NewList()
	l.AddRace(1, 1, 0xCAFE, 0xF00D, "race on x")
	l.AddRace(2, 2, 0xBEEF, 0xF00D, "race on y")
	assert.Len(t, l.Bugs(), 2, "distinct call sites must not be folded together")
}

func TestDataRaceRecordsBothStacks(t *testing.T) {
	l := report.NewList()
	l.AddRace(1, 1, 0xCAFE, 0xF00D, "race on x")
	require.Len(t, l.Bugs(), 1)
	assert.EqualValues(t, 0xCAFE, l.Bugs()[0].StackHash)
	assert.EqualValues(t, 0xF00D, l.Bugs()[0].OtherStackHash)
}

func TestNonRaceBugsAreNotDeduped(t *testing.T) {
	l := report.NewList()
	l.Add(report.UserAssert, 1, 1, 0xCAFE, "boom")
	l.Add(report.UserAssert, 1, 2, 0xCAFE, "boom")
	assert.Len(t, l.Bugs(), 2)
}

func TestEmptyListReportsEmpty(t *testing.T) {
	l := report.NewList()
	assert.True(t, l.Empty())
	l.Add(report.MOInconsistency, 1, 1, 0, "no candidate write")
	assert.False(t, l.Empty())
}
