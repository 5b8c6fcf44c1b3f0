package scheduler_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kolkov/c11model/internal/action"
	"github.com/kolkov/c11model/internal/scheduler"
)

func TestNewThreadIsReady(t *testing.T) {
	s := scheduler.New()
	s.AddThread(1)
	assert.True(t, s.IsEnabled(1))
}

func TestBlockThenWake(t *testing.T) {
	s := scheduler.New()
	s.AddThread(1)
	s.Block(1)
	assert.False(t, s.IsEnabled(1))
	s.Wake(1)
	assert.True(t, s.IsEnabled(1))
}

func TestSelectNextPrefersPinnedWhenReady(t *testing.T) {
	s := scheduler.New()
	s.AddThread(1)
	s.AddThread(2)
	tid, ok := s.SelectNext(2, nil)
	require.True(t, ok)
	assert.EqualValues(t, 2, tid)
}

func TestSelectNextFallsBackWhenPinnedNotReady(t *testing.T) {
	s := scheduler.New()
	s.AddThread(1)
	s.AddThread(2)
	s.Block(2)
	tid, ok := s.SelectNext(2, nil)
	require.True(t, ok)
	assert.EqualValues(t, 1, tid)
}

func TestSelectNextUsesFuzzerPick(t *testing.T) {
	s := scheduler.New()
	s.AddThread(1)
	s.AddThread(2)
	s.AddThread(3)
	tid, ok := s.SelectNext(0, func(ready []action.ThreadID) action.ThreadID {
		return ready[len(ready)-1]
	})
	require.True(t, ok)
	assert.EqualValues(t, 3, tid)
}

func TestNoReadyThreadReturnsFalse(t *testing.T) {
	s := scheduler.New()
	s.AddThread(1)
	s.Block(1)
	_, ok := s.SelectNext(0, nil)
	assert.False(t, ok)
}

func TestSleepingListPreservesRegistrationOrder(t *testing.T) {
	s := scheduler.New()
	s.AddThread(1)
	s.AddThread(2)
	s.AddThread(3)
	s.Sleep(2)
	s.Sleep(1)
	assert.Equal(t, []action.ThreadID{1, 2}, s.Sleeping())
}

func TestAllFinishedOrBlockedDistinguishesDeadlockFromCompletion(t *testing.T) {
	s := scheduler.New()
	s.AddThread(1)
	s.AddThread(2)
	s.RemoveThread(1)
	s.RemoveThread(2)
	assert.True(t, s.AllFinishedOrBlocked())
	assert.False(t, s.AnyBlocked())

	s2 := scheduler.New()
	s2.AddThread(1)
	s2.AddThread(2)
	s2.Block(1)
	s2.Block(2)
	assert.True(t, s2.AllFinishedOrBlocked())
	assert.True(t, s2.AnyBlocked())
}
