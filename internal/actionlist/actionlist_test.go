package actionlist_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kolkov/c11model/internal/action"
	"github.com/kolkov/c11model/internal/actionlist"
)

func mk(seq action.SeqNum) *action.Action {
	a := action.New(1, action.AtomicWrite, action.Relaxed, 0x10, 0)
	a.Seq = seq
	return a
}

func seqsOf(l *actionlist.List) []action.SeqNum {
	var out []action.SeqNum
	for _, a := range l.All() {
		out = append(out, a.Seq)
	}
	return out
}

func TestAddActionKeepsIncreasingOrder(t *testing.T) {
	l := actionlist.New()
	require.True(t, l.AddAction(mk(1)))
	require.True(t, l.AddAction(mk(2)))
	require.True(t, l.AddAction(mk(3)))
	assert.Equal(t, []action.SeqNum{1, 2, 3}, seqsOf(l))
}

func TestAddActionOutOfOrderBackdatedInsert(t *testing.T) {
	l := actionlist.New()
	require.True(t, l.AddAction(mk(10)))
	require.True(t, l.AddAction(mk(30)))
	require.True(t, l.AddAction(mk(20))) // back-dated, belongs between 10 and 30
	assert.Equal(t, []action.SeqNum{10, 20, 30}, seqsOf(l))
}

func TestAddActionDuplicateSeqRejected(t *testing.T) {
	l := actionlist.New()
	require.True(t, l.AddAction(mk(5)))
	assert.False(t, l.AddAction(mk(5)))
}

func TestRemoveActionThenListEmptyAndCountersZero(t *testing.T) {
	l := actionlist.New()
	l.AddAction(mk(1))
	require.True(t, l.RemoveAction(1))
	assert.Equal(t, 0, l.Len())
	assert.Empty(t, l.All())
	assert.False(t, l.Begin().Valid())
}

func TestRemoveActionMissingIsNoop(t *testing.T) {
	l := actionlist.New()
	assert.False(t, l.RemoveAction(42))
}

func TestRemoveMiddleActionPreservesOrder(t *testing.T) {
	l := actionlist.New()
	l.AddAction(mk(1))
	l.AddAction(mk(2))
	l.AddAction(mk(3))
	require.True(t, l.RemoveAction(2))
	assert.Equal(t, []action.SeqNum{1, 3}, seqsOf(l))
	assert.Equal(t, 2, l.Len())
}

func TestGetReturnsIndexedAction(t *testing.T) {
	l := actionlist.New()
	a := mk(7)
	l.AddAction(a)
	got, ok := l.Get(7)
	require.True(t, ok)
	assert.Same(t, a, got)

	_, ok = l.Get(8)
	assert.False(t, ok)
}

func TestManyInsertsAndRandomRemovalsStayOrdered(t *testing.T) {
	l := actionlist.New()
	seqs := []action.SeqNum{500, 10, 9999, 1, 250, 4096, 65536, 70000}
	for _, s := range seqs {
		require.True(t, l.AddAction(mk(s)))
	}
	require.True(t, l.RemoveAction(250))
	require.True(t, l.RemoveAction(65536))

	got := seqsOf(l)
	for i := 1; i < len(got); i++ {
		assert.Less(t, got[i-1], got[i])
	}
	assert.Len(t, got, len(seqs)-2)
}
