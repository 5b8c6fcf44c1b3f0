package clock_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kolkov/c11model/internal/clock"
)

func TestMergeIsIdempotent(t *testing.T) {
	v := clock.New()
	v.Set(0, 5)
	v.Set(2, 9)

	snapshot := v.Clone()
	require.False(t, v.Merge(snapshot), "merging with an identical clock must report no growth")
	assert.True(t, cmp.Equal(snapshot, v, cmp.AllowUnexported(clock.Vector{})))
}

func TestMergeTwiceEqualsOnce(t *testing.T) {
	a := clock.New()
	a.Set(0, 3)
	b := clock.New()
	b.Set(1, 7)

	once := a.Clone()
	once.Merge(b)

	twice := a.Clone()
	twice.Merge(b)
	twice.Merge(b)

	assert.True(t, cmp.Equal(once, twice, cmp.AllowUnexported(clock.Vector{})))
}

func TestMergeElementwiseMax(t *testing.T) {
	a := clock.New()
	a.Set(0, 10)
	a.Set(1, 2)

	b := clock.New()
	b.Set(0, 4)
	b.Set(1, 20)
	b.Set(3, 1)

	grew := a.Merge(b)
	require.True(t, grew)
	assert.Equal(t, uint32(10), a.Get(0))
	assert.Equal(t, uint32(20), a.Get(1))
	assert.Equal(t, uint32(1), a.Get(3))
}

func TestSynchronizedSince(t *testing.T) {
	v := clock.New()
	v.Set(2, 5)

	assert.True(t, v.SynchronizedSince(2, 5))
	assert.True(t, v.SynchronizedSince(2, 3))
	assert.False(t, v.SynchronizedSince(2, 6))
	assert.False(t, v.SynchronizedSince(7, 1), "an unseen thread never happens-before")
}

func TestMinMergeDropsNonCommonThreads(t *testing.T) {
	a := clock.New()
	a.Set(0, 10)
	a.Set(1, 10)

	b := clock.New()
	b.Set(0, 3)

	a.MinMerge(b)
	assert.Equal(t, uint32(3), a.Get(0))
	assert.Equal(t, uint32(0), a.Get(1), "thread absent from b is treated as 0 in the min")
}

func TestLessOrEqualAndEqual(t *testing.T) {
	a := clock.New()
	a.Set(0, 1)
	b := clock.New()
	b.Set(0, 1)
	b.Set(1, 1)

	assert.True(t, a.LessOrEqual(b))
	assert.False(t, b.LessOrEqual(a))
	assert.False(t, a.Equal(b))

	c := a.Clone()
	assert.True(t, a.Equal(c))
}

func TestNewFromNilParentIsEmpty(t *testing.T) {
	v := clock.NewFrom(nil)
	assert.Equal(t, uint32(0), v.Get(0))
	assert.Equal(t, 0, v.Len())
}
