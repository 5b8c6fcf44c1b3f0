package shadow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kolkov/c11model/internal/action"
	"github.com/kolkov/c11model/internal/clock"
)

func TestCompactEncodeDecodeRoundTrip(t *testing.T) {
	v := encodeCompact(5, 100, 9, 200, true)
	rt, rc, wt, wc, at := decodeCompact(v)
	assert.EqualValues(t, 5, rt)
	assert.EqualValues(t, 100, rc)
	assert.EqualValues(t, 9, wt)
	assert.EqualValues(t, 200, wc)
	assert.True(t, at)
	assert.Equal(t, uint64(1), v&1, "low bit must mark the word compact")
}

func TestPromoteThenWriterSurvives(t *testing.T) {
	c := &Cell{}
	cv := clock.New()
	cv.Set(1, 10)
	c.checkWrite(1, 10, cv, true)

	tid, clk, atomic, ok := c.currentWriter()
	require.True(t, ok)
	assert.EqualValues(t, 1, tid)
	assert.EqualValues(t, 10, clk)
	assert.True(t, atomic)

	// A second, concurrent reader forces promotion.
	cv2 := clock.New()
	cv2.Set(2, 1)
	c.checkRead(2, 1, cv2, false)
	cv3 := clock.New()
	cv3.Set(3, 1)
	c.checkRead(3, 1, cv3, false)
	require.NotNil(t, c.full, "second concurrent reader must promote the cell")

	// Promotion must not have perturbed the writer tuple.
	tid, clk, atomic, ok = c.currentWriter()
	require.True(t, ok)
	assert.EqualValues(t, 1, tid)
	assert.EqualValues(t, 10, clk)
	assert.True(t, atomic)
}

func TestWriteAfterPromotionDemotesToCompact(t *testing.T) {
	c := &Cell{}
	cv1 := clock.New()
	cv1.Set(1, 1)
	c.checkWrite(1, 1, cv1, false)
	cv2 := clock.New()
	cv2.Set(2, 1)
	c.checkRead(2, 1, cv2, false)
	cv3 := clock.New()
	cv3.Set(3, 1)
	c.checkRead(3, 1, cv3, false)
	require.NotNil(t, c.full)

	cv4 := clock.New()
	cv4.Set(4, 1)
	c.checkWrite(4, 2, cv4, false)
	assert.Nil(t, c.full, "a fresh write must demote back to compact form")
	tid, clk, _, ok := c.currentWriter()
	require.True(t, ok)
	assert.EqualValues(t, 4, tid)
	assert.EqualValues(t, 2, clk)
}

func TestTidOverflowForcesFullRecord(t *testing.T) {
	c := &Cell{}
	cv := clock.New()
	cv.Set(70, 1)
	c.checkWrite(70, 1, cv, false) // tid 70 > 6-bit field width (max 63)
	require.NotNil(t, c.full, "a tid overflowing the compact field must force a full record")
	tid, _, _, ok := c.currentWriter()
	require.True(t, ok)
	assert.EqualValues(t, 70, tid)
}

func TestClockOverflowForcesFullRecord(t *testing.T) {
	c := &Cell{}
	cv := clock.New()
	big := uint32(1 << 26)
	cv.Set(1, big)
	c.checkWrite(1, big, cv, false) // clock overflows the 25-bit field
	require.NotNil(t, c.full)
	_, clk, _, ok := c.currentWriter()
	require.True(t, ok)
	assert.EqualValues(t, big, clk)
}

func TestConcurrentWriteWriteRace(t *testing.T) {
	tbl := New()
	cv1 := clock.New()
	cv1.Set(1, 1)
	races := tbl.CheckWrite(0x1000, 1, 1, cv1, false)
	assert.Empty(t, races)

	cv2 := clock.New()
	cv2.Set(2, 1)
	races = tbl.CheckWrite(0x1000, 2, 1, cv2, false)
	require.Len(t, races, 1)
	assert.EqualValues(t, 1, races[0].TID)
	assert.True(t, races[0].WasWrite)
}

func TestSynchronizedWriteThenReadIsRaceFree(t *testing.T) {
	tbl := New()
	cv1 := clock.New()
	cv1.Set(1, 1)
	tbl.CheckWrite(0x2000, 1, 1, cv1, true)

	cv2 := clock.New()
	cv2.Set(1, 1) // reader has synchronized with thread 1 up through seq 1
	cv2.Set(2, 1)
	races := tbl.CheckRead(0x2000, 2, 1, cv2, true)
	assert.Empty(t, races)
}

func TestReaderSubsumptionDropsDominatedReader(t *testing.T) {
	c := &Cell{}
	cvW := clock.New()
	cvW.Set(1, 1)
	c.checkWrite(1, 1, cvW, false)

	cv2 := clock.New()
	cv2.Set(2, 5)
	c.checkRead(2, 5, cv2, false)
	cv3 := clock.New()
	cv3.Set(3, 1)
	c.checkRead(3, 1, cv3, false)
	require.NotNil(t, c.full)
	require.Len(t, c.full.readers, 2)

	// thread 4 has already synchronized past thread 2's recorded read (clock
	// 5), so that entry must be dropped rather than duplicated.
	cv4 := clock.New()
	cv4.Set(2, 5)
	cv4.Set(4, 1)
	c.checkRead(4, 1, cv4, false)

	for _, rd := range c.full.readers {
		assert.NotEqual(t, action.ThreadID(2), rd.tid, "dominated reader must be dropped")
	}
}

func TestLastWriterReportsMostRecentWrite(t *testing.T) {
	tbl := New()
	cv := clock.New()
	cv.Set(1, 7)
	tbl.CheckWrite(0x3000, 1, 7, cv, false)

	tid, seq, atomic, ok := tbl.LastWriter(0x3000)
	require.True(t, ok)
	assert.EqualValues(t, 1, tid)
	assert.EqualValues(t, 7, seq)
	assert.False(t, atomic)
}

func TestDifferentAddressesDoNotAlias(t *testing.T) {
	tbl := New()
	cv1 := clock.New()
	cv1.Set(1, 1)
	tbl.CheckWrite(0x1_0000, 1, 1, cv1, false)

	_, _, _, ok := tbl.LastWriter(0x2_0000)
	assert.False(t, ok, "distinct addresses must land in distinct cells")
}
