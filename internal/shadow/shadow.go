package shadow

import (
	"github.com/kolkov/c11model/internal/action"
	"github.com/kolkov/c11model/internal/clock"
)

const (
	tidBits   = 6
	clockBits = 25

	tidMask   = 1<<tidBits - 1
	clockMask = 1<<clockBits - 1

	readTIDShift   = 1
	readClockShift = readTIDShift + tidBits
	writeTIDShift  = readClockShift + clockBits
	writeClockShift = writeTIDShift + tidBits
	atomicShift    = writeClockShift + clockBits
)

// encodeCompact packs one write and at most one reader into a single 64-bit
// cell, matching original_source/datarace.h's ENCODEOP layout bit-for-bit:
// low bit 1 (marks the word as compact, never a pointer), 6-bit read-tid,
// 25-bit read-clock, 6-bit write-tid, 25-bit write-clock, high bit atomic.
func encodeCompact(readTID uint8, readClock uint32, writeTID uint8, writeClock uint32, atomic bool) uint64 {
	v := uint64(1)
	v |= uint64(readTID&tidMask) << readTIDShift
	v |= uint64(readClock&clockMask) << readClockShift
	v |= uint64(writeTID&tidMask) << writeTIDShift
	v |= uint64(writeClock&clockMask) << writeClockShift
	if atomic {
		v |= 1 << atomicShift
	}
	return v
}

func decodeCompact(v uint64) (readTID uint8, readClock uint32, writeTID uint8, writeClock uint32, atomic bool) {
	readTID = uint8(v>>readTIDShift) & tidMask
	readClock = uint32(v>>readClockShift) & clockMask
	writeTID = uint8(v>>writeTIDShift) & tidMask
	writeClock = uint32(v>>writeClockShift) & clockMask
	atomic = v&(1<<atomicShift) != 0
	return
}

// fitsCompact reports whether tid and clk fit in the compact encoding's
// field widths. Overflow of either forces promotion to a full record.
func fitsCompact(tid action.ThreadID, clk uint32) bool {
	return tid >= 0 && tid <= tidMask && clk <= clockMask
}

// reader is one outstanding read recorded against a full record.
type reader struct {
	tid   action.ThreadID
	clock uint32
}

// fullRecord is the promoted form of a cell: an arbitrary number of
// concurrent readers plus the single most recent writer. Promotion happens
// when a second concurrent reader must be tracked, or when a tid/clock
// overflows the compact encoding's field widths.
type fullRecord struct {
	writeTID   action.ThreadID
	writeClock uint32
	atomic     bool
	readers    []reader
}

// Cell is one byte's shadow state. The zero Cell means "never accessed".
type Cell struct {
	packed uint64
	full   *fullRecord
}

func (c *Cell) currentWriter() (tid action.ThreadID, clk uint32, atomic bool, known bool) {
	if c.full != nil {
		return c.full.writeTID, c.full.writeClock, c.full.atomic, true
	}
	if c.packed == 0 {
		return 0, 0, false, false
	}
	_, _, wt, wc, at := decodeCompact(c.packed)
	return action.ThreadID(wt), wc, at, true
}

// promote converts a compact cell into a full record, preserving its
// current (single) reader and writer exactly — this is the half of the
// round-trip invariant that matters: promotion never perturbs the writer.
func (c *Cell) promote() *fullRecord {
	if c.full != nil {
		return c.full
	}
	rt, rc, wt, wc, at := decodeCompact(c.packed)
	fr := &fullRecord{writeTID: action.ThreadID(wt), writeClock: wc, atomic: at}
	if c.packed != 0 && rc != 0 {
		fr.readers = append(fr.readers, reader{tid: action.ThreadID(rt), clock: rc})
	}
	c.full = fr
	c.packed = 0
	return fr
}

// Race describes a detected happens-before violation: the current access
// raced with a previously recorded access by tid at clock.
type Race struct {
	TID       action.ThreadID
	Clock     uint32
	WasWrite  bool
	WasAtomic bool
}

// raceAgainst tests one recorded (tid, clk) against the current accessor
// (t, cv, accessorAtomic), per the package doc's happens-before test. Per
// §4.4, an atomic accessor never races with a recorded atomic access
// (atomics don't race with atomics) — the cell is still updated by the
// caller regardless.
func raceAgainst(tid action.ThreadID, clk uint32, wasWrite, wasAtomic bool, t action.ThreadID, cv *clock.Vector, accessorAtomic bool) *Race {
	if clk == 0 || tid == t {
		return nil
	}
	if accessorAtomic && wasAtomic {
		return nil
	}
	if cv.SynchronizedSince(int(tid), clk) {
		return nil
	}
	return &Race{TID: tid, Clock: clk, WasWrite: wasWrite, WasAtomic: wasAtomic}
}

// checkWrite tests a write by (t, cv) against the cell's recorded writer and
// reader(s), then records the write, clearing prior reader tracking — once a
// write is race-free against every prior read, nothing still needs those
// reads to detect future races against this write's successors (the
// standard FastTrack write-clears-reads simplification).
func (c *Cell) checkWrite(t action.ThreadID, seq uint32, cv *clock.Vector, atomic bool) []Race {
	var races []Race
	if c.full != nil {
		fr := c.full
		if r := raceAgainst(fr.writeTID, fr.writeClock, true, fr.atomic, t, cv, atomic); r != nil {
			races = append(races, *r)
		}
		for _, rd := range fr.readers {
			if r := raceAgainst(rd.tid, rd.clock, false, fr.atomic, t, cv, atomic); r != nil {
				races = append(races, *r)
			}
		}
	} else if c.packed != 0 {
		rt, rc, wt, wc, at := decodeCompact(c.packed)
		if r := raceAgainst(action.ThreadID(wt), wc, true, at, t, cv, atomic); r != nil {
			races = append(races, *r)
		}
		if r := raceAgainst(action.ThreadID(rt), rc, false, at, t, cv, atomic); r != nil {
			races = append(races, *r)
		}
	}

	c.full = nil
	if fitsCompact(t, seq) {
		c.packed = encodeCompact(0, 0, uint8(t), seq, atomic)
	} else {
		c.full = &fullRecord{writeTID: t, writeClock: seq, atomic: atomic}
	}
	return races
}

// checkRead tests a read by (t, cv) against the cell's recorded writer, then
// records the read. A second concurrent reader (one not dominated by the
// first, or vice versa) forces promotion to a full record; within a full
// record, any existing reader u whose recorded clock is already
// happens-before the current read (cv[u] >= r_u) is dropped, since the
// current reader's presence already subsumes it for future race checks
// (§4.4).
func (c *Cell) checkRead(t action.ThreadID, seq uint32, cv *clock.Vector, atomic bool) []Race {
	var races []Race

	writerTID, writerClock, writerAtomic, haveWriter := c.currentWriter()
	if haveWriter {
		if r := raceAgainst(writerTID, writerClock, true, writerAtomic, t, cv, atomic); r != nil {
			races = append(races, *r)
		}
	}

	if c.full != nil {
		fr := c.full
		kept := fr.readers[:0]
		for _, rd := range fr.readers {
			if rd.tid == t {
				continue
			}
			if cv.SynchronizedSince(int(rd.tid), rd.clock) {
				continue // subsumed by the current reader, per §4.4
			}
			if r := raceAgainst(rd.tid, rd.clock, false, fr.atomic, t, cv, atomic); r != nil {
				races = append(races, *r)
			}
			kept = append(kept, rd)
		}
		fr.readers = append(kept, reader{tid: t, clock: seq})
		return races
	}

	if c.packed == 0 {
		if fitsCompact(t, seq) {
			c.packed = encodeCompact(uint8(t), seq, 0, 0, atomic)
		} else {
			c.promote()
			c.full.readers = append(c.full.readers, reader{tid: t, clock: seq})
		}
		return races
	}

	rt, rc, wt, wc, at := decodeCompact(c.packed)
	if rc == 0 {
		if fitsCompact(t, seq) {
			c.packed = encodeCompact(uint8(t), seq, wt, wc, at)
		} else {
			fr := c.promote()
			fr.readers = append(fr.readers, reader{tid: t, clock: seq})
		}
		return races
	}
	if action.ThreadID(rt) == t {
		if fitsCompact(t, seq) {
			c.packed = encodeCompact(uint8(t), seq, wt, wc, at)
		} else {
			fr := c.promote()
			fr.readers = []reader{{tid: t, clock: seq}}
		}
		return races
	}

	// Two distinct readers outstanding: if one dominates the other, keep
	// only the dominant (no information loss); otherwise both must be
	// tracked, forcing promotion.
	if cv.SynchronizedSince(int(rt), rc) {
		if fitsCompact(t, seq) {
			c.packed = encodeCompact(uint8(t), seq, wt, wc, at)
		} else {
			fr := c.promote()
			fr.readers = []reader{{tid: t, clock: seq}}
		}
		return races
	}
	fr := c.promote()
	fr.readers = append(fr.readers, reader{tid: t, clock: seq})
	return races
}

const pageBits = 16
const pageSize = 1 << pageBits
const pageMask = pageSize - 1

type page struct {
	cells [pageSize]Cell
}

// Table is the two-level radix shadow table: a sparse top level keyed by
// the high bits of an address (a Go map stands in for the original's fixed
// top-level array, since a 48/64-bit address space makes a flat top-level
// array infeasible) and, per top-level entry, a dense 65536-cell page
// covering the address's low 16 bits — matching original_source/datarace.h's
// ShadowTable/ShadowBaseTable sizing.
type Table struct {
	pages map[uint64]*page
}

// New returns an empty shadow table.
func New() *Table {
	return &Table{pages: make(map[uint64]*page)}
}

func (t *Table) cellFor(loc action.Location) *Cell {
	addr := uint64(loc)
	top := addr >> pageBits
	p, ok := t.pages[top]
	if !ok {
		p = &page{}
		t.pages[top] = p
	}
	return &p.cells[addr&pageMask]
}

// CheckWrite records a write at loc by (tid, seq, cv) and returns any races
// detected against previously recorded accesses to the same byte.
func (t *Table) CheckWrite(loc action.Location, tid action.ThreadID, seq uint32, cv *clock.Vector, atomic bool) []Race {
	return t.cellFor(loc).checkWrite(tid, seq, cv, atomic)
}

// CheckRead records a read at loc by (tid, seq, cv) and returns any races
// detected against previously recorded accesses to the same byte.
func (t *Table) CheckRead(loc action.Location, tid action.ThreadID, seq uint32, cv *clock.Vector, atomic bool) []Race {
	return t.cellFor(loc).checkRead(tid, seq, cv, atomic)
}

// LastWriter reports the most recently recorded writer of loc, if any —
// used to synthesize the implicit NonAtomicWrite §4.2.1 step 1 relies on
// when a read observes memory no modeled action wrote.
func (t *Table) LastWriter(loc action.Location) (tid action.ThreadID, seq uint32, atomic bool, ok bool) {
	c := t.cellFor(loc)
	tid, seq, atomic, ok = c.currentWriter()
	return
}
