// Package shadow implements the data-race detector's shadow memory: a
// byte-granular table recording, for every instrumented address, the most
// recent accesses well enough to test two accesses for a race in O(1).
//
// Races. Two accesses to the same byte race iff they are on different
// threads, at least one is a write, and neither happens-before the other
// (§4.4). The core test against one recorded access (tid u, clock r) from
// the perspective of a current access (tid t, clock vector C) is:
//
//	t != u && r != 0 && !C.SynchronizedSince(u, r)
//
// i.e. the recorded access has NOT been folded into the current access's
// happens-before view. §4.4's informal statement of this test ("C[u] <= r")
// is read here against the precise synchronized-since definition of §3
// ("cv[tid] >= action.seqnum" means happens-before) rather than literally,
// since a literal reading would flag same-synchronization-point accesses as
// racing.
//
// Encoding. Every table cell starts in a compact 64-bit form matching §3's
// bit layout exactly: low bit 1, then 6 bits read-tid, 25 bits read-clock,
// 6 bits write-tid, 25 bits write-clock, and a high "written atomically"
// bit. This is the literal ThreadSanitizer-style encoding from
// original_source/datarace.h's ENCODEOP macro, carried over unchanged.
//
// Where this port departs from the original is in how a cell is promoted:
// the original casts a live (void*) into the same 64-bit word when a second
// concurrent reader forces growth past one slot. Storing an untyped pointer
// inside a word that is also read as an integer requires unsafe aliasing
// that buys nothing in Go (the driver never has to fit both forms into one
// machine word the way a C shadow page does) and gives up the type checker
// for no benefit. Cell instead keeps the packed compact word alongside an
// explicit *fullRecord pointer that is nil exactly when the cell has not
// been promoted — the same two states, the same round-trip guarantee
// (promoting never touches the writer fields), just without unsafe.
//
// Unaligned/mixed-width accesses. Per §9's open question, this
// implementation rounds every access down to the first byte of its width
// for shadow-table purposes; a racy 4-byte write overlapping a racy 1-byte
// read at byte+2 is not detected. This matches the original's documented
// ambiguity rather than resolving it.
package shadow
