// Package actionlist implements the execution engine's indexed global
// trace: every committed action, ordered by sequence number, with O(log)
// insert/remove keyed on the 32-bit sequence number (§3 "Indexed ordered
// list"). Per the design notes (§9 "Cyclic ownership"), the original's
// reason for avoiding raw pointers — arena allocation to sidestep a
// borrow-checker — doesn't apply to a garbage-collected language, so this
// port keeps ordinary pointers between list nodes and action records.
package actionlist

import "github.com/kolkov/c11model/internal/action"

const (
	levels     = 8
	fanout     = 16
	bitsPerLvl = 4
)

func nibble(seq uint32, level int) int {
	shift := uint(32 - bitsPerLvl*(level+1))
	return int((seq >> shift) & (fanout - 1))
}

// listNode is one entry in the doubly linked list, kept sorted by sequence
// number at all times.
type listNode struct {
	action     *action.Action
	prev, next *listNode
}

// trieNode is one level of the radix index. Only nodes at depth `levels`
// (leaves) ever set `leaf`; all others use only `children`.
type trieNode struct {
	children [fanout]*trieNode
	leaf     *listNode
}

func (n *trieNode) empty() bool {
	if n.leaf != nil {
		return false
	}
	for _, c := range n.children {
		if c != nil {
			return false
		}
	}
	return true
}

// List is the indexed, sequence-ordered trace.
type List struct {
	root       *trieNode
	head, tail *listNode
	size       int
}

// New returns an empty indexed list.
func New() *List {
	return &List{root: &trieNode{}}
}

// Len returns the number of actions currently indexed.
func (l *List) Len() int { return l.size }

// lookupLeaf walks the trie to the leaf for seq, recording the path
// (path[0] is the root, path[levels] is the leaf if it exists).
func (l *List) lookupLeaf(seq uint32) (path [levels + 1]*trieNode, idxs [levels]int, leaf *trieNode) {
	n := l.root
	path[0] = n
	for lvl := 0; lvl < levels; lvl++ {
		idx := nibble(seq, lvl)
		idxs[lvl] = idx
		if n.children[idx] == nil {
			return path, idxs, nil
		}
		n = n.children[idx]
		path[lvl+1] = n
	}
	return path, idxs, n
}

func (l *List) ensureLeaf(seq uint32) *trieNode {
	n := l.root
	for lvl := 0; lvl < levels; lvl++ {
		idx := nibble(seq, lvl)
		if n.children[idx] == nil {
			n.children[idx] = &trieNode{}
		}
		n = n.children[idx]
	}
	return n
}

func descendMax(n *trieNode) *listNode {
	for n.leaf == nil {
		next := (*trieNode)(nil)
		for idx := fanout - 1; idx >= 0; idx-- {
			if n.children[idx] != nil {
				next = n.children[idx]
				break
			}
		}
		if next == nil {
			return nil
		}
		n = next
	}
	return n.leaf
}

// predecessor returns the list node with the largest sequence number less
// than seq, or nil if none exists. It walks down as far as the trie already
// has a path for seq, then backtracks to the deepest point it can branch
// left and descends that subtree's rightmost spine — the standard radix
// predecessor query, O(levels*fanout).
func (l *List) predecessor(seq uint32) *listNode {
	path, idxs, _ := l.lookupLeaf(seq)
	for lvl := levels - 1; lvl >= 0; lvl-- {
		parent := path[lvl]
		if parent == nil {
			continue
		}
		for idx := idxs[lvl] - 1; idx >= 0; idx-- {
			if parent.children[idx] != nil {
				return descendMax(parent.children[idx])
			}
		}
	}
	return nil
}

// AddAction inserts a at its sequence number, wherever that falls in the
// existing order — including back-dated insertions the GC phase makes for
// synthesized non-atomic writes (§3, §4.2.1 step 1). Returns false if an
// action with this sequence number is already indexed.
func (l *List) AddAction(a *action.Action) bool {
	seq := uint32(a.Seq)
	if _, _, leaf := l.lookupLeaf(seq); leaf != nil {
		return false
	}

	n := &listNode{action: a}
	if pred := l.predecessor(seq); pred != nil {
		n.prev = pred
		n.next = pred.next
		pred.next = n
	} else {
		n.next = l.head
		l.head = n
	}
	if n.next != nil {
		n.next.prev = n
	} else {
		l.tail = n
	}

	l.ensureLeaf(seq).leaf = n
	l.size++
	return true
}

// RemoveAction removes the action at sequence number seq, if present.
func (l *List) RemoveAction(seq uint32) bool {
	path, _, leaf := l.lookupLeaf(seq)
	if leaf == nil {
		return false
	}
	n := leaf.leaf
	leaf.leaf = nil

	if n.prev != nil {
		n.prev.next = n.next
	} else {
		l.head = n.next
	}
	if n.next != nil {
		n.next.prev = n.prev
	} else {
		l.tail = n.prev
	}
	l.size--

	// Prune now-empty trie nodes back toward the root.
	for lvl := levels; lvl > 0; lvl-- {
		node := path[lvl]
		if node == nil || !node.empty() {
			break
		}
		parent := path[lvl-1]
		idx := nibble(seq, lvl-1)
		parent.children[idx] = nil
	}
	return true
}

// Get returns the action at sequence number seq, if indexed.
func (l *List) Get(seq uint32) (*action.Action, bool) {
	_, _, leaf := l.lookupLeaf(seq)
	if leaf == nil {
		return nil, false
	}
	return leaf.leaf.action, true
}

// Iterator walks the list in increasing sequence order.
type Iterator struct {
	cur *listNode
}

// Begin returns an iterator positioned at the lowest-sequence action.
func (l *List) Begin() *Iterator { return &Iterator{cur: l.head} }

// Valid reports whether the iterator still references an action.
func (it *Iterator) Valid() bool { return it.cur != nil }

// Action returns the action the iterator currently references.
func (it *Iterator) Action() *action.Action { return it.cur.action }

// Next advances the iterator.
func (it *Iterator) Next() { it.cur = it.cur.next }

// All materializes the full trace in sequence order. Intended for tests and
// for passes that need a snapshot rather than a live iterator.
func (l *List) All() []*action.Action {
	out := make([]*action.Action, 0, l.size)
	for it := l.Begin(); it.Valid(); it.Next() {
		out = append(out, it.Action())
	}
	return out
}
