// Package mograph implements the modification-order DAG: one subgraph per
// atomic location, whose edges record "mo-before" between writes.
// Reachability is answered without a graph walk by keeping, on every node,
// a clock vector that overapproximates the happens-before of everything
// mo-before it — addEdge propagates by merging, and checkReachable reduces
// to a clock-vector comparison (§4.3, Design Notes §9).
package mograph

import (
	"github.com/kolkov/c11model/internal/action"
	"github.com/kolkov/c11model/internal/clock"
)

// Node wraps one write action as it participates in modification order.
type Node struct {
	Write *action.Action

	// CV overapproximates reachability: after addEdge(from, to), to.CV
	// reflects from.CV merged in, so checkReachable(x, y) is just
	// y.CV.SynchronizedSince(x.Write.TID, x.Write.Seq).
	CV *clock.Vector

	out []*Node
	in  []*Node

	// RMW is the read-modify-write that read this node's write, if any; at
	// most one per invariant 6 (§8).
	RMW *Node
}

// Graph is a modification-order DAG, implicitly partitioned by location:
// nodes for different locations are never connected to each other.
type Graph struct {
	nodes map[*action.Action]*Node
}

// New returns an empty modification-order graph.
func New() *Graph {
	return &Graph{nodes: make(map[*action.Action]*Node)}
}

// GetNode fetches or creates the node for write.
func (g *Graph) GetNode(write *action.Action) *Node {
	if n, ok := g.nodes[write]; ok {
		return n
	}
	n := &Node{Write: write, CV: clock.NewFrom(write.CV)}
	g.nodes[write] = n
	return n
}

// GetNodeIfExists returns the node for write without creating one.
func (g *Graph) GetNodeIfExists(write *action.Action) *Node {
	return g.nodes[write]
}

// CheckReachable reports whether from is mo-before-or-equal to to, i.e.
// whether an addEdge(from, to) has already been folded into to's clock
// vector (directly or transitively).
func (g *Graph) CheckReachable(from, to *action.Action) bool {
	fn, ok := g.nodes[from]
	if !ok {
		return false
	}
	tn, ok := g.nodes[to]
	if !ok {
		return false
	}
	return tn.CV.SynchronizedSince(int(fn.Write.TID), uint32(fn.Write.Seq))
}

// AddEdge adds the edge from→to ("from is mo-before to"). If to already
// reflects from in its reachability clock and force is false, this is a
// no-op. Otherwise the edge is recorded and from's clock vector (including
// from itself) is merged into to and propagated breadth-first through to's
// existing outgoing edges, stopping once merges stop expanding anything —
// this is what keeps the graph's invariant "reachability is implied by
// cv_node" true after every mutation.
func (g *Graph) AddEdge(from, to *action.Action, force bool) bool {
	fn := g.GetNode(from)
	tn := g.GetNode(to)
	if !force && g.CheckReachable(from, to) {
		return false
	}
	fn.out = append(fn.out, tn)
	tn.in = append(tn.in, fn)

	frontier := []*Node{tn}
	seed := fn.CV.Clone()
	seed.Set(int(fn.Write.TID), uint32(fn.Write.Seq))
	for len(frontier) > 0 {
		n := frontier[0]
		frontier = frontier[1:]
		if n.CV.Merge(seed) {
			frontier = append(frontier, n.out...)
		}
	}
	return true
}

// AddRMWEdge records that rmw is the read-modify-write which read write:
// write.RMW is set, write's outgoing edges are transferred to rmw (with the
// corresponding reverse links on the destinations repointed), and a forced
// edge write→rmw is added so rmw inherits write's place in the order.
func (g *Graph) AddRMWEdge(write, rmw *action.Action) {
	wn := g.GetNode(write)
	rn := g.GetNode(rmw)
	wn.RMW = rn

	for _, dst := range wn.out {
		dst.in = removeNode(dst.in, wn)
		dst.in = append(dst.in, rn)
		rn.out = append(rn.out, dst)
	}
	wn.out = nil

	g.AddEdge(write, rmw, true)

	// The transferred edges bypassed AddEdge, so fold rmw's reachability
	// into its new successors here.
	seed := rn.CV.Clone()
	seed.Set(int(rmw.TID), uint32(rmw.Seq))
	frontier := append([]*Node(nil), rn.out...)
	for len(frontier) > 0 {
		n := frontier[0]
		frontier = frontier[1:]
		if n.CV.Merge(seed) {
			frontier = append(frontier, n.out...)
		}
	}
}

func removeNode(list []*Node, target *Node) []*Node {
	out := list[:0]
	for _, n := range list {
		if n != target {
			out = append(out, n)
		}
	}
	return out
}

// Edge is a pending mo-before constraint discovered while processing a
// read or write, not yet committed to the graph.
type Edge struct {
	From, To *action.Action
}

// AddEdges commits a deduplicated batch of edges all ending at `to`. Per
// §4.3, the edge set is first pruned against mutual reachability — if
// source A already reaches source B, the pending edge A→to is dropped as
// redundant (B→to implies it), and vice versa — then each survivor is
// added, forced when it shares `to`'s thread (same-thread mo is always
// consistent with program order).
func (g *Graph) AddEdges(edges []Edge, to *action.Action) {
	keep := make([]bool, len(edges))
	for i := range keep {
		keep[i] = true
	}
	for i, ei := range edges {
		if !keep[i] {
			continue
		}
		for j := i + 1; j < len(edges); j++ {
			if !keep[j] {
				continue
			}
			ej := edges[j]
			if g.CheckReachable(ei.From, ej.From) {
				keep[i] = false
				break
			} else if g.CheckReachable(ej.From, ei.From) {
				keep[j] = false
			}
		}
	}
	for i, e := range edges {
		if !keep[i] {
			continue
		}
		force := e.From.TID == to.TID
		g.AddEdge(e.From, to, force)
	}
}

// FreeAction unlinks write from all its neighbors and drops its node,
// as part of trace GC (§4.7).
func (g *Graph) FreeAction(write *action.Action) {
	n, ok := g.nodes[write]
	if !ok {
		return
	}
	for _, out := range n.out {
		out.in = removeNode(out.in, n)
	}
	for _, in := range n.in {
		in.out = removeNode(in.out, n)
	}
	delete(g.nodes, write)
}

// HasCycle reports whether any node can reach itself, which would violate
// invariant 4 (§8): the graph must remain acyclic at all times.
func (g *Graph) HasCycle() bool {
	for _, n := range g.nodes {
		if n.CV.SynchronizedSince(int(n.Write.TID), uint32(n.Write.Seq)+1) {
			return true
		}
	}
	return false
}
