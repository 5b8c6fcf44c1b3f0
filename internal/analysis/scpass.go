package analysis

import "github.com/kolkov/c11model/internal/action"

// SCChecker is the toy sequential-consistency post-pass §6 calls for: it
// flags an execution as non-SC if the union of happens-before, reads-from,
// and modification-order restricted to seq_cst actions contains a cycle —
// the IRIW scenario (§8 Scenario 1) is exactly such a cycle; the engine
// itself never rejects a read on this basis, since mo/rf alone
// underdetermine it, and leaves the judgment to this pass.
type SCChecker struct {
	Violations []string
}

// Run implements TracePass.
func (c *SCChecker) Run(e Execution) {
	trace := e.Trace()
	mo := e.MOGraph()

	var seqCst []*action.Action
	for it := trace.Begin(); it.Valid(); it.Next() {
		a := it.Action()
		if a.IsSeqCst() {
			seqCst = append(seqCst, a)
		}
	}

	edge := func(a, b *action.Action) bool {
		if a == b {
			return false
		}
		if a.HappensBefore(b) {
			return true
		}
		if b.IsRead() && b.ReadsFrom == a {
			return true
		}
		if a.IsWrite() && b.IsWrite() && mo.CheckReachable(a, b) {
			return true
		}
		return false
	}

	adj := make(map[*action.Action][]*action.Action, len(seqCst))
	for _, a := range seqCst {
		for _, b := range seqCst {
			if edge(a, b) {
				adj[a] = append(adj[a], b)
			}
		}
	}

	const (
		white = iota
		gray
		black
	)
	color := make(map[*action.Action]int, len(seqCst))
	var cyclic func(a *action.Action) bool
	cyclic = func(a *action.Action) bool {
		color[a] = gray
		for _, b := range adj[a] {
			switch color[b] {
			case gray:
				return true
			case white:
				if cyclic(b) {
					return true
				}
			}
		}
		color[a] = black
		return false
	}

	for _, a := range seqCst {
		if color[a] == white && cyclic(a) {
			c.Violations = append(c.Violations, "seq_cst order is not acyclic: execution is not sequentially consistent")
			return
		}
	}
}
