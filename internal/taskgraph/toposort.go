package taskgraph

import "sort"

// TopologicalOrder produces one valid topological ordering of the graph.
//
// spec.md §4.C: the production implementation enumerates at most one
// ordering (the Python original's full enumerator is bounded to a single
// result in practice). This is a single-pass Kahn traversal — semantically
// equivalent for every current use (the Script Emitter), per spec.md §9's
// design note that the full enumerator should be replaced on port.
//
// Ties are broken by lowest TaskID, giving a deterministic result for a
// given Build() output.
func (g *Graph) TopologicalOrder() []TaskID {
	indegree := make([]int, g.Len())
	for id := range indegree {
		indegree[id] = len(g.Predecessors[TaskID(id)])
	}

	ready := make([]TaskID, 0, len(g.Roots))
	ready = append(ready, g.Roots...)
	sort.Slice(ready, func(i, j int) bool { return ready[i] < ready[j] })

	order := make([]TaskID, 0, g.Len())
	for len(ready) > 0 {
		id := ready[0]
		ready = ready[1:]
		order = append(order, id)

		next := append([]TaskID(nil), g.Successors[id]...)
		sort.Slice(next, func(i, j int) bool { return next[i] < next[j] })
		for _, s := range next {
			indegree[s]--
			if indegree[s] == 0 {
				ready = insertSorted(ready, s)
			}
		}
	}

	return order
}

func insertSorted(xs []TaskID, v TaskID) []TaskID {
	i := sort.Search(len(xs), func(i int) bool { return xs[i] >= v })
	xs = append(xs, 0)
	copy(xs[i+1:], xs[i:])
	xs[i] = v
	return xs
}
