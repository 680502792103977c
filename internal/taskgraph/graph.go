// Package taskgraph assigns dense integer IDs to the tasks of a parsed
// workflow document and builds the adjacency structures the scheduler
// needs: successors, predecessors, and the transitive `needs` closure used
// by the ready-set predicate (spec.md §3, §4.B).
package taskgraph

import (
	"fmt"
	"sort"

	"dagrunner/internal/workflow"
)

// TaskID is a dense index into Graph.Tasks, in [0, N).
type TaskID int

// Graph is the adjacency structure derived from a workflow.Document.
type Graph struct {
	Tasks  []workflow.Task
	NameToID map[string]TaskID

	// Successors[id] lists the tasks that directly need id.
	Successors [][]TaskID
	// Predecessors[id] lists the tasks id directly needs (its `needs`,
	// resolved to IDs, in declaration order).
	Predecessors [][]TaskID

	// Roots holds the IDs with no prerequisites — the virtual source
	// node's successors in spec.md's data model (id = -1).
	Roots []TaskID

	// allNeeds[id] is the memoized transitive closure of Predecessors[id].
	allNeeds []map[TaskID]struct{}
}

// Name returns the task name for id.
func (g *Graph) Name(id TaskID) string { return g.Tasks[id].Name }

// Task returns the task definition for id.
func (g *Graph) Task(id TaskID) workflow.Task { return g.Tasks[id] }

// Len returns the number of tasks in the graph.
func (g *Graph) Len() int { return len(g.Tasks) }

// AllNeeds returns the transitive closure of id's prerequisites.
// The returned set must not be mutated by the caller.
func (g *Graph) AllNeeds(id TaskID) map[TaskID]struct{} {
	return g.allNeeds[id]
}

// Build assigns IDs in stage order, resolves `needs` references, and
// validates the result is a DAG with no self-references or duplicate
// names. Detected problems are reported as *StructuralError so the
// caller can abort before any task starts (spec.md §7, category 1).
func Build(doc *workflow.Document) (*Graph, error) {
	n := len(doc.Stages)
	g := &Graph{
		Tasks:        append([]workflow.Task(nil), doc.Stages...),
		Successors:   make([][]TaskID, n),
		Predecessors: make([][]TaskID, n),
	}

	nameToID := make(map[string]TaskID, n)
	for i, t := range doc.Stages {
		if _, dup := nameToID[t.Name]; dup {
			return nil, &StructuralError{Kind: "duplicate_name", Msg: fmt.Sprintf("task name %q appears more than once", t.Name)}
		}
		nameToID[t.Name] = TaskID(i)
	}
	g.NameToID = nameToID

	for i, t := range doc.Stages {
		id := TaskID(i)
		preds := make([]TaskID, 0, len(t.Needs))
		for _, need := range t.Needs {
			if need == t.Name {
				return nil, &StructuralError{Kind: "self_reference", Msg: fmt.Sprintf("task %q lists itself as a prerequisite", t.Name)}
			}
			pid, ok := nameToID[need]
			if !ok {
				return nil, &StructuralError{Kind: "unknown_need", Msg: fmt.Sprintf("task %q needs unknown task %q", t.Name, need)}
			}
			preds = append(preds, pid)
		}
		g.Predecessors[id] = preds
		for _, pid := range preds {
			g.Successors[pid] = append(g.Successors[pid], id)
		}
		if len(preds) == 0 {
			g.Roots = append(g.Roots, id)
		}
	}

	if err := detectCycle(g); err != nil {
		return nil, err
	}

	g.allNeeds = computeAllNeeds(g)
	return g, nil
}

// detectCycle runs DFS coloring over Successors with a deterministic
// lowest-id-first visiting order, so the reported cycle is stable.
func detectCycle(g *Graph) error {
	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make([]int, g.Len())
	var path []TaskID

	var visit func(id TaskID) error
	visit = func(id TaskID) error {
		color[id] = gray
		path = append(path, id)

		next := append([]TaskID(nil), g.Successors[id]...)
		sort.Slice(next, func(i, j int) bool { return next[i] < next[j] })
		for _, v := range next {
			switch color[v] {
			case gray:
				start := 0
				for i, p := range path {
					if p == v {
						start = i
						break
					}
				}
				cycle := append(append([]TaskID(nil), path[start:]...), v)
				names := make([]string, len(cycle))
				for i, c := range cycle {
					names[i] = g.Name(c)
				}
				return &StructuralError{Kind: "cycle", Msg: fmt.Sprintf("%v", names)}
			case white:
				if err := visit(v); err != nil {
					return err
				}
			}
		}

		path = path[:len(path)-1]
		color[id] = black
		return nil
	}

	ids := make([]TaskID, g.Len())
	for i := range ids {
		ids[i] = TaskID(i)
	}
	for _, id := range ids {
		if color[id] == white {
			if err := visit(id); err != nil {
				return err
			}
		}
	}
	return nil
}

// computeAllNeeds memoizes the transitive closure of Predecessors for
// every task. spec.md §9 calls out that a naive recursive recomputation
// explodes on dense DAGs; this computes each node's set exactly once by
// walking tasks in an order where every predecessor is resolved first
// (guaranteed to exist because the graph is already known acyclic).
func computeAllNeeds(g *Graph) []map[TaskID]struct{} {
	result := make([]map[TaskID]struct{}, g.Len())
	var resolve func(id TaskID) map[TaskID]struct{}
	resolve = func(id TaskID) map[TaskID]struct{} {
		if result[id] != nil {
			return result[id]
		}
		set := make(map[TaskID]struct{}, len(g.Predecessors[id]))
		for _, p := range g.Predecessors[id] {
			set[p] = struct{}{}
			for anc := range resolve(p) {
				set[anc] = struct{}{}
			}
		}
		result[id] = set
		return set
	}
	for i := 0; i < g.Len(); i++ {
		resolve(TaskID(i))
	}
	return result
}
