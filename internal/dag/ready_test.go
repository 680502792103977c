package dag

import (
	"testing"

	"dagrunner/internal/taskgraph"
	"dagrunner/internal/workflow"
)

func buildGraph(t *testing.T, doc *workflow.Document) *taskgraph.Graph {
	t.Helper()
	g, err := taskgraph.Build(doc)
	if err != nil {
		t.Fatalf("build graph: %v", err)
	}
	return g
}

func TestManager_Diamond(t *testing.T) {
	doc := &workflow.Document{Stages: []workflow.Task{
		{Name: "root", Cmd: "true", Timeframe: -1},
		{Name: "l", Cmd: "true", Needs: []string{"root"}, Timeframe: -1},
		{Name: "r", Cmd: "true", Needs: []string{"root"}, Timeframe: -1},
		{Name: "sink", Cmd: "true", Needs: []string{"l", "r"}, Timeframe: -1},
	}}
	g := buildGraph(t, doc)
	m := NewManager(g)

	root := g.NameToID["root"]
	l := g.NameToID["l"]
	r := g.NameToID["r"]
	sink := g.NameToID["sink"]

	if got := m.Sorted(); len(got) != 1 || got[0] != root {
		t.Fatalf("initial candidates = %v, want [root]", got)
	}

	if err := m.MarkRunning(root); err != nil {
		t.Fatal(err)
	}
	m.Remove(root)
	if err := m.MarkDone(root); err != nil {
		t.Fatal(err)
	}

	got := m.Sorted()
	if len(got) != 2 {
		t.Fatalf("after root done, candidates = %v, want [l r]", got)
	}

	// sink must not be a candidate until both l and r are done.
	if err := m.MarkRunning(l); err != nil {
		t.Fatal(err)
	}
	m.Remove(l)
	if err := m.MarkDone(l); err != nil {
		t.Fatal(err)
	}
	for _, c := range m.Sorted() {
		if c == sink {
			t.Fatalf("sink became a candidate before r finished")
		}
	}

	if err := m.MarkRunning(r); err != nil {
		t.Fatal(err)
	}
	m.Remove(r)
	if err := m.MarkDone(r); err != nil {
		t.Fatal(err)
	}

	found := false
	for _, c := range m.Sorted() {
		if c == sink {
			found = true
		}
	}
	if !found {
		t.Fatalf("sink should be a candidate once l and r are done")
	}
	if !m.Drained() {
		// sink is still ToDo, so the run is not drained yet.
	}
}

func TestManager_TimeframeSortIsStable(t *testing.T) {
	doc := &workflow.Document{Stages: []workflow.Task{
		{Name: "a", Cmd: "true", Timeframe: 2},
		{Name: "b", Cmd: "true", Timeframe: 1},
		{Name: "c", Cmd: "true", Timeframe: 1},
	}}
	g := buildGraph(t, doc)
	m := NewManager(g)
	m.candidates = []taskgraph.TaskID{g.NameToID["a"], g.NameToID["b"], g.NameToID["c"]}
	for _, id := range m.candidates {
		m.inSet[id] = true
	}

	got := m.Sorted()
	want := []string{"b", "c", "a"}
	for i, id := range got {
		if g.Name(id) != want[i] {
			t.Fatalf("got order %v, want %v", namesOfIDs(g, got), want)
		}
	}
}

func namesOfIDs(g *taskgraph.Graph, ids []taskgraph.TaskID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = g.Name(id)
	}
	return out
}

func TestManager_FailedTaskBlocksSuccessors(t *testing.T) {
	doc := &workflow.Document{Stages: []workflow.Task{
		{Name: "a", Cmd: "false", Timeframe: -1},
		{Name: "b", Cmd: "true", Needs: []string{"a"}, Timeframe: -1},
	}}
	g := buildGraph(t, doc)
	m := NewManager(g)
	a := g.NameToID["a"]
	b := g.NameToID["b"]

	if err := m.MarkRunning(a); err != nil {
		t.Fatal(err)
	}
	m.Remove(a)
	if err := m.MarkFailed(a); err != nil {
		t.Fatal(err)
	}
	if m.Status(b) != ToDo {
		t.Fatalf("b should remain ToDo after a failed, got %s", m.Status(b))
	}
	for _, c := range m.Sorted() {
		if c == b {
			t.Fatalf("b must never become a candidate once its prerequisite failed")
		}
	}
}
