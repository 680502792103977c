package dag

import (
	"fmt"
	"sort"

	"dagrunner/internal/taskgraph"
)

// Manager owns the per-task Status map and the ready (candidate) list for
// one scheduling run. It is the Ready-Set Manager of spec.md §4.D: only
// the scheduler goroutine touches a Manager, so it needs no locking
// (spec.md §5).
type Manager struct {
	g      *taskgraph.Graph
	status []Status

	// candidates is append-ordered: a task is appended exactly once, the
	// moment it first satisfies the candidacy rule, and removed exactly
	// once, when admitted. It is re-sorted by timeframe immediately
	// before each admission attempt via Sorted, not on every mutation.
	candidates []taskgraph.TaskID
	inSet      map[taskgraph.TaskID]bool
}

// NewManager seeds the candidate list with the graph's roots — the
// virtual source node's successors (spec.md §3).
func NewManager(g *taskgraph.Graph) *Manager {
	m := &Manager{
		g:      g,
		status: make([]Status, g.Len()),
		inSet:  make(map[taskgraph.TaskID]bool, g.Len()),
	}
	for _, id := range g.Roots {
		m.candidates = append(m.candidates, id)
		m.inSet[id] = true
	}
	return m
}

// Status returns the current status of id.
func (m *Manager) Status(id taskgraph.TaskID) Status { return m.status[id] }

// Sorted returns a stable copy of the candidate list ordered ascending by
// timeframe weight; ties preserve the existing (append) order, per
// spec.md §4.D's rationale of keeping a timeframe's work bundled together.
func (m *Manager) Sorted() []taskgraph.TaskID {
	out := append([]taskgraph.TaskID(nil), m.candidates...)
	sort.SliceStable(out, func(i, j int) bool {
		return m.g.Task(out[i]).Timeframe < m.g.Task(out[j]).Timeframe
	})
	return out
}

// Remove drops id from the candidate list. Called by the admission
// controller the moment it decides to start id.
func (m *Manager) Remove(id taskgraph.TaskID) {
	if !m.inSet[id] {
		return
	}
	delete(m.inSet, id)
	for i, c := range m.candidates {
		if c == id {
			m.candidates = append(m.candidates[:i], m.candidates[i+1:]...)
			break
		}
	}
}

// MarkRunning transitions id from ToDo to Running.
func (m *Manager) MarkRunning(id taskgraph.TaskID) error {
	if m.status[id] != ToDo {
		return fmt.Errorf("dag: cannot start %q from state %s", m.g.Name(id), m.status[id])
	}
	m.status[id] = Running
	return nil
}

// MarkDone transitions id from Running to Done and appends any
// successors that newly satisfy the candidacy rule.
func (m *Manager) MarkDone(id taskgraph.TaskID) error {
	if m.status[id] != Running {
		return fmt.Errorf("dag: cannot complete %q from state %s", m.g.Name(id), m.status[id])
	}
	m.status[id] = Done
	m.admitNewCandidates(id)
	return nil
}

// MarkFailed transitions id from Running to Failed. Successors of a
// failed task are never appended: under stop-on-failure the whole run
// aborts before any successor could become eligible (spec.md §4.F).
func (m *Manager) MarkFailed(id taskgraph.TaskID) error {
	if m.status[id] != Running {
		return fmt.Errorf("dag: cannot fail %q from state %s", m.g.Name(id), m.status[id])
	}
	m.status[id] = Failed
	return nil
}

func (m *Manager) admitNewCandidates(finished taskgraph.TaskID) {
	for _, succ := range m.g.Successors[finished] {
		if m.status[succ] != ToDo || m.inSet[succ] {
			continue
		}
		if m.eligible(succ) {
			m.candidates = append(m.candidates, succ)
			m.inSet[succ] = true
		}
	}
}

// eligible reports whether id is ToDo with every transitive prerequisite
// Done — the candidacy rule of spec.md §4.D, invariant 4.
func (m *Manager) eligible(id taskgraph.TaskID) bool {
	if m.status[id] != ToDo {
		return false
	}
	for need := range m.g.AllNeeds(id) {
		if m.status[need] != Done {
			return false
		}
	}
	return true
}

// Drained reports whether every task has reached a terminal state and no
// task remains Running — the scheduler's stopping condition.
func (m *Manager) Drained() bool {
	for _, s := range m.status {
		if s == ToDo || s == Running {
			return false
		}
	}
	return true
}

// Stuck reports whether the run is neither drained nor has any
// candidates/running tasks left to make progress — an invariant
// violation the caller should treat as a fatal scheduling error.
func (m *Manager) Stuck(runningCount int) bool {
	return len(m.candidates) == 0 && runningCount == 0 && !m.Drained()
}
