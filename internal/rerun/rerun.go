// Package rerun implements the rerun/resume logic: invalidating the
// done-markers of a named task and everything transitively downstream of
// it, so a subsequent run re-executes exactly that closure.
package rerun

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"dagrunner/internal/taskgraph"
)

// ErrUnknownTask is returned when the rerun target does not name a task
// in the graph. Callers must abort without touching any state.
var ErrUnknownTask = errors.New("rerun: unknown task")

// Invalidate resolves name to a task, computes its transitive downstream
// closure (the task itself plus everything reachable via successors),
// and deletes each member's done-marker file if present. It returns the
// names whose markers were removed, for logging.
func Invalidate(g *taskgraph.Graph, name string) ([]string, error) {
	id, ok := g.NameToID[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTask, name)
	}

	closure := downstreamClosure(g, id)

	removed := make([]string, 0, len(closure))
	for member := range closure {
		task := g.Task(member)
		marker := markerPath(task.Cwd, task.Name)
		ok, err := removeIfRegularFile(marker)
		if err != nil {
			return removed, fmt.Errorf("rerun: removing marker %q: %w", marker, err)
		}
		if ok {
			removed = append(removed, task.Name)
		}
	}
	return removed, nil
}

// downstreamClosure computes {root} ∪ every task reachable from root via
// successor edges, tracking visited nodes so a subtree shared by several
// paths is walked only once within the call (spec.md's memoization note
// for transitive-closure computation, mirrored here for the downstream
// direction — DESIGN.md cross-reference).
func downstreamClosure(g *taskgraph.Graph, root taskgraph.TaskID) map[taskgraph.TaskID]struct{} {
	visited := make(map[taskgraph.TaskID]struct{})
	var visit func(taskgraph.TaskID)
	visit = func(id taskgraph.TaskID) {
		if _, ok := visited[id]; ok {
			return
		}
		visited[id] = struct{}{}
		for _, succ := range g.Successors[id] {
			visit(succ)
		}
	}
	visit(root)
	return visited
}

func markerPath(cwd, name string) string {
	if cwd == "" {
		cwd = "."
	}
	return filepath.Join(cwd, name+".log_done")
}

// removeIfRegularFile deletes path iff it exists and is a regular file,
// leaving directories or other unexpected entries untouched.
func removeIfRegularFile(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	if !info.Mode().IsRegular() {
		return false, nil
	}
	if err := os.Remove(path); err != nil {
		return false, err
	}
	return true, nil
}
