package rerun

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"dagrunner/internal/taskgraph"
	"dagrunner/internal/workflow"
)

func touchMarker(t *testing.T, dir, name string) {
	t.Helper()
	path := filepath.Join(dir, name+".log_done")
	if err := os.WriteFile(path, []byte{}, 0o644); err != nil {
		t.Fatalf("touch marker %s: %v", path, err)
	}
}

func TestInvalidate_LinearChain(t *testing.T) {
	dir := t.TempDir()
	doc := &workflow.Document{Stages: []workflow.Task{
		{Name: "a", Cmd: "true", Cwd: dir, Timeframe: -1},
		{Name: "b", Cmd: "true", Cwd: dir, Needs: []string{"a"}, Timeframe: -1},
		{Name: "c", Cmd: "true", Cwd: dir, Needs: []string{"b"}, Timeframe: -1},
	}}
	g, err := taskgraph.Build(doc)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	for _, name := range []string{"a", "b", "c"} {
		touchMarker(t, dir, name)
	}

	removed, err := Invalidate(g, "b")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(removed) != 2 {
		t.Fatalf("got %v, want markers for b and c removed", removed)
	}

	if _, err := os.Stat(filepath.Join(dir, "a.log_done")); err != nil {
		t.Fatalf("a's marker should be retained: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "b.log_done")); !os.IsNotExist(err) {
		t.Fatalf("b's marker should have been removed")
	}
	if _, err := os.Stat(filepath.Join(dir, "c.log_done")); !os.IsNotExist(err) {
		t.Fatalf("c's marker should have been removed")
	}
}

func TestInvalidate_UnknownTask(t *testing.T) {
	doc := &workflow.Document{Stages: []workflow.Task{{Name: "a", Cmd: "true", Timeframe: -1}}}
	g, err := taskgraph.Build(doc)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	_, err = Invalidate(g, "ghost")
	if !errors.Is(err, ErrUnknownTask) {
		t.Fatalf("got %v, want ErrUnknownTask", err)
	}
}

func TestInvalidate_MissingMarkerIsNotAnError(t *testing.T) {
	dir := t.TempDir()
	doc := &workflow.Document{Stages: []workflow.Task{{Name: "a", Cmd: "true", Cwd: dir, Timeframe: -1}}}
	g, err := taskgraph.Build(doc)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	removed, err := Invalidate(g, "a")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(removed) != 0 {
		t.Fatalf("got %v, want no markers removed", removed)
	}
}
