// Package script emits a standalone shell script that runs a workflow
// serially, in topological order, without the scheduler.
package script

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"dagrunner/internal/taskgraph"
)

const banner = "# Autogenerated by dagrunner --produce-script. Do not edit by hand.\n"

// Render serializes g's first topological ordering into a POSIX shell
// script body. Each task emits a mkdir of its cwd (if non-empty), a cd
// into it, the raw command, and a cd back to the prior directory.
func Render(g *taskgraph.Graph, generatedAt time.Time) []byte {
	var buf bytes.Buffer
	buf.WriteString("#!/bin/sh\n")
	buf.WriteString(banner)
	fmt.Fprintf(&buf, "# generated %s\n", generatedAt.UTC().Format(time.RFC3339))
	buf.WriteString("set -e\n")
	buf.WriteString("export JOBUTILS_SKIPDONE=ON\n\n")

	for _, id := range g.TopologicalOrder() {
		task := g.Task(id)
		fmt.Fprintf(&buf, "# task: %s\n", task.Name)
		if task.Cwd != "" {
			fmt.Fprintf(&buf, "mkdir -p %s\n", shellQuote(task.Cwd))
			fmt.Fprintf(&buf, "cd %s\n", shellQuote(task.Cwd))
		}
		buf.WriteString(task.Cmd)
		buf.WriteString("\n")
		if task.Cwd != "" {
			buf.WriteString("cd -\n")
		}
		buf.WriteString("\n")
	}
	return buf.Bytes()
}

// WriteFile renders g and writes it atomically to path with executable
// permissions, following the temp-file-then-rename idiom used elsewhere
// in this codebase for crash-safe writes.
func WriteFile(path string, g *taskgraph.Graph, generatedAt time.Time) error {
	return writeFileAtomic(path, Render(g, generatedAt), 0o755)
}

func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	base := filepath.Base(path)
	tmp, err := os.CreateTemp(dir, base+".tmp.*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}()

	if _, err := tmp.Write(data); err != nil {
		return err
	}
	if err := tmp.Chmod(perm); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'"'"'`) + "'"
}
