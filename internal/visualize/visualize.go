// Package visualize implements the optional DAG visualization hook: a
// cosmetic dump of the workflow to a Graphviz DOT file. Per spec, the
// absence of the external `dot` renderer is non-fatal.
package visualize

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"

	"github.com/rs/zerolog"

	"dagrunner/internal/workflow"
)

// WriteDOT renders doc as Graphviz DOT source to path, drawing directly
// from the parsed workflow document rather than the built graph — the
// hook is a cosmetic dump of the declared edges, not a scheduling view.
func WriteDOT(path string, doc *workflow.Document) error {
	var buf bytes.Buffer
	buf.WriteString("digraph workflow {\n")
	buf.WriteString("  rankdir=LR;\n")
	for _, task := range doc.Stages {
		fmt.Fprintf(&buf, "  %q;\n", task.Name)
	}
	for _, task := range doc.Stages {
		for _, need := range task.Needs {
			fmt.Fprintf(&buf, "  %q -> %q;\n", need, task.Name)
		}
	}
	buf.WriteString("}\n")
	return os.WriteFile(path, buf.Bytes(), 0o644)
}

// CheckRenderer looks for the `dot` binary on PATH and logs a notice
// (not an error) if it is absent, per the external-collaborator contract:
// a missing renderer must never fail the run.
func CheckRenderer(logger zerolog.Logger) {
	if _, err := exec.LookPath("dot"); err != nil {
		logger.Info().Msg("graphviz 'dot' not found on PATH; workflow.gv written but not rendered")
	}
}
