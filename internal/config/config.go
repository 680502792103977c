// Package config parses the command-line surface into an immutable
// configuration value, threaded explicitly through the rest of the
// program rather than held in package-level mutable state.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/spf13/pflag"
)

// Exit codes returned to the OS, mirroring the error-kind table.
const (
	ExitSuccess           = 0
	ExitConfigError       = 1
	ExitSchedulingFailure = 2
	ExitInternalError     = 3
)

// DefaultMaxJobs is the --maxjobs default.
const DefaultMaxJobs = 100

// defaultMemLimitFallback is used when the host's total memory cannot be
// determined, mirroring the source's psutil-unavailable fallback.
const defaultMemLimitFallback = uint64(16 * humanize.GiByte)

// Config is the fully-resolved, immutable set of settings for one
// invocation.
type Config struct {
	WorkflowFile      string
	MaxJobsParallel   int
	DryRun            bool
	VisualizeWorkflow bool
	ProduceScript     string
	RerunFrom         string
	ListTasks         bool
	MemLimit          uint64
}

// ErrTargetStagesUnsupported is returned when --target-stages is set.
// The flag is declared by upstream tooling but its filtering semantics
// were never specified; rather than silently ignoring it (and quietly
// running a different DAG than the user expects), this rejects the
// invocation outright until the semantics are clarified.
var ErrTargetStagesUnsupported = errors.New("config: --target-stages is not yet supported; leave it unset")

// normalizeJmax rewrites a leading single-dash `-jmax` token into its
// double-dash spelling before pflag ever sees it.
//
// spec.md §6 documents `-jmax / --maxjobs N`, mirroring the original
// argparse surface's single-dash multi-letter `-jmax N`. pflag's
// shorthand parser, though, treats any non-bool single-char shorthand as
// consuming the rest of the token as its value, so `-jmax` is read as
// shorthand `-j` with the attached value `"max"` — never reaching the
// `jmax` long flag at all. Rewriting the token ahead of fs.Parse is the
// accommodation; it leaves every other flag spelling (`--jmax`,
// `--maxjobs`, `-j`) untouched.
func normalizeJmax(args []string) []string {
	out := make([]string, len(args))
	for i, a := range args {
		switch {
		case a == "-jmax":
			out[i] = "--jmax"
		case strings.HasPrefix(a, "-jmax="):
			out[i] = "-" + a
		default:
			out[i] = a
		}
	}
	return out
}

// Parse parses args (excluding the program name) into a Config.
func Parse(args []string) (*Config, error) {
	fs := pflag.NewFlagSet("dagrunner", pflag.ContinueOnError)

	workflowFile := fs.StringP("workflowfile", "f", "", "path to the workflow JSON document (required)")
	maxJobs := fs.IntP("maxjobs", "j", DefaultMaxJobs, "maximum number of concurrent child processes")
	fs.IntVarP(maxJobs, "jmax", "", DefaultMaxJobs, "alias of --maxjobs")
	dryRun := fs.Bool("dry-run", false, "spawn echo stubs instead of real commands")
	visualize := fs.Bool("visualize-workflow", false, "dump workflow.gv and continue")
	targetStages := fs.String("target-stages", "", "reserved; rejected if set")
	produceScript := fs.String("produce-script", "", "emit a standalone serial script to PATH and exit")
	rerunFrom := fs.String("rerun-from", "", "invalidate done-markers for NAME and its downstream closure, then run")
	listTasks := fs.Bool("list-tasks", false, "print task names and exit 0")
	memLimit := fs.String("mem-limit", "", "admission memory cap in bytes; default is total system memory")

	if err := fs.Parse(normalizeJmax(args)); err != nil {
		return nil, err
	}

	if *workflowFile == "" {
		return nil, errors.New("config: --workflowfile is required")
	}
	if *targetStages != "" {
		return nil, ErrTargetStagesUnsupported
	}

	cfg := &Config{
		WorkflowFile:      *workflowFile,
		MaxJobsParallel:   *maxJobs,
		DryRun:            *dryRun,
		VisualizeWorkflow: *visualize,
		ProduceScript:     *produceScript,
		RerunFrom:         *rerunFrom,
		ListTasks:         *listTasks,
	}

	limit, err := resolveMemLimit(*memLimit)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	cfg.MemLimit = limit

	return cfg, nil
}

func resolveMemLimit(flagVal string) (uint64, error) {
	if flagVal != "" {
		n, err := humanize.ParseBytes(flagVal)
		if err != nil {
			return 0, fmt.Errorf("parsing --mem-limit %q: %w", flagVal, err)
		}
		return n, nil
	}
	vm, err := mem.VirtualMemory()
	if err != nil || vm.Total == 0 {
		return defaultMemLimitFallback, nil
	}
	return vm.Total, nil
}
