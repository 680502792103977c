package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"dagrunner/internal/config"
	"dagrunner/internal/dag"
	"dagrunner/internal/obslog"
	"dagrunner/internal/rerun"
	"dagrunner/internal/script"
	"dagrunner/internal/supervisor"
	"dagrunner/internal/taskgraph"
	"dagrunner/internal/visualize"
	"dagrunner/internal/workflow"
)

// main is a deterministic boundary: it canonicalizes all CLI inputs into
// a Config before any scheduling logic runs.
func main() {
	cfg, err := config.Parse(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(config.ExitConfigError)
	}

	logger, runID, closer, err := obslog.New()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(config.ExitInternalError)
	}
	defer closer.Close()
	logger.Debug().Str("workflow_file", cfg.WorkflowFile).Interface("config", cfg).Msg("starting run " + runID)

	os.Exit(runMain(cfg, logger))
}

// runMain wires the pipeline in the order fixed by the external
// interfaces: load, draw the (cosmetic, build-independent) visualization,
// build the graph, honor the terminal one-shot modes (list-tasks /
// produce-script), optionally invalidate a rerun closure, then hand off
// to the scheduler.
func runMain(cfg *config.Config, logger zerolog.Logger) int {
	doc, err := workflow.ParseFile(cfg.WorkflowFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return config.ExitConfigError
	}

	// The visualization hook draws straight from the parsed document, not
	// the built graph, so it runs before Build and fires even when the
	// workflow is structurally invalid (e.g. a cycle) — it's a debugging
	// aid, and a cyclic workflow is exactly when seeing the declared
	// edges is most useful.
	if cfg.VisualizeWorkflow {
		if err := visualize.WriteDOT("workflow.gv", doc); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return config.ExitInternalError
		}
		visualize.CheckRenderer(logger)
	}

	g, err := taskgraph.Build(doc)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return config.ExitConfigError
	}

	if cfg.ListTasks {
		for _, t := range doc.Stages {
			fmt.Println(t.Name)
		}
		return config.ExitSuccess
	}

	if cfg.ProduceScript != "" {
		if err := script.WriteFile(cfg.ProduceScript, g, time.Now()); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return config.ExitInternalError
		}
		return config.ExitSuccess
	}

	if cfg.RerunFrom != "" {
		removed, err := rerun.Invalidate(g, cfg.RerunFrom)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return config.ExitConfigError
		}
		logger.Debug().Strs("markers_removed", removed).Msg("rerun invalidation complete")
	}

	ready := dag.NewManager(g)
	sup := supervisor.New(g, ready, supervisor.Config{
		MemLimit:        cfg.MemLimit,
		MaxJobsParallel: cfg.MaxJobsParallel,
		DryRun:          cfg.DryRun,
	}, dag.NopHooks{}, logger)

	res, err := sup.Run(context.Background())
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return config.ExitSchedulingFailure
	}
	logger.Debug().Int("succeeded", len(res.Succeeded)).Msg("run complete")
	return config.ExitSuccess
}
