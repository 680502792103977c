// Package supervisor implements the admission controller and process
// supervisor: it decides which ready tasks may start given the memory
// budget and parallelism cap, spawns them as shell children, and reaps
// them as they finish.
package supervisor

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"dagrunner/internal/dag"
	"dagrunner/internal/taskgraph"
)

// Config holds the immutable settings threaded through a run.
type Config struct {
	MemLimit        uint64
	MaxJobsParallel int
	DryRun          bool
	PollInterval    time.Duration
}

// DefaultPollInterval mirrors the one-second poll cadence; when
// Config.PollInterval is left zero, New uses DryRunPollInterval instead if
// Config.DryRun is set.
const (
	DefaultPollInterval = 1 * time.Second
	DryRunPollInterval  = 10 * time.Millisecond
)

// Result summarizes a completed run.
type Result struct {
	Succeeded []taskgraph.TaskID
	Failed    *taskgraph.TaskID // first task that failed, if any
}

type runningProc struct {
	id      taskgraph.TaskID
	cmd     *exec.Cmd
	logFile *os.File
}

type reapMsg struct {
	id  taskgraph.TaskID
	err error
}

// Supervisor owns the single-threaded scheduling loop: admission,
// spawning, and reaping. Only the goroutine calling Run ever touches its
// state, so no locking is required (spec §5).
type Supervisor struct {
	g      *taskgraph.Graph
	ready  *dag.Manager
	cfg    Config
	hooks  dag.Hooks
	logger zerolog.Logger

	curMemBooked uint64
	running      map[taskgraph.TaskID]*runningProc
	resultsCh    chan reapMsg
}

// New constructs a Supervisor for one run over g, using ready as the
// shared candidate/status tracker.
func New(g *taskgraph.Graph, ready *dag.Manager, cfg Config, hooks dag.Hooks, logger zerolog.Logger) *Supervisor {
	if hooks == nil {
		hooks = dag.NopHooks{}
	}
	if cfg.PollInterval == 0 {
		if cfg.DryRun {
			cfg.PollInterval = DryRunPollInterval
		} else {
			cfg.PollInterval = DefaultPollInterval
		}
	}
	return &Supervisor{
		g:         g,
		ready:     ready,
		cfg:       cfg,
		hooks:     hooks,
		logger:    logger,
		running:   make(map[taskgraph.TaskID]*runningProc),
		resultsCh: make(chan reapMsg),
	}
}

// Run drives the admission/spawn/poll/reap loop to completion: either the
// graph drains, or a child fails and stop-on-failure aborts the run.
func (s *Supervisor) Run(ctx context.Context) (*Result, error) {
	res := &Result{}
	for {
		if err := s.admit(ctx); err != nil {
			s.killAll()
			return res, err
		}

		if s.ready.Drained() && len(s.running) == 0 {
			return res, nil
		}
		if s.ready.Stuck(len(s.running)) {
			return res, fmt.Errorf("supervisor: scheduler stuck with %d ready tasks, %d running, but graph not drained",
				len(s.ready.Sorted()), len(s.running))
		}

		select {
		case msg := <-s.resultsCh:
			s.reap(msg, res)
			// Drain any other results already queued from the same pass
			// without blocking, so a batch of concurrent finishers is
			// processed together before the next admission pass.
			for drained := true; drained; {
				select {
				case msg := <-s.resultsCh:
					s.reap(msg, res)
				default:
					drained = false
				}
			}
			if res.Failed != nil {
				s.killAll()
				return res, fmt.Errorf("supervisor: task %q failed, aborting", s.g.Name(*res.Failed))
			}
		case <-time.After(s.cfg.PollInterval):
		case <-ctx.Done():
			s.killAll()
			return res, ctx.Err()
		}
	}
}

// admit scans the sorted candidate list and starts as many as the memory
// and parallelism budgets allow. Per spec §4.E it stops scanning — does
// not skip past — the first candidate that fails the memory test.
func (s *Supervisor) admit(ctx context.Context) error {
	for _, id := range s.ready.Sorted() {
		if len(s.running) >= s.cfg.MaxJobsParallel {
			return nil
		}
		task := s.g.Task(id)
		if s.curMemBooked+task.Resources.Mem > s.cfg.MemLimit {
			return nil
		}

		s.hooks.BeforeAdmit(ctx, id)
		if err := s.ready.MarkRunning(id); err != nil {
			return err
		}
		s.ready.Remove(id)
		s.curMemBooked += task.Resources.Mem

		if err := s.spawn(id); err != nil {
			return fmt.Errorf("supervisor: spawning %q: %w", task.Name, err)
		}
	}
	return nil
}

// spawn starts the task's child process and launches a goroutine that
// blocks on its exit and reports the result back on resultsCh — the
// non-blocking-poll substitute Go requires since os.Process has no Poll.
func (s *Supervisor) spawn(id taskgraph.TaskID) error {
	task := s.g.Task(id)

	cwd := task.Cwd
	if cwd == "" {
		cwd = "."
	} else if err := ensureDir(cwd); err != nil {
		return err
	}

	var cmd *exec.Cmd
	if s.cfg.DryRun {
		cmd = exec.Command("echo", fmt.Sprintf("[dry-run] %s", task.Name))
	} else {
		cmd = exec.Command("/bin/bash", "-c", task.Cmd)
	}
	cmd.Dir = cwd
	cmd.Env = append(os.Environ(), "JOBUTILS_SKIPDONE=ON")

	// Per-task output capture is only for real runs: dry-run must not
	// create any file beyond the mkdir of a declared cwd (spec.md's
	// dry-run purity property), and it never spawns the real command
	// anyway, so there is nothing worth capturing.
	var logFile *os.File
	if !s.cfg.DryRun {
		var err error
		logFile, err = os.Create(filepath.Join(cwd, task.Name+".supervisor.log"))
		if err != nil {
			return err
		}
		cmd.Stdout = logFile
		cmd.Stderr = logFile
	}

	if err := cmd.Start(); err != nil {
		if logFile != nil {
			logFile.Close()
		}
		return err
	}

	rp := &runningProc{id: id, cmd: cmd, logFile: logFile}
	s.running[id] = rp

	go func() {
		err := cmd.Wait()
		s.resultsCh <- reapMsg{id: id, err: err}
	}()

	s.logger.Debug().Str("task", task.Name).Str("cwd", cwd).Msg("spawned")
	return nil
}

// reap processes one finished child: releases its memory reservation,
// updates the ready-set manager, and records success/failure.
func (s *Supervisor) reap(msg reapMsg, res *Result) {
	rp, ok := s.running[msg.id]
	if !ok {
		return
	}
	delete(s.running, msg.id)
	if rp.logFile != nil {
		rp.logFile.Close()
	}

	task := s.g.Task(msg.id)
	s.curMemBooked -= task.Resources.Mem

	if msg.err == nil {
		if err := s.ready.MarkDone(msg.id); err != nil {
			s.logger.Error().Err(err).Str("task", task.Name).Msg("status transition failed")
		}
		res.Succeeded = append(res.Succeeded, msg.id)
		s.hooks.AfterReap(context.Background(), msg.id, dag.Done)
		s.logger.Debug().Str("task", task.Name).Msg("done")
		return
	}

	if err := s.ready.MarkFailed(msg.id); err != nil {
		s.logger.Error().Err(err).Str("task", task.Name).Msg("status transition failed")
	}
	id := msg.id
	if res.Failed == nil {
		res.Failed = &id
	}
	s.hooks.AfterReap(context.Background(), msg.id, dag.Failed)
	s.logger.Error().Str("task", task.Name).Err(msg.err).Msg("failed")
}

// killAll force-kills every still-running child; used on fatal abort.
// The scheduler does not wait for their reaping (spec §5).
func (s *Supervisor) killAll() {
	for id, rp := range s.running {
		if rp.cmd.Process != nil {
			_ = rp.cmd.Process.Kill()
		}
		if rp.logFile != nil {
			rp.logFile.Close()
		}
		delete(s.running, id)
	}
}

func ensureDir(path string) error {
	info, err := os.Stat(path)
	if err == nil {
		if !info.IsDir() {
			return fmt.Errorf("supervisor: cwd %q exists and is not a directory", path)
		}
		return nil
	}
	if !os.IsNotExist(err) {
		return err
	}
	return os.Mkdir(path, 0o755)
}
