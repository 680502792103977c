package dag

import (
	"context"

	"dagrunner/internal/taskgraph"
)

// Hooks provides optional synchronous hook points around scheduling.
//
// Hooks must be inert: they must not panic and should return quickly,
// since they run inline with the scheduler's single control thread
// (spec.md §5). The scheduler proceeds regardless of hook behavior;
// implementations are expected to log/report as appropriate (e.g. the
// debug log described in SPEC_FULL.md's logging section).
type Hooks interface {
	BeforeAdmit(ctx context.Context, id taskgraph.TaskID)
	AfterReap(ctx context.Context, id taskgraph.TaskID, status Status)
}

// NopHooks is a no-op Hooks implementation.
type NopHooks struct{}

func (NopHooks) BeforeAdmit(context.Context, taskgraph.TaskID)       {}
func (NopHooks) AfterReap(context.Context, taskgraph.TaskID, Status) {}
