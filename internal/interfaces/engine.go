package interfaces

import "context"

// Engine owns the per-job scheduler loops. The control plane drives it
// through ReloadJob and Cancel so mutations take effect without a restart.
type Engine interface {
	// Run loads the persisted jobs, spawns a loop for each locally owned
	// one, and blocks until the context is cancelled.
	Run(ctx context.Context) error

	// ReloadJob restarts the loop for a single job after a create or
	// update. Any existing loop is cancelled before the replacement
	// starts, so at most one loop per job id is ever live.
	ReloadJob(ctx context.Context, id string)

	// Cancel stops the loop for a deleted job, if one is running.
	Cancel(id string)
}
