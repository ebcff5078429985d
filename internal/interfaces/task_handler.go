package interfaces

import (
	"context"

	"github.com/ternarybob/horarium/internal/models"
)

// TaskHandler executes one kind of task. Handlers are registered once at
// boot, keyed by the tag they report, and invoked by the scheduler loop
// each time a job fires.
type TaskHandler interface {
	// TaskType returns the payload tag this handler executes.
	TaskType() string

	// Handle runs the task to completion. The payload carries the variant
	// matching TaskType; the context is cancelled on shutdown or reload.
	Handle(ctx context.Context, payload models.TaskPayload) error
}

// TaskRegistry resolves handlers by tag. Populated before the engine runs
// and immutable afterwards.
type TaskRegistry interface {
	// Get returns the handler registered for the tag, or an error when
	// none is registered.
	Get(taskType string) (TaskHandler, error)
}
