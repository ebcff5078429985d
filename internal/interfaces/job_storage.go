package interfaces

import (
	"context"
	"errors"
	"time"

	"github.com/ternarybob/horarium/internal/models"
)

// ErrJobNotFound is returned when no job row exists for the given id
var ErrJobNotFound = errors.New("job not found")

// JobStorage persists job rows. Implementations store the raw two-column
// form (task_type + payload); lifting into typed payloads happens above
// this layer so a bad row can never poison a bulk load.
type JobStorage interface {
	// LoadJobs returns every persisted job row.
	LoadJobs(ctx context.Context) ([]models.JobRaw, error)

	// GetJob returns a single job row by id.
	GetJob(ctx context.Context, id string) (*models.JobRaw, error)

	// InsertJob persists a new job row. The id must be unique.
	InsertJob(ctx context.Context, job *models.JobRaw) error

	// UpdateJob replaces the definition fields of an existing row (name,
	// cron, task_type, payload, status). last_run is engine-owned and only
	// ever written through UpdateLastRun.
	UpdateJob(ctx context.Context, job *models.JobRaw) error

	// DeleteJob removes a job row by id.
	DeleteJob(ctx context.Context, id string) error

	// UpdateLastRun records the completion instant of the most recent run.
	UpdateLastRun(ctx context.Context, id string, lastRun time.Time) error

	// UpdateStatus moves a job through its lifecycle states.
	UpdateStatus(ctx context.Context, id string, status models.JobStatus) error

	// Close releases the underlying database handle.
	Close() error
}
