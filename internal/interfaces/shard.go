package interfaces

import "github.com/ternarybob/horarium/internal/models"

// ShardManager decides which jobs this process owns. Ownership is a pure
// function of the job id, so every instance in a fleet reaches the same
// verdict without coordination.
type ShardManager interface {
	// GetLocalJobs lifts the raw rows into runtime jobs and keeps only
	// those owned by this instance. Rows that fail to lift are dropped
	// with a log entry rather than failing the batch.
	GetLocalJobs(raws []models.JobRaw) []models.Job

	// Owns reports whether the given job id hashes to this instance.
	Owns(id string) bool
}
