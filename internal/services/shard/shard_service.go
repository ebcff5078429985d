package shard

import (
	"fmt"
	"hash/fnv"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/horarium/internal/common"
	"github.com/ternarybob/horarium/internal/interfaces"
	"github.com/ternarybob/horarium/internal/models"
)

// ShardIndex maps a job id onto one of n shards using 64-bit FNV-1a over
// the id's bytes. The hash is a fixed function, never a per-process salted
// hasher, so every instance in a fleet computes the same owner for the
// same id across restarts and platforms. A non-positive shard count maps
// everything to shard 0.
func ShardIndex(id string, totalShards int) int {
	if totalShards < 1 {
		return 0
	}
	h := fnv.New64a()
	h.Write([]byte(id))
	return int(h.Sum64() % uint64(totalShards))
}

// NewManager builds the shard manager for the configured mode.
func NewManager(config *common.ShardConfig, logger arbor.ILogger) (interfaces.ShardManager, error) {
	switch config.Mode {
	case common.ShardModeLocal:
		return NewLocalManager(logger), nil
	case common.ShardModeDistributed:
		return NewDistributedManager(config.ShardID, config.TotalShards, logger)
	default:
		return nil, fmt.Errorf("unknown shard mode %q", config.Mode)
	}
}

// LocalManager owns every job. Single-process deployments use this mode;
// the shard count is cosmetic.
type LocalManager struct {
	logger arbor.ILogger
}

// NewLocalManager creates a shard manager that owns all jobs
func NewLocalManager(logger arbor.ILogger) *LocalManager {
	return &LocalManager{logger: logger}
}

// GetLocalJobs lifts every raw row; all jobs are owned
func (m *LocalManager) GetLocalJobs(raws []models.JobRaw) []models.Job {
	return liftOwned(raws, m.Owns, m.logger)
}

// Owns always reports true in local mode
func (m *LocalManager) Owns(id string) bool {
	return true
}

// DistributedManager owns the jobs whose id hashes to its shard. Every
// process in the fleet must agree on totalShards and carry a distinct
// shardID for the partition to be exhaustive and disjoint.
type DistributedManager struct {
	shardID     int
	totalShards int
	logger      arbor.ILogger
}

// NewDistributedManager creates a shard manager for one slice of the fleet
func NewDistributedManager(shardID, totalShards int, logger arbor.ILogger) (*DistributedManager, error) {
	if totalShards < 1 {
		return nil, fmt.Errorf("total shards must be at least 1, got %d", totalShards)
	}
	if shardID < 0 || shardID >= totalShards {
		return nil, fmt.Errorf("shard id %d out of range [0,%d)", shardID, totalShards)
	}

	return &DistributedManager{
		shardID:     shardID,
		totalShards: totalShards,
		logger:      logger,
	}, nil
}

// GetLocalJobs lifts the raw rows and keeps the shard-owned subset
func (m *DistributedManager) GetLocalJobs(raws []models.JobRaw) []models.Job {
	return liftOwned(raws, m.Owns, m.logger)
}

// Owns reports whether the job id hashes to this shard
func (m *DistributedManager) Owns(id string) bool {
	return ShardIndex(id, m.totalShards) == m.shardID
}

// liftOwned lifts owned rows into runtime jobs. A row that fails to lift
// is dropped with a log entry; it never fails the batch.
func liftOwned(raws []models.JobRaw, owns func(string) bool, logger arbor.ILogger) []models.Job {
	jobs := make([]models.Job, 0, len(raws))
	for _, raw := range raws {
		if !owns(raw.ID) {
			continue
		}

		job, err := raw.ToJob()
		if err != nil {
			logger.Warn().Err(err).Str("job_id", raw.ID).Msg("Skipping job that failed to lift")
			continue
		}

		jobs = append(jobs, *job)
	}
	return jobs
}
