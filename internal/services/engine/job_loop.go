package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ternarybob/horarium/internal/common"
	"github.com/ternarybob/horarium/internal/interfaces"
	"github.com/ternarybob/horarium/internal/models"
)

// runLoop drives one job through its lifecycle until the job is deleted,
// disabled, or the context is cancelled. The job snapshot is immutable;
// configuration changes arrive as a fresh loop via ReloadJob.
func (s *Service) runLoop(ctx context.Context, job models.Job) {
	for {
		if _, ok := s.liveRow(ctx, job.ID); !ok {
			return
		}

		// First pass doubles as restart recovery: stale running/start
		// states from a previous process are reset. Later passes are the
		// terminal-to-scheduled edge of the state machine.
		s.updateStatus(ctx, job.ID, models.JobStatusScheduled)

		next, err := models.NextRun(job.Cron, time.Now())
		if err != nil || next.IsZero() {
			s.logger.Error().
				Str("job_id", job.ID).
				Str("cron", job.Cron).
				Msg("Invalid cron expression, stopping loop")
			return
		}

		sleep := time.Until(next)
		if sleep <= 0 {
			// Fire time in the past means clock skew; back off instead
			// of spinning.
			sleep = s.minSleep
		}

		timer := time.NewTimer(sleep)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}

		// The row may have been deleted or disabled while sleeping;
		// firing now would resurrect its status.
		if _, ok := s.liveRow(ctx, job.ID); !ok {
			return
		}

		s.executeTick(ctx, &job)
	}
}

// liveRow re-reads the job's row so deletion and disabling converge even
// on shards that never saw the mutating request. A false return means the
// loop should exit.
func (s *Service) liveRow(ctx context.Context, id string) (*models.JobRaw, bool) {
	raw, err := s.store.GetJob(ctx, id)
	if err != nil {
		if ctx.Err() != nil {
			return nil, false
		}
		if errors.Is(err, interfaces.ErrJobNotFound) {
			s.logger.Info().Str("job_id", id).Msg("Job deleted, stopping loop")
		} else {
			s.logger.Warn().Err(err).Str("job_id", id).Msg("Failed to re-read job, stopping loop")
		}
		return nil, false
	}

	if raw.Status == models.JobStatusDisabled {
		s.logger.Info().Str("job_id", id).Msg("Job disabled, stopping loop")
		return nil, false
	}

	return raw, true
}

// executeTick runs one firing of the job: start → running → terminal,
// then last_run.
func (s *Service) executeTick(ctx context.Context, job *models.Job) {
	s.updateStatus(ctx, job.ID, models.JobStatusStart)

	handler, err := s.registry.Get(job.Task.TaskType())
	if err != nil {
		s.logger.Error().Err(err).
			Str("job_id", job.ID).
			Str("task_type", job.Task.TaskType()).
			Msg("No handler for task type")
		s.updateStatus(ctx, job.ID, models.JobStatusFailed)
		s.updateLastRun(ctx, job.ID)
		return
	}

	s.updateStatus(ctx, job.ID, models.JobStatusRunning)

	start := time.Now()
	if err := s.safeHandle(ctx, handler, job); err != nil {
		s.logger.Warn().Err(err).
			Str("job_id", job.ID).
			Str("name", job.Name).
			Str("duration", time.Since(start).String()).
			Msg("Job execution failed")
		s.updateStatus(ctx, job.ID, models.JobStatusFailed)
	} else {
		s.logger.Info().
			Str("job_id", job.ID).
			Str("name", job.Name).
			Str("duration", time.Since(start).String()).
			Msg("Job executed")
		s.updateStatus(ctx, job.ID, models.JobStatusSuccess)
	}

	s.updateLastRun(ctx, job.ID)
}

// safeHandle converts a handler panic into a failed tick so one bad task
// cannot take down the scheduler.
func (s *Service) safeHandle(ctx context.Context, handler interfaces.TaskHandler, job *models.Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panicked: %v", r)
			s.logger.Error().
				Str("job_id", job.ID).
				Str("stack", common.GetStackTrace()).
				Msg("Task handler panic recovered")
		}
	}()

	return handler.Handle(ctx, job.Task)
}

// updateStatus persists a status transition. Loop writes are best-effort;
// a failure is logged and the next successful write resyncs.
func (s *Service) updateStatus(ctx context.Context, id string, status models.JobStatus) {
	if ctx.Err() != nil {
		return
	}
	if err := s.store.UpdateStatus(ctx, id, status); err != nil {
		s.logger.Warn().Err(err).
			Str("job_id", id).
			Str("status", string(status)).
			Msg("Failed to persist job status")
	}
}

// updateLastRun records the completion instant. Best-effort like status.
func (s *Service) updateLastRun(ctx context.Context, id string) {
	if ctx.Err() != nil {
		return
	}
	if err := s.store.UpdateLastRun(ctx, id, time.Now()); err != nil {
		s.logger.Warn().Err(err).
			Str("job_id", id).
			Msg("Failed to persist last run")
	}
}
