// Package engine drives the per-job scheduler loops: boot-time load and
// fan-out, hot reload after control-plane mutations, and shutdown.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/horarium/internal/interfaces"
	"github.com/ternarybob/horarium/internal/models"
)

const (
	// defaultHeartbeat is how often the engine logs its active loop count.
	defaultHeartbeat = 60 * time.Second

	// defaultMinSleep is the floor applied when a computed fire time is
	// already in the past (clock skew).
	defaultMinSleep = time.Second
)

// loopHandle tracks one live scheduler loop
type loopHandle struct {
	cancel context.CancelFunc
}

// Service owns the scheduler loops. Loops derive from the service's own
// root context, never from a request context, so a control-plane call can
// spawn a loop that outlives the request.
type Service struct {
	store    interfaces.JobStorage
	shards   interfaces.ShardManager
	registry interfaces.TaskRegistry
	logger   arbor.ILogger

	heartbeat time.Duration
	minSleep  time.Duration

	rootCtx    context.Context
	rootCancel context.CancelFunc

	mu    sync.Mutex
	loops map[string]*loopHandle
	wg    sync.WaitGroup
}

// Option configures the Service.
type Option func(*Service)

// WithHeartbeat sets the interval between active-loop-count log lines.
func WithHeartbeat(interval time.Duration) Option {
	return func(s *Service) {
		if interval > 0 {
			s.heartbeat = interval
		}
	}
}

// WithMinSleep sets the sleep floor used when a computed fire time is in
// the past.
func WithMinSleep(interval time.Duration) Option {
	return func(s *Service) {
		if interval > 0 {
			s.minSleep = interval
		}
	}
}

// NewService creates the scheduler engine
func NewService(store interfaces.JobStorage, shards interfaces.ShardManager, registry interfaces.TaskRegistry, logger arbor.ILogger, opts ...Option) *Service {
	rootCtx, rootCancel := context.WithCancel(context.Background())

	s := &Service{
		store:      store,
		shards:     shards,
		registry:   registry,
		logger:     logger,
		heartbeat:  defaultHeartbeat,
		minSleep:   defaultMinSleep,
		rootCtx:    rootCtx,
		rootCancel: rootCancel,
		loops:      make(map[string]*loopHandle),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Run loads the persisted jobs, spawns a loop for each locally owned one,
// and holds on a heartbeat until the context is cancelled.
func (s *Service) Run(ctx context.Context) error {
	raws, err := s.store.LoadJobs(ctx)
	if err != nil {
		return fmt.Errorf("failed to load jobs: %w", err)
	}

	jobs := s.shards.GetLocalJobs(raws)
	s.logger.Info().
		Int("persisted", len(raws)).
		Int("local", len(jobs)).
		Msg("Engine starting scheduler loops")

	for _, job := range jobs {
		s.spawnLoop(job)
	}

	ticker := time.NewTicker(s.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("Engine shutting down")
			s.Stop()
			return nil
		case <-ticker.C:
			s.logger.Info().Int("active_loops", s.ActiveLoops()).Msg("Engine heartbeat")
		}
	}
}

// ReloadJob restarts the loop for one job after a create or update. The
// existing loop, if any, is cancelled before the replacement spawns so at
// most one loop per id is ever live.
func (s *Service) ReloadJob(ctx context.Context, id string) {
	s.Cancel(id)

	raw, err := s.store.GetJob(ctx, id)
	if err != nil {
		if errors.Is(err, interfaces.ErrJobNotFound) {
			s.logger.Debug().Str("job_id", id).Msg("Reload for deleted job, nothing to schedule")
		} else {
			s.logger.Warn().Err(err).Str("job_id", id).Msg("Failed to re-read job on reload")
		}
		return
	}

	if !s.shards.Owns(id) {
		s.logger.Debug().Str("job_id", id).Msg("Job not owned by this shard")
		return
	}

	job, err := raw.ToJob()
	if err != nil {
		s.logger.Warn().Err(err).Str("job_id", id).Msg("Job failed to lift, not scheduling")
		return
	}

	s.spawnLoop(*job)
}

// Cancel stops the loop for a job, if one is running
func (s *Service) Cancel(id string) {
	s.mu.Lock()
	handle, ok := s.loops[id]
	if ok {
		delete(s.loops, id)
	}
	s.mu.Unlock()

	if ok {
		handle.cancel()
		s.logger.Debug().Str("job_id", id).Msg("Cancelled scheduler loop")
	}
}

// Stop cancels every loop and waits for them to exit. Idempotent.
func (s *Service) Stop() {
	s.rootCancel()
	s.wg.Wait()
}

// ActiveLoops returns the number of live scheduler loops
func (s *Service) ActiveLoops() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.loops)
}

// spawnLoop starts a scheduler loop for the job, superseding any loop
// already registered under the same id.
func (s *Service) spawnLoop(job models.Job) {
	loopCtx, cancel := context.WithCancel(s.rootCtx)
	handle := &loopHandle{cancel: cancel}

	s.mu.Lock()
	if existing, ok := s.loops[job.ID]; ok {
		existing.cancel()
	}
	s.loops[job.ID] = handle
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.removeLoop(job.ID, handle)
		s.runLoop(loopCtx, job)
	}()

	s.logger.Debug().
		Str("job_id", job.ID).
		Str("name", job.Name).
		Str("cron", job.Cron).
		Msg("Scheduler loop started")
}

// removeLoop unregisters a finished loop. The identity check keeps a
// superseded loop's deferred cleanup from removing its replacement.
func (s *Service) removeLoop(id string, handle *loopHandle) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if current, ok := s.loops[id]; ok && current == handle {
		delete(s.loops, id)
	}
}
