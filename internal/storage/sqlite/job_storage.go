package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/horarium/internal/interfaces"
	"github.com/ternarybob/horarium/internal/models"
)

// JobStorage implements SQLite persistence for scheduled jobs
type JobStorage struct {
	db     *SQLiteDB
	logger arbor.ILogger
	mu     sync.Mutex
}

// NewJobStorage creates a new job storage instance
func NewJobStorage(db *SQLiteDB, logger arbor.ILogger) interfaces.JobStorage {
	return &JobStorage{
		db:     db,
		logger: logger,
	}
}

// formatLastRun converts an optional completion time to its stored form,
// RFC3339 in UTC.
func formatLastRun(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{Valid: true, String: t.UTC().Format(time.RFC3339)}
}

// scanJobRow scans a jobs row into its raw form
func scanJobRow(scanner interface{ Scan(...interface{}) error }) (*models.JobRaw, error) {
	var raw models.JobRaw
	var payload, lastRun sql.NullString
	var status string

	if err := scanner.Scan(&raw.ID, &raw.Name, &raw.Cron, &raw.TaskType, &payload, &lastRun, &status); err != nil {
		return nil, err
	}

	raw.Payload = payload.String

	if lastRun.Valid && lastRun.String != "" {
		t, err := time.Parse(time.RFC3339, lastRun.String)
		if err != nil {
			return nil, fmt.Errorf("failed to parse last_run for job %s: %w", raw.ID, err)
		}
		t = t.UTC()
		raw.LastRun = &t
	}

	parsed, err := models.ParseJobStatus(status)
	if err != nil {
		return nil, fmt.Errorf("job %s has invalid status: %w", raw.ID, err)
	}
	raw.Status = parsed

	return &raw, nil
}

// LoadJobs returns every persisted job row
func (s *JobStorage) LoadJobs(ctx context.Context) ([]models.JobRaw, error) {
	query := `SELECT id, name, cron, task_type, payload, last_run, status FROM jobs ORDER BY id`

	rows, err := s.db.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query jobs: %w", err)
	}
	defer rows.Close()

	var jobs []models.JobRaw
	for rows.Next() {
		raw, err := scanJobRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan job: %w", err)
		}
		jobs = append(jobs, *raw)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate jobs: %w", err)
	}

	return jobs, nil
}

// GetJob returns a single job row by id
func (s *JobStorage) GetJob(ctx context.Context, id string) (*models.JobRaw, error) {
	query := `SELECT id, name, cron, task_type, payload, last_run, status FROM jobs WHERE id = ?`

	raw, err := scanJobRow(s.db.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, interfaces.ErrJobNotFound
		}
		return nil, fmt.Errorf("failed to get job %s: %w", id, err)
	}

	return raw, nil
}

// InsertJob persists a new job row
func (s *JobStorage) InsertJob(ctx context.Context, job *models.JobRaw) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO jobs (id, name, cron, task_type, payload, last_run, status)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.db.ExecContext(ctx, query,
		job.ID,
		job.Name,
		job.Cron,
		job.TaskType,
		job.Payload,
		formatLastRun(job.LastRun),
		string(job.Status),
	)
	if err != nil {
		return fmt.Errorf("failed to insert job %s: %w", job.ID, err)
	}

	s.logger.Debug().Str("job_id", job.ID).Str("name", job.Name).Msg("Job inserted")
	return nil
}

// UpdateJob replaces the definition fields of an existing row. last_run is
// deliberately absent from the UPDATE; it belongs to UpdateLastRun.
func (s *JobStorage) UpdateJob(ctx context.Context, job *models.JobRaw) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		UPDATE jobs
		SET name = ?, cron = ?, task_type = ?, payload = ?, status = ?
		WHERE id = ?
	`

	result, err := s.db.db.ExecContext(ctx, query,
		job.Name,
		job.Cron,
		job.TaskType,
		job.Payload,
		string(job.Status),
		job.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update job %s: %w", job.ID, err)
	}

	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return interfaces.ErrJobNotFound
	}

	s.logger.Debug().Str("job_id", job.ID).Msg("Job updated")
	return nil
}

// DeleteJob removes a job row by id
func (s *JobStorage) DeleteJob(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.db.db.ExecContext(ctx, `DELETE FROM jobs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete job %s: %w", id, err)
	}

	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return interfaces.ErrJobNotFound
	}

	s.logger.Debug().Str("job_id", id).Msg("Job deleted")
	return nil
}

// UpdateLastRun records the completion instant of the most recent run
func (s *JobStorage) UpdateLastRun(ctx context.Context, id string, lastRun time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.db.db.ExecContext(ctx,
		`UPDATE jobs SET last_run = ? WHERE id = ?`,
		lastRun.UTC().Format(time.RFC3339), id)
	if err != nil {
		return fmt.Errorf("failed to update last_run for job %s: %w", id, err)
	}

	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return interfaces.ErrJobNotFound
	}

	return nil
}

// UpdateStatus moves a job through its lifecycle states
func (s *JobStorage) UpdateStatus(ctx context.Context, id string, status models.JobStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !status.IsValid() {
		return fmt.Errorf("invalid job status %q", status)
	}

	result, err := s.db.db.ExecContext(ctx,
		`UPDATE jobs SET status = ? WHERE id = ?`,
		string(status), id)
	if err != nil {
		return fmt.Errorf("failed to update status for job %s: %w", id, err)
	}

	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return interfaces.ErrJobNotFound
	}

	return nil
}

// Close releases the underlying database handle
func (s *JobStorage) Close() error {
	return s.db.Close()
}
