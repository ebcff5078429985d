package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// JobStatus represents the lifecycle state of a scheduled job.
// The string form is lower-case for persistence and API responses.
type JobStatus string

const (
	// JobStatusStart means a tick fired and handler lookup is in progress.
	JobStatusStart JobStatus = "start"
	// JobStatusScheduled means the job is waiting for its next fire time.
	JobStatusScheduled JobStatus = "scheduled"
	// JobStatusRunning means the handler body has been entered.
	JobStatusRunning JobStatus = "running"
	// JobStatusSuccess means the last tick's handler returned without error.
	JobStatusSuccess JobStatus = "success"
	// JobStatusFailed means the last tick's handler returned an error.
	JobStatusFailed JobStatus = "failed"
	// JobStatusDisabled halts the job's scheduler loop on its next iteration.
	JobStatusDisabled JobStatus = "disabled"
)

// IsValid checks if the job status is a known value
func (s JobStatus) IsValid() bool {
	switch s {
	case JobStatusStart, JobStatusScheduled, JobStatusRunning,
		JobStatusSuccess, JobStatusFailed, JobStatusDisabled:
		return true
	}
	return false
}

func (s JobStatus) String() string {
	return string(s)
}

// ParseJobStatus parses a persisted status string. Unknown values return
// an error so callers can decide between rejecting and defaulting.
func ParseJobStatus(s string) (JobStatus, error) {
	status := JobStatus(strings.ToLower(strings.TrimSpace(s)))
	if !status.IsValid() {
		return "", fmt.Errorf("unknown job status %q", s)
	}
	return status, nil
}

// JobRaw is the persistent form of a job: the task configuration is kept
// as the task_type tag plus the payload body JSON, exactly as stored in
// the jobs table. Message is diagnostic only and is not a table column.
type JobRaw struct {
	ID       string     `json:"id"`
	Name     string     `json:"name"`
	Cron     string     `json:"cron"`
	TaskType string     `json:"task_type"`
	Payload  string     `json:"payload"`
	LastRun  *time.Time `json:"last_run,omitempty"`
	Status   JobStatus  `json:"status"`
	Message  string     `json:"message,omitempty"`
}

// Job is the runtime form: task_type and payload resolved into a typed
// TaskPayload. Scheduler loops carry a value copy and re-read the store
// for fresh state.
type Job struct {
	ID      string
	Name    string
	Cron    string
	Task    TaskPayload
	LastRun *time.Time
	Status  JobStatus
	Message string
}

// Validate checks the fields every persisted job must carry. The cron
// expression must parse unless the job is disabled.
func (r *JobRaw) Validate() error {
	if strings.TrimSpace(r.ID) == "" {
		return fmt.Errorf("job id is required")
	}
	if strings.TrimSpace(r.Name) == "" {
		return fmt.Errorf("job name is required")
	}
	if strings.TrimSpace(r.TaskType) == "" {
		return fmt.Errorf("job task_type is required")
	}
	if r.Status != JobStatusDisabled {
		if err := ValidateCron(r.Cron); err != nil {
			return err
		}
	}
	return nil
}

// ToJob lifts the raw row into its runtime form by synthesizing the
// self-describing envelope from the two columns and parsing it. Unknown
// tags and malformed payload JSON are recoverable per-row errors.
func (r *JobRaw) ToJob() (*Job, error) {
	body := strings.TrimSpace(r.Payload)
	if body == "" {
		body = "null"
	}

	envelope, err := json.Marshal(taskEnvelope{
		TaskType: r.TaskType,
		Payload:  json.RawMessage(body),
	})
	if err != nil {
		return nil, fmt.Errorf("lift job %s: invalid payload json: %w", r.ID, err)
	}

	var task TaskPayload
	if err := json.Unmarshal(envelope, &task); err != nil {
		return nil, fmt.Errorf("lift job %s: %w", r.ID, err)
	}

	return &Job{
		ID:      r.ID,
		Name:    r.Name,
		Cron:    r.Cron,
		Task:    task,
		LastRun: r.LastRun,
		Status:  r.Status,
		Message: r.Message,
	}, nil
}

// ToRaw lowers the runtime job back to its persistent form, splitting the
// envelope into the task_type and payload columns.
func (j *Job) ToRaw() (*JobRaw, error) {
	body, err := j.Task.Body()
	if err != nil {
		return nil, fmt.Errorf("lower job %s: %w", j.ID, err)
	}

	return &JobRaw{
		ID:       j.ID,
		Name:     j.Name,
		Cron:     j.Cron,
		TaskType: j.Task.TaskType(),
		Payload:  string(body),
		LastRun:  j.LastRun,
		Status:   j.Status,
		Message:  j.Message,
	}, nil
}
