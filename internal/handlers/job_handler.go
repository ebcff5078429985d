package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/horarium/internal/interfaces"
	"github.com/ternarybob/horarium/internal/models"
)

// JobHandler handles CRUD requests for scheduled jobs. After a successful
// mutation it notifies the engine so the change takes effect without a
// restart.
type JobHandler struct {
	store    interfaces.JobStorage
	engine   interfaces.Engine
	logger   arbor.ILogger
	validate *validator.Validate
}

// NewJobHandler creates a new job handler
func NewJobHandler(store interfaces.JobStorage, engine interfaces.Engine, logger arbor.ILogger) *JobHandler {
	return &JobHandler{
		store:    store,
		engine:   engine,
		logger:   logger,
		validate: validator.New(),
	}
}

// JobRequest is the create/update body. Payload carries the variant body
// JSON for the task type, exactly as persisted.
type JobRequest struct {
	Name     string `json:"name" validate:"required"`
	Cron     string `json:"cron" validate:"required"`
	TaskType string `json:"task_type" validate:"required"`
	Payload  string `json:"payload"`
}

// JobResponse mirrors the persisted job row with last_run rendered as an
// RFC3339 string.
type JobResponse struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Cron     string  `json:"cron"`
	TaskType string  `json:"task_type"`
	Payload  string  `json:"payload"`
	LastRun  *string `json:"last_run"`
	Status   string  `json:"status"`
	Message  string  `json:"message,omitempty"`
}

func toJobResponse(raw *models.JobRaw) JobResponse {
	resp := JobResponse{
		ID:       raw.ID,
		Name:     raw.Name,
		Cron:     raw.Cron,
		TaskType: raw.TaskType,
		Payload:  raw.Payload,
		Status:   raw.Status.String(),
		Message:  raw.Message,
	}
	if raw.LastRun != nil {
		formatted := raw.LastRun.UTC().Format(time.RFC3339)
		resp.LastRun = &formatted
	}
	return resp
}

// decodeJobRequest parses and validates the request body. The cron check
// happens here so an invalid schedule never reaches the store.
func (h *JobHandler) decodeJobRequest(w http.ResponseWriter, r *http.Request) (*JobRequest, bool) {
	var req JobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return nil, false
	}

	if err := h.validate.Struct(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid request: "+err.Error())
		return nil, false
	}

	if err := models.ValidateCron(req.Cron); err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return nil, false
	}

	return &req, true
}

// CreateJobHandler handles POST /api/jobs
func (h *JobHandler) CreateJobHandler(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeJobRequest(w, r)
	if !ok {
		return
	}

	raw := &models.JobRaw{
		ID:       uuid.NewString(),
		Name:     req.Name,
		Cron:     req.Cron,
		TaskType: req.TaskType,
		Payload:  req.Payload,
		Status:   models.JobStatusScheduled,
	}

	if err := h.store.InsertJob(r.Context(), raw); err != nil {
		h.logger.Error().Err(err).Str("job_id", raw.ID).Msg("Failed to insert job")
		WriteError(w, http.StatusInternalServerError, "Failed to create job: "+err.Error())
		return
	}

	// The spawned loop must outlive this request, so the reload re-read
	// does not use the request context.
	h.engine.ReloadJob(context.Background(), raw.ID)

	h.logger.Info().
		Str("job_id", raw.ID).
		Str("name", raw.Name).
		Str("cron", raw.Cron).
		Msg("Job created")

	WriteJSON(w, http.StatusCreated, toJobResponse(raw))
}

// ListJobsHandler handles GET /api/jobs
func (h *JobHandler) ListJobsHandler(w http.ResponseWriter, r *http.Request) {
	raws, err := h.store.LoadJobs(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to load jobs")
		WriteError(w, http.StatusInternalServerError, "Failed to list jobs: "+err.Error())
		return
	}

	responses := make([]JobResponse, 0, len(raws))
	for i := range raws {
		responses = append(responses, toJobResponse(&raws[i]))
	}

	WriteJSON(w, http.StatusOK, responses)
}

// GetJobHandler handles GET /api/jobs/{id}
func (h *JobHandler) GetJobHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := jobIDFromPath(w, r)
	if !ok {
		return
	}

	raw, err := h.store.GetJob(r.Context(), id)
	if err != nil {
		if errors.Is(err, interfaces.ErrJobNotFound) {
			WriteError(w, http.StatusNotFound, "Job not found")
			return
		}
		h.logger.Error().Err(err).Str("job_id", id).Msg("Failed to get job")
		WriteError(w, http.StatusInternalServerError, "Failed to get job: "+err.Error())
		return
	}

	WriteJSON(w, http.StatusOK, toJobResponse(raw))
}

// UpdateJobHandler handles PUT /api/jobs/{id}. Status and last_run are
// engine-owned and survive the update untouched.
func (h *JobHandler) UpdateJobHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := jobIDFromPath(w, r)
	if !ok {
		return
	}

	req, ok := h.decodeJobRequest(w, r)
	if !ok {
		return
	}

	existing, err := h.store.GetJob(r.Context(), id)
	if err != nil {
		if errors.Is(err, interfaces.ErrJobNotFound) {
			WriteError(w, http.StatusNotFound, "Job not found")
			return
		}
		h.logger.Error().Err(err).Str("job_id", id).Msg("Failed to read job for update")
		WriteError(w, http.StatusInternalServerError, "Failed to update job: "+err.Error())
		return
	}

	updated := &models.JobRaw{
		ID:       id,
		Name:     req.Name,
		Cron:     req.Cron,
		TaskType: req.TaskType,
		Payload:  req.Payload,
		LastRun:  existing.LastRun,
		Status:   existing.Status,
	}

	if err := h.store.UpdateJob(r.Context(), updated); err != nil {
		if errors.Is(err, interfaces.ErrJobNotFound) {
			WriteError(w, http.StatusNotFound, "Job not found")
			return
		}
		h.logger.Error().Err(err).Str("job_id", id).Msg("Failed to update job")
		WriteError(w, http.StatusInternalServerError, "Failed to update job: "+err.Error())
		return
	}

	h.engine.ReloadJob(context.Background(), id)

	h.logger.Info().
		Str("job_id", id).
		Str("cron", req.Cron).
		Msg("Job updated")

	WriteJSON(w, http.StatusOK, toJobResponse(updated))
}

// DeleteJobHandler handles DELETE /api/jobs/{id}. The local loop is
// cancelled immediately; peer shards converge via their per-tick
// existence re-check.
func (h *JobHandler) DeleteJobHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := jobIDFromPath(w, r)
	if !ok {
		return
	}

	// Deleting an absent row is a no-op, not an error
	if err := h.store.DeleteJob(r.Context(), id); err != nil && !errors.Is(err, interfaces.ErrJobNotFound) {
		h.logger.Error().Err(err).Str("job_id", id).Msg("Failed to delete job")
		WriteError(w, http.StatusInternalServerError, "Failed to delete job: "+err.Error())
		return
	}

	h.engine.Cancel(id)

	h.logger.Info().Str("job_id", id).Msg("Job deleted")
	WriteSuccess(w, "Job deleted")
}

// jobIDFromPath extracts the job id from /api/jobs/{id}
func jobIDFromPath(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := strings.TrimPrefix(r.URL.Path, "/api/jobs/")
	id = strings.Trim(id, "/")
	if id == "" || strings.Contains(id, "/") {
		WriteError(w, http.StatusBadRequest, "Job ID is required")
		return "", false
	}
	return id, true
}
