// -----------------------------------------------------------------------
// Seed Jobs - load user-defined job files into the jobs table at startup
// -----------------------------------------------------------------------

package sqlite

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/horarium/internal/interfaces"
	"github.com/ternarybob/horarium/internal/models"
)

// JobFile represents a job seed file (TOML/JSON). The payload is authored
// as a native table/object and serialized to the stored JSON form.
type JobFile struct {
	ID       string                 `toml:"id" json:"id"`
	Name     string                 `toml:"name" json:"name"`
	Cron     string                 `toml:"cron" json:"cron"`
	TaskType string                 `toml:"task_type" json:"task_type"`
	Payload  map[string]interface{} `toml:"payload" json:"payload"`
	Disabled bool                   `toml:"disabled" json:"disabled"`
}

// ToJobRaw converts the file format to a persistable job row
func (f *JobFile) ToJobRaw() (*models.JobRaw, error) {
	payload := "{}"
	if f.Payload != nil {
		data, err := json.Marshal(f.Payload)
		if err != nil {
			return nil, fmt.Errorf("failed to serialize payload: %w", err)
		}
		payload = string(data)
	}

	status := models.JobStatusScheduled
	if f.Disabled {
		status = models.JobStatusDisabled
	}

	raw := &models.JobRaw{
		ID:       f.ID,
		Name:     f.Name,
		Cron:     f.Cron,
		TaskType: f.TaskType,
		Payload:  payload,
		Status:   status,
	}

	if err := raw.Validate(); err != nil {
		return nil, err
	}

	// A seed that cannot lift would never run; reject it up front.
	if _, err := raw.ToJob(); err != nil {
		return nil, err
	}

	return raw, nil
}

// LoadSeedJobs loads job files from the given directory and inserts any
// that are not already persisted. Existing rows are never overwritten, so
// runtime state survives restarts. The directory is optional.
func LoadSeedJobs(ctx context.Context, store interfaces.JobStorage, dirPath string, logger arbor.ILogger) error {
	if dirPath == "" {
		return nil
	}

	if _, err := os.Stat(dirPath); os.IsNotExist(err) {
		logger.Debug().Str("path", dirPath).Msg("Job definitions directory not found, skipping file loading")
		return nil
	}

	entries, err := os.ReadDir(dirPath)
	if err != nil {
		return fmt.Errorf("failed to read job definitions directory: %w", err)
	}

	logger.Info().Str("path", dirPath).Msg("Loading job definitions from files")

	loadedCount := 0
	skippedCount := 0

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		filePath := filepath.Join(dirPath, entry.Name())

		var jobFile *JobFile
		switch filepath.Ext(entry.Name()) {
		case ".toml":
			jobFile, err = loadJobFromTOML(filePath)
		case ".json":
			jobFile, err = loadJobFromJSON(filePath)
		default:
			logger.Debug().Str("file", entry.Name()).Msg("Skipping non-TOML/JSON file")
			skippedCount++
			continue
		}

		if err != nil {
			logger.Warn().Err(err).Str("file", entry.Name()).Msg("Failed to load job definition file")
			skippedCount++
			continue
		}

		if jobFile.ID == "" {
			// Stable ids are what make re-seeding idempotent.
			logger.Warn().Str("file", entry.Name()).Msg("Job definition file has no id, skipping")
			skippedCount++
			continue
		}

		raw, err := jobFile.ToJobRaw()
		if err != nil {
			logger.Warn().Err(err).Str("file", entry.Name()).Msg("Job definition validation failed")
			skippedCount++
			continue
		}

		if _, err := store.GetJob(ctx, raw.ID); err == nil {
			logger.Debug().Str("job_id", raw.ID).Msg("Job already exists, keeping persisted state")
			skippedCount++
			continue
		}

		if err := store.InsertJob(ctx, raw); err != nil {
			logger.Warn().Err(err).Str("job_id", raw.ID).Msg("Failed to insert seed job")
			skippedCount++
			continue
		}

		logger.Info().Str("job_id", raw.ID).Str("name", raw.Name).Msg("Seeded job from file")
		loadedCount++
	}

	logger.Info().Int("loaded", loadedCount).Int("skipped", skippedCount).Msg("Job definition file loading complete")
	return nil
}

func loadJobFromTOML(filePath string) (*JobFile, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var jobFile JobFile
	if err := toml.Unmarshal(data, &jobFile); err != nil {
		return nil, fmt.Errorf("failed to parse TOML: %w", err)
	}

	return &jobFile, nil
}

func loadJobFromJSON(filePath string) (*JobFile, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var jobFile JobFile
	if err := json.Unmarshal(data, &jobFile); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}

	return &jobFile, nil
}
