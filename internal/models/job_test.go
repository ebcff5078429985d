package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseJobStatus(t *testing.T) {
	tests := []struct {
		input   string
		want    JobStatus
		wantErr bool
	}{
		{"start", JobStatusStart, false},
		{"scheduled", JobStatusScheduled, false},
		{"running", JobStatusRunning, false},
		{"success", JobStatusSuccess, false},
		{"failed", JobStatusFailed, false},
		{"disabled", JobStatusDisabled, false},
		{"SUCCESS", JobStatusSuccess, false},
		{" scheduled ", JobStatusScheduled, false},
		{"", "", true},
		{"done", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseJobStatus(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestJobStatusIsValid(t *testing.T) {
	for _, s := range []JobStatus{
		JobStatusStart, JobStatusScheduled, JobStatusRunning,
		JobStatusSuccess, JobStatusFailed, JobStatusDisabled,
	} {
		assert.True(t, s.IsValid(), "expected %q to be valid", s)
	}
	assert.False(t, JobStatus("pending").IsValid())
	assert.False(t, JobStatus("").IsValid())
}

func TestJobRawValidate(t *testing.T) {
	valid := JobRaw{
		ID:       "11111111-1111-1111-1111-111111111111",
		Name:     "t1",
		Cron:     "*/1 * * * * *",
		TaskType: TaskTypePrint,
		Payload:  `{"message":"hi"}`,
		Status:   JobStatusScheduled,
	}

	tests := []struct {
		name    string
		mutate  func(*JobRaw)
		wantErr bool
	}{
		{"valid job", func(r *JobRaw) {}, false},
		{"missing id", func(r *JobRaw) { r.ID = "" }, true},
		{"missing name", func(r *JobRaw) { r.Name = " " }, true},
		{"missing task type", func(r *JobRaw) { r.TaskType = "" }, true},
		{"invalid cron", func(r *JobRaw) { r.Cron = "not a cron" }, true},
		{"disabled job skips cron check", func(r *JobRaw) {
			r.Cron = "not a cron"
			r.Status = JobStatusDisabled
		}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := valid
			tt.mutate(&raw)

			err := raw.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestJobRawToJob(t *testing.T) {
	lastRun := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	raw := JobRaw{
		ID:       "j-1",
		Name:     "greeter",
		Cron:     "*/5 * * * * *",
		TaskType: TaskTypePrint,
		Payload:  `{"message":"hi"}`,
		LastRun:  &lastRun,
		Status:   JobStatusSuccess,
	}

	job, err := raw.ToJob()
	require.NoError(t, err)

	assert.Equal(t, raw.ID, job.ID)
	assert.Equal(t, raw.Name, job.Name)
	assert.Equal(t, raw.Cron, job.Cron)
	assert.Equal(t, raw.Status, job.Status)
	require.NotNil(t, job.LastRun)
	assert.True(t, job.LastRun.Equal(lastRun))
	require.NotNil(t, job.Task.Print)
	assert.Equal(t, "hi", job.Task.Print.Message)
}

func TestJobRawToJob_AllVariants(t *testing.T) {
	tests := []struct {
		taskType string
		payload  string
		check    func(*testing.T, *Job)
	}{
		{
			taskType: TaskTypePrint,
			payload:  `{"message":"hello"}`,
			check: func(t *testing.T, j *Job) {
				require.NotNil(t, j.Task.Print)
				assert.Equal(t, "hello", j.Task.Print.Message)
			},
		},
		{
			taskType: TaskTypeShellCommand,
			payload:  `{"command":"echo hi"}`,
			check: func(t *testing.T, j *Job) {
				require.NotNil(t, j.Task.ShellCommand)
				assert.Equal(t, "echo hi", j.Task.ShellCommand.Command)
			},
		},
		{
			taskType: TaskTypeAdfPipeline,
			payload:  `{"subscription_id":"sub","resource_group":"rg","factory_name":"fac","pipeline":"p1","parameters":{"k":"v"}}`,
			check: func(t *testing.T, j *Job) {
				require.NotNil(t, j.Task.AdfPipeline)
				assert.Equal(t, "sub", j.Task.AdfPipeline.SubscriptionID)
				assert.Equal(t, "rg", j.Task.AdfPipeline.ResourceGroup)
				assert.Equal(t, "fac", j.Task.AdfPipeline.FactoryName)
				assert.Equal(t, "p1", j.Task.AdfPipeline.Pipeline)
				assert.JSONEq(t, `{"k":"v"}`, string(j.Task.AdfPipeline.Parameters))
			},
		},
		{
			taskType: TaskTypeAwsStepFn,
			payload:  `{"arn":"arn:aws:states:us-east-1:1:stateMachine:m","input":{"n":1}}`,
			check: func(t *testing.T, j *Job) {
				require.NotNil(t, j.Task.AwsStepFn)
				assert.Equal(t, "arn:aws:states:us-east-1:1:stateMachine:m", j.Task.AwsStepFn.ARN)
				assert.JSONEq(t, `{"n":1}`, string(j.Task.AwsStepFn.Input))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.taskType, func(t *testing.T) {
			raw := JobRaw{
				ID:       "j-" + tt.taskType,
				Name:     tt.taskType,
				Cron:     "0 0 2 * * *",
				TaskType: tt.taskType,
				Payload:  tt.payload,
				Status:   JobStatusScheduled,
			}

			job, err := raw.ToJob()
			require.NoError(t, err)
			assert.Equal(t, tt.taskType, job.Task.TaskType())
			tt.check(t, job)
		})
	}
}

func TestJobRawToJob_LiftErrors(t *testing.T) {
	tests := []struct {
		name     string
		taskType string
		payload  string
	}{
		{"unknown tag", "teleport", `{"to":"mars"}`},
		{"malformed payload json", TaskTypePrint, `{"message":`},
		{"payload wrong type", TaskTypePrint, `{"message":[1,2]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := JobRaw{
				ID:       "bad",
				Name:     "bad",
				Cron:     "* * * * * *",
				TaskType: tt.taskType,
				Payload:  tt.payload,
				Status:   JobStatusScheduled,
			}

			_, err := raw.ToJob()
			assert.Error(t, err)
		})
	}
}

func TestJobRoundTrip(t *testing.T) {
	raw := JobRaw{
		ID:       "rt-1",
		Name:     "round trip",
		Cron:     "*/10 * * * * *",
		TaskType: TaskTypeShellCommand,
		Payload:  `{"command":"true"}`,
		Status:   JobStatusScheduled,
	}

	job, err := raw.ToJob()
	require.NoError(t, err)

	back, err := job.ToRaw()
	require.NoError(t, err)

	assert.Equal(t, raw.ID, back.ID)
	assert.Equal(t, raw.Name, back.Name)
	assert.Equal(t, raw.Cron, back.Cron)
	assert.Equal(t, raw.TaskType, back.TaskType)
	assert.JSONEq(t, raw.Payload, back.Payload)
	assert.Equal(t, raw.Status, back.Status)
}

func TestJobRawToJob_EmptyPayload(t *testing.T) {
	raw := JobRaw{
		ID:       "empty",
		Name:     "empty payload",
		Cron:     "* * * * * *",
		TaskType: TaskTypePrint,
		Payload:  "",
		Status:   JobStatusScheduled,
	}

	job, err := raw.ToJob()
	require.NoError(t, err)
	require.NotNil(t, job.Task.Print)
	assert.Empty(t, job.Task.Print.Message)
}
