package models

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTaskPayloadEnvelopeRoundTrip(t *testing.T) {
	tests := []struct {
		name     string
		envelope string
	}{
		{"print", `{"task_type":"print","payload":{"message":"hi"}}`},
		{"shell command", `{"task_type":"shell_command","payload":{"command":"echo hi"}}`},
		{"adf pipeline", `{"task_type":"adf_pipeline","payload":{"subscription_id":"sub","resource_group":"rg","factory_name":"fac","pipeline":"nightly","parameters":{"day":"mon"}}}`},
		{"aws step function", `{"task_type":"aws_stepfn","payload":{"arn":"arn:aws:states:eu-west-1:1:stateMachine:m","input":{"n":1}}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var payload TaskPayload
			require.NoError(t, json.Unmarshal([]byte(tt.envelope), &payload))

			out, err := json.Marshal(payload)
			require.NoError(t, err)
			assert.JSONEq(t, tt.envelope, string(out))
		})
	}
}

func TestTaskPayloadUnmarshal_UnknownTag(t *testing.T) {
	var payload TaskPayload
	err := json.Unmarshal([]byte(`{"task_type":"teleport","payload":{}}`), &payload)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownTaskType))
	assert.Contains(t, err.Error(), "teleport")
}

func TestTaskPayloadUnmarshal_MissingTag(t *testing.T) {
	var payload TaskPayload
	err := json.Unmarshal([]byte(`{"payload":{"message":"hi"}}`), &payload)
	assert.True(t, errors.Is(err, ErrUnknownTaskType))
}

func TestTaskPayloadUnmarshal_NullBody(t *testing.T) {
	var payload TaskPayload
	require.NoError(t, json.Unmarshal([]byte(`{"task_type":"print","payload":null}`), &payload))
	require.NotNil(t, payload.Print)
	assert.Empty(t, payload.Print.Message)
}

func TestTaskPayloadUnmarshal_BodyTypeMismatch(t *testing.T) {
	var payload TaskPayload
	err := json.Unmarshal([]byte(`{"task_type":"shell_command","payload":{"command":42}}`), &payload)
	assert.Error(t, err)
}

func TestTaskPayloadTaskType(t *testing.T) {
	assert.Equal(t, TaskTypePrint, TaskPayload{Print: &PrintConfig{}}.TaskType())
	assert.Equal(t, TaskTypeShellCommand, TaskPayload{ShellCommand: &ShellCommandConfig{}}.TaskType())
	assert.Equal(t, TaskTypeAdfPipeline, TaskPayload{AdfPipeline: &AdfPipelineConfig{}}.TaskType())
	assert.Equal(t, TaskTypeAwsStepFn, TaskPayload{AwsStepFn: &AwsStepFnConfig{}}.TaskType())
	assert.Equal(t, "", TaskPayload{}.TaskType())
}

func TestTaskPayloadBody_NoVariant(t *testing.T) {
	_, err := TaskPayload{}.Body()
	assert.Error(t, err)
}
