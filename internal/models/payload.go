package models

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Task type tags. A new task kind is added by defining its config struct,
// a tag constant, a variant pointer on TaskPayload, and a handler.
const (
	TaskTypePrint        = "print"
	TaskTypeShellCommand = "shell_command"
	TaskTypeAdfPipeline  = "adf_pipeline"
	TaskTypeAwsStepFn    = "aws_stepfn"
)

// ErrUnknownTaskType is returned when a payload envelope carries a tag with
// no matching variant. It is a recoverable per-row error: the offending job
// is skipped with a log entry, never crashing a load.
var ErrUnknownTaskType = errors.New("unknown task type")

// PrintConfig logs a message. Diagnostic task.
type PrintConfig struct {
	Message string `json:"message"`
}

// ShellCommandConfig runs a command through `sh -c`.
type ShellCommandConfig struct {
	Command string `json:"command"`
}

// AdfPipelineConfig triggers an Azure Data Factory pipeline run and polls
// it to a terminal state.
type AdfPipelineConfig struct {
	SubscriptionID string          `json:"subscription_id"`
	ResourceGroup  string          `json:"resource_group"`
	FactoryName    string          `json:"factory_name"`
	Pipeline       string          `json:"pipeline"`
	Parameters     json.RawMessage `json:"parameters,omitempty"`
}

// AwsStepFnConfig starts an AWS Step Functions execution and polls it to a
// terminal state.
type AwsStepFnConfig struct {
	ARN   string          `json:"arn"`
	Input json.RawMessage `json:"input"`
}

// taskEnvelope is the self-describing wire form:
// {"task_type": "<tag>", "payload": <variant body>}.
type taskEnvelope struct {
	TaskType string          `json:"task_type"`
	Payload  json.RawMessage `json:"payload"`
}

// TaskPayload is the tagged union of task configurations. Exactly one
// variant pointer is set; the tag is derived from it.
type TaskPayload struct {
	Print        *PrintConfig
	ShellCommand *ShellCommandConfig
	AdfPipeline  *AdfPipelineConfig
	AwsStepFn    *AwsStepFnConfig
}

// TaskType returns the tag for the set variant, or "" when none is set.
func (p TaskPayload) TaskType() string {
	switch {
	case p.Print != nil:
		return TaskTypePrint
	case p.ShellCommand != nil:
		return TaskTypeShellCommand
	case p.AdfPipeline != nil:
		return TaskTypeAdfPipeline
	case p.AwsStepFn != nil:
		return TaskTypeAwsStepFn
	}
	return ""
}

// Body serializes the set variant to its payload body JSON (without the
// envelope).
func (p TaskPayload) Body() (json.RawMessage, error) {
	switch {
	case p.Print != nil:
		return json.Marshal(p.Print)
	case p.ShellCommand != nil:
		return json.Marshal(p.ShellCommand)
	case p.AdfPipeline != nil:
		return json.Marshal(p.AdfPipeline)
	case p.AwsStepFn != nil:
		return json.Marshal(p.AwsStepFn)
	}
	return nil, fmt.Errorf("task payload has no variant set")
}

// MarshalJSON writes the self-describing envelope.
func (p TaskPayload) MarshalJSON() ([]byte, error) {
	body, err := p.Body()
	if err != nil {
		return nil, err
	}
	return json.Marshal(taskEnvelope{
		TaskType: p.TaskType(),
		Payload:  body,
	})
}

// UnmarshalJSON reads the envelope and decodes the body into the variant
// named by the tag.
func (p *TaskPayload) UnmarshalJSON(data []byte) error {
	var env taskEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return fmt.Errorf("malformed task envelope: %w", err)
	}

	body := env.Payload
	if len(body) == 0 {
		body = json.RawMessage("null")
	}

	*p = TaskPayload{}
	switch env.TaskType {
	case TaskTypePrint:
		var config PrintConfig
		if err := json.Unmarshal(body, &config); err != nil {
			return fmt.Errorf("malformed %s payload: %w", env.TaskType, err)
		}
		p.Print = &config
	case TaskTypeShellCommand:
		var config ShellCommandConfig
		if err := json.Unmarshal(body, &config); err != nil {
			return fmt.Errorf("malformed %s payload: %w", env.TaskType, err)
		}
		p.ShellCommand = &config
	case TaskTypeAdfPipeline:
		var config AdfPipelineConfig
		if err := json.Unmarshal(body, &config); err != nil {
			return fmt.Errorf("malformed %s payload: %w", env.TaskType, err)
		}
		p.AdfPipeline = &config
	case TaskTypeAwsStepFn:
		var config AwsStepFnConfig
		if err := json.Unmarshal(body, &config); err != nil {
			return fmt.Errorf("malformed %s payload: %w", env.TaskType, err)
		}
		p.AwsStepFn = &config
	default:
		return fmt.Errorf("%w: %q", ErrUnknownTaskType, env.TaskType)
	}

	return nil
}
