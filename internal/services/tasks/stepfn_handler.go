package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sfn"
	sfntypes "github.com/aws/aws-sdk-go-v2/service/sfn/types"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/horarium/internal/models"
)

// defaultStepFnPollInterval is how often an execution is polled for a
// terminal state.
const defaultStepFnPollInterval = 5 * time.Second

// StepFunctionsAPI is the slice of the Step Functions client the handler
// uses. Tests substitute a fake.
type StepFunctionsAPI interface {
	StartExecution(ctx context.Context, params *sfn.StartExecutionInput, optFns ...func(*sfn.Options)) (*sfn.StartExecutionOutput, error)
	DescribeExecution(ctx context.Context, params *sfn.DescribeExecutionInput, optFns ...func(*sfn.Options)) (*sfn.DescribeExecutionOutput, error)
}

// StepFnHandler starts an AWS Step Functions execution and polls it to a
// terminal state.
type StepFnHandler struct {
	client       StepFunctionsAPI
	logger       arbor.ILogger
	pollInterval time.Duration
}

// NewStepFnHandler creates a Step Functions task handler around an
// existing client
func NewStepFnHandler(client StepFunctionsAPI, logger arbor.ILogger) *StepFnHandler {
	return &StepFnHandler{
		client:       client,
		logger:       logger,
		pollInterval: defaultStepFnPollInterval,
	}
}

// NewStepFnHandlerFromConfig creates a Step Functions task handler using
// the default AWS credential chain (env, shared config, instance role).
func NewStepFnHandlerFromConfig(ctx context.Context, logger arbor.ILogger) (*StepFnHandler, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return NewStepFnHandler(sfn.NewFromConfig(cfg), logger), nil
}

// TaskType returns the tag this handler executes
func (h *StepFnHandler) TaskType() string {
	return models.TaskTypeAwsStepFn
}

// Handle starts the execution and polls until it leaves RUNNING
func (h *StepFnHandler) Handle(ctx context.Context, payload models.TaskPayload) error {
	config := payload.AwsStepFn
	if config == nil {
		return fmt.Errorf("aws_stepfn payload is not set")
	}
	if config.ARN == "" {
		return fmt.Errorf("aws_stepfn payload requires arn")
	}

	input := "{}"
	if len(config.Input) > 0 {
		input = string(config.Input)
	}

	started, err := h.client.StartExecution(ctx, &sfn.StartExecutionInput{
		StateMachineArn: aws.String(config.ARN),
		Input:           aws.String(input),
	})
	if err != nil {
		return fmt.Errorf("failed to start execution: %w", err)
	}

	executionArn := aws.ToString(started.ExecutionArn)
	h.logger.Info().
		Str("state_machine", config.ARN).
		Str("execution_arn", executionArn).
		Msg("Step Functions execution started")

	ticker := time.NewTicker(h.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("execution %s abandoned: %w", executionArn, ctx.Err())
		case <-ticker.C:
		}

		desc, err := h.client.DescribeExecution(ctx, &sfn.DescribeExecutionInput{
			ExecutionArn: started.ExecutionArn,
		})
		if err != nil {
			// Transient poll failures are retried on the next tick.
			h.logger.Warn().Err(err).Str("execution_arn", executionArn).Msg("Execution poll failed")
			continue
		}

		h.logger.Debug().
			Str("execution_arn", executionArn).
			Str("status", string(desc.Status)).
			Msg("Execution status")

		switch desc.Status {
		case sfntypes.ExecutionStatusRunning, sfntypes.ExecutionStatusPendingRedrive:
			continue
		case sfntypes.ExecutionStatusSucceeded:
			return nil
		default:
			if cause := aws.ToString(desc.Cause); cause != "" {
				return fmt.Errorf("execution %s ended %s: %s", executionArn, desc.Status, cause)
			}
			return fmt.Errorf("execution %s ended %s", executionArn, desc.Status)
		}
	}
}
