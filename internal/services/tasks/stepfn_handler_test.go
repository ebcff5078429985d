package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sfn"
	sfntypes "github.com/aws/aws-sdk-go-v2/service/sfn/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/horarium/internal/models"
)

// fakeStepFunctions walks an execution through a scripted status sequence
type fakeStepFunctions struct {
	statuses   []sfntypes.ExecutionStatus
	cause      string
	calls      int
	gotInput   string
	gotMachine string
	startErr   error
}

func (f *fakeStepFunctions) StartExecution(ctx context.Context, params *sfn.StartExecutionInput, optFns ...func(*sfn.Options)) (*sfn.StartExecutionOutput, error) {
	if f.startErr != nil {
		return nil, f.startErr
	}
	f.gotMachine = aws.ToString(params.StateMachineArn)
	f.gotInput = aws.ToString(params.Input)
	return &sfn.StartExecutionOutput{
		ExecutionArn: aws.String("arn:aws:states:eu-west-1:1:execution:m:e-1"),
	}, nil
}

func (f *fakeStepFunctions) DescribeExecution(ctx context.Context, params *sfn.DescribeExecutionInput, optFns ...func(*sfn.Options)) (*sfn.DescribeExecutionOutput, error) {
	n := f.calls
	if n >= len(f.statuses) {
		n = len(f.statuses) - 1
	}
	f.calls++

	out := &sfn.DescribeExecutionOutput{
		ExecutionArn: params.ExecutionArn,
		Status:       f.statuses[n],
	}
	if f.cause != "" && out.Status != sfntypes.ExecutionStatusRunning {
		out.Cause = aws.String(f.cause)
	}
	return out, nil
}

func stepFnPayload() models.TaskPayload {
	return models.TaskPayload{
		AwsStepFn: &models.AwsStepFnConfig{
			ARN:   "arn:aws:states:eu-west-1:1:stateMachine:m",
			Input: json.RawMessage(`{"n":1}`),
		},
	}
}

func newTestStepFnHandler(client StepFunctionsAPI) *StepFnHandler {
	handler := NewStepFnHandler(client, arbor.NewLogger())
	handler.pollInterval = 5 * time.Millisecond
	return handler
}

func TestStepFnHandler_Succeeded(t *testing.T) {
	fake := &fakeStepFunctions{
		statuses: []sfntypes.ExecutionStatus{
			sfntypes.ExecutionStatusRunning,
			sfntypes.ExecutionStatusRunning,
			sfntypes.ExecutionStatusSucceeded,
		},
	}
	handler := newTestStepFnHandler(fake)
	assert.Equal(t, models.TaskTypeAwsStepFn, handler.TaskType())

	err := handler.Handle(context.Background(), stepFnPayload())
	require.NoError(t, err)
	assert.Equal(t, "arn:aws:states:eu-west-1:1:stateMachine:m", fake.gotMachine)
	assert.JSONEq(t, `{"n":1}`, fake.gotInput)
	assert.GreaterOrEqual(t, fake.calls, 3)
}

func TestStepFnHandler_Failed(t *testing.T) {
	fake := &fakeStepFunctions{
		statuses: []sfntypes.ExecutionStatus{
			sfntypes.ExecutionStatusRunning,
			sfntypes.ExecutionStatusFailed,
		},
		cause: "state Lambda timed out",
	}

	err := newTestStepFnHandler(fake).Handle(context.Background(), stepFnPayload())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "FAILED")
	assert.Contains(t, err.Error(), "state Lambda timed out")
}

func TestStepFnHandler_StartFails(t *testing.T) {
	fake := &fakeStepFunctions{startErr: fmt.Errorf("no credentials")}

	err := newTestStepFnHandler(fake).Handle(context.Background(), stepFnPayload())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to start execution")
}

func TestStepFnHandler_DefaultInput(t *testing.T) {
	fake := &fakeStepFunctions{
		statuses: []sfntypes.ExecutionStatus{sfntypes.ExecutionStatusSucceeded},
	}

	payload := stepFnPayload()
	payload.AwsStepFn.Input = nil

	require.NoError(t, newTestStepFnHandler(fake).Handle(context.Background(), payload))
	assert.Equal(t, "{}", fake.gotInput)
}

func TestStepFnHandler_InvalidPayload(t *testing.T) {
	handler := newTestStepFnHandler(&fakeStepFunctions{})

	assert.Error(t, handler.Handle(context.Background(), models.TaskPayload{}))
	assert.Error(t, handler.Handle(context.Background(), models.TaskPayload{
		AwsStepFn: &models.AwsStepFnConfig{},
	}))
}

func TestStepFnHandler_ContextCancelled(t *testing.T) {
	fake := &fakeStepFunctions{
		statuses: []sfntypes.ExecutionStatus{sfntypes.ExecutionStatusRunning},
	}

	ctx, cancel := context.WithTimeout(context.Background(), 25*time.Millisecond)
	defer cancel()

	err := newTestStepFnHandler(fake).Handle(ctx, stepFnPayload())
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
