package tasks

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/horarium/internal/models"
)

func TestPrintHandler(t *testing.T) {
	handler := NewPrintHandler(arbor.NewLogger())
	assert.Equal(t, models.TaskTypePrint, handler.TaskType())

	err := handler.Handle(context.Background(), models.TaskPayload{
		Print: &models.PrintConfig{Message: "hi"},
	})
	assert.NoError(t, err)

	assert.Error(t, handler.Handle(context.Background(), models.TaskPayload{}))
}

func TestShellCommandHandler_Success(t *testing.T) {
	handler := NewShellCommandHandler(arbor.NewLogger())
	assert.Equal(t, models.TaskTypeShellCommand, handler.TaskType())

	err := handler.Handle(context.Background(), models.TaskPayload{
		ShellCommand: &models.ShellCommandConfig{Command: "echo hello"},
	})
	assert.NoError(t, err)
}

func TestShellCommandHandler_NonZeroExit(t *testing.T) {
	handler := NewShellCommandHandler(arbor.NewLogger())

	err := handler.Handle(context.Background(), models.TaskPayload{
		ShellCommand: &models.ShellCommandConfig{Command: "echo boom >&2; exit 3"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}

func TestShellCommandHandler_EmptyCommand(t *testing.T) {
	handler := NewShellCommandHandler(arbor.NewLogger())

	assert.Error(t, handler.Handle(context.Background(), models.TaskPayload{
		ShellCommand: &models.ShellCommandConfig{Command: "  "},
	}))
	assert.Error(t, handler.Handle(context.Background(), models.TaskPayload{}))
}

func TestShellCommandHandler_ContextCancellation(t *testing.T) {
	handler := NewShellCommandHandler(arbor.NewLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := handler.Handle(ctx, models.TaskPayload{
		ShellCommand: &models.ShellCommandConfig{Command: "sleep 30"},
	})
	assert.Error(t, err)
}

func TestTruncateOutput(t *testing.T) {
	assert.Equal(t, "short", truncateOutput("short\n"))

	long := make([]byte, 5000)
	for i := range long {
		long[i] = 'x'
	}
	got := truncateOutput(string(long))
	assert.Len(t, got, 2048+len("... (truncated)"))
}
