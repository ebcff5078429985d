package tasks

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/horarium/internal/models"
)

// ShellCommandHandler runs the configured command through `sh -c`. The
// command inherits the process environment; cancellation of the loop
// context kills the child process.
type ShellCommandHandler struct {
	logger arbor.ILogger
}

// NewShellCommandHandler creates a shell command task handler
func NewShellCommandHandler(logger arbor.ILogger) *ShellCommandHandler {
	return &ShellCommandHandler{logger: logger}
}

// TaskType returns the tag this handler executes
func (h *ShellCommandHandler) TaskType() string {
	return models.TaskTypeShellCommand
}

// Handle runs the command and reports a non-zero exit as an error
func (h *ShellCommandHandler) Handle(ctx context.Context, payload models.TaskPayload) error {
	if payload.ShellCommand == nil {
		return fmt.Errorf("shell_command payload is not set")
	}

	command := strings.TrimSpace(payload.ShellCommand.Command)
	if command == "" {
		return fmt.Errorf("shell command is empty")
	}

	cmd := exec.CommandContext(ctx, "sh", "-c", command)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	h.logger.Info().Str("command", command).Msg("Running shell command")
	err := cmd.Run()

	if stdout.Len() > 0 {
		h.logger.Debug().Str("stdout", truncateOutput(stdout.String())).Msg("Shell command output")
	}

	if err != nil {
		if stderr.Len() > 0 {
			return fmt.Errorf("shell command failed: %w: %s", err, truncateOutput(stderr.String()))
		}
		return fmt.Errorf("shell command failed: %w", err)
	}

	return nil
}

// truncateOutput caps captured process output so a chatty command cannot
// flood the log.
func truncateOutput(s string) string {
	const maxLen = 2048
	s = strings.TrimSpace(s)
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "... (truncated)"
}
