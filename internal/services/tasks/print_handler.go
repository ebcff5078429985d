package tasks

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/horarium/internal/models"
)

// PrintHandler logs the configured message. It exists for diagnostics and
// smoke-testing a deployment's scheduling path end to end.
type PrintHandler struct {
	logger arbor.ILogger
}

// NewPrintHandler creates a print task handler
func NewPrintHandler(logger arbor.ILogger) *PrintHandler {
	return &PrintHandler{logger: logger}
}

// TaskType returns the tag this handler executes
func (h *PrintHandler) TaskType() string {
	return models.TaskTypePrint
}

// Handle logs the payload message
func (h *PrintHandler) Handle(ctx context.Context, payload models.TaskPayload) error {
	if payload.Print == nil {
		return fmt.Errorf("print payload is not set")
	}

	h.logger.Info().Str("message", payload.Print.Message).Msg("Print task executed")
	return nil
}
