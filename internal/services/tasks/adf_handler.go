package tasks

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/horarium/internal/models"
	"github.com/ternarybob/horarium/internal/services/azure"
)

// AdfPipelineHandler triggers an Azure Data Factory pipeline run and polls
// it to a terminal state. The tick only succeeds when the remote run ends
// Succeeded.
type AdfPipelineHandler struct {
	client *azure.DataFactoryClient
	logger arbor.ILogger
}

// NewAdfPipelineHandler creates an ADF pipeline task handler
func NewAdfPipelineHandler(client *azure.DataFactoryClient, logger arbor.ILogger) *AdfPipelineHandler {
	return &AdfPipelineHandler{
		client: client,
		logger: logger,
	}
}

// TaskType returns the tag this handler executes
func (h *AdfPipelineHandler) TaskType() string {
	return models.TaskTypeAdfPipeline
}

// Handle runs the configured pipeline to a terminal state
func (h *AdfPipelineHandler) Handle(ctx context.Context, payload models.TaskPayload) error {
	config := payload.AdfPipeline
	if config == nil {
		return fmt.Errorf("adf_pipeline payload is not set")
	}

	if config.SubscriptionID == "" || config.ResourceGroup == "" || config.FactoryName == "" || config.Pipeline == "" {
		return fmt.Errorf("adf_pipeline payload requires subscription_id, resource_group, factory_name and pipeline")
	}

	h.logger.Info().
		Str("pipeline", config.Pipeline).
		Str("factory", config.FactoryName).
		Msg("Triggering ADF pipeline")

	return h.client.RunToTerminal(ctx, config)
}
