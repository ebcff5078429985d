// Package azure provides a client for the Azure Data Factory management API.
package azure

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/ternarybob/arbor"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/time/rate"

	"github.com/ternarybob/horarium/internal/models"
)

const (
	// DefaultBaseURL is the base URL for the Azure management API.
	DefaultBaseURL = "https://management.azure.com"

	// DefaultTimeout is the default HTTP timeout.
	DefaultTimeout = 30 * time.Second

	// DefaultRateLimit is the default rate limit (requests per second).
	DefaultRateLimit = 5

	// DefaultPollInterval is how often a pipeline run is polled for a
	// terminal state.
	DefaultPollInterval = 5 * time.Second

	// apiVersion pins the Data Factory management API version.
	apiVersion = "2018-06-01"
)

// DataFactoryClient triggers pipeline runs and polls them to completion.
type DataFactoryClient struct {
	baseURL      string
	httpClient   *http.Client
	logger       arbor.ILogger
	limiter      *rate.Limiter
	pollInterval time.Duration
}

// ClientOption configures the DataFactoryClient.
type ClientOption func(*DataFactoryClient)

// WithBaseURL sets a custom management endpoint (used in tests).
func WithBaseURL(baseURL string) ClientOption {
	return func(c *DataFactoryClient) {
		c.baseURL = baseURL
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *DataFactoryClient) {
		c.httpClient = httpClient
	}
}

// WithPollInterval sets a custom poll interval.
func WithPollInterval(interval time.Duration) ClientOption {
	return func(c *DataFactoryClient) {
		c.pollInterval = interval
	}
}

// WithRateLimit sets a custom rate limit.
func WithRateLimit(requestsPerSecond int) ClientOption {
	return func(c *DataFactoryClient) {
		c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
	}
}

// NewClient creates a Data Factory client with the given HTTP client. The
// HTTP client is expected to carry authentication.
func NewClient(httpClient *http.Client, logger arbor.ILogger, opts ...ClientOption) *DataFactoryClient {
	c := &DataFactoryClient{
		baseURL:      DefaultBaseURL,
		httpClient:   httpClient,
		logger:       logger,
		limiter:      rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
		pollInterval: DefaultPollInterval,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// NewClientFromEnv creates a Data Factory client authenticated through the
// AAD client-credentials flow using AZURE_TENANT_ID, AZURE_CLIENT_ID and
// AZURE_CLIENT_SECRET. Tokens are fetched lazily on first use, so an
// unconfigured environment surfaces as an auth error at fire time rather
// than failing boot.
func NewClientFromEnv(logger arbor.ILogger, opts ...ClientOption) *DataFactoryClient {
	tenantID := os.Getenv("AZURE_TENANT_ID")
	clientID := os.Getenv("AZURE_CLIENT_ID")
	clientSecret := os.Getenv("AZURE_CLIENT_SECRET")

	if tenantID == "" || clientID == "" || clientSecret == "" {
		logger.Warn().Msg("Azure credentials not fully configured; adf_pipeline tasks will fail until AZURE_TENANT_ID, AZURE_CLIENT_ID and AZURE_CLIENT_SECRET are set")
	}

	conf := &clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     fmt.Sprintf("https://login.microsoftonline.com/%s/oauth2/v2.0/token", tenantID),
		Scopes:       []string{"https://management.azure.com/.default"},
	}

	httpClient := conf.Client(context.Background())
	httpClient.Timeout = DefaultTimeout

	return NewClient(httpClient, logger, opts...)
}

// APIError represents an error response from the management API.
type APIError struct {
	StatusCode int
	Message    string
	Endpoint   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("azure API error: %s (status %d, endpoint: %s)", e.Message, e.StatusCode, e.Endpoint)
}

// PipelineRun is the subset of the pipeline run resource the scheduler
// cares about.
type PipelineRun struct {
	RunID   string `json:"runId"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

// createRunResponse carries the run id returned by createRun.
type createRunResponse struct {
	RunID string `json:"runId"`
}

// IsTerminal reports whether the run has reached a final state
func (r *PipelineRun) IsTerminal() bool {
	switch r.Status {
	case "Succeeded", "Failed", "Cancelled", "TimedOut":
		return true
	}
	return false
}

// CreateRun triggers a pipeline run and returns its run id
func (c *DataFactoryClient) CreateRun(ctx context.Context, config *models.AdfPipelineConfig) (string, error) {
	path := fmt.Sprintf(
		"/subscriptions/%s/resourceGroups/%s/providers/Microsoft.DataFactory/factories/%s/pipelines/%s/createRun",
		config.SubscriptionID, config.ResourceGroup, config.FactoryName, config.Pipeline)

	body := config.Parameters
	if len(body) == 0 {
		body = json.RawMessage("{}")
	}

	var result createRunResponse
	if err := c.do(ctx, http.MethodPost, path, body, &result); err != nil {
		return "", fmt.Errorf("failed to create pipeline run: %w", err)
	}
	if result.RunID == "" {
		return "", fmt.Errorf("create run response carried no run id")
	}

	c.logger.Info().
		Str("pipeline", config.Pipeline).
		Str("factory", config.FactoryName).
		Str("run_id", result.RunID).
		Msg("Pipeline run created")

	return result.RunID, nil
}

// GetPipelineRun fetches the current state of a pipeline run
func (c *DataFactoryClient) GetPipelineRun(ctx context.Context, config *models.AdfPipelineConfig, runID string) (*PipelineRun, error) {
	path := fmt.Sprintf(
		"/subscriptions/%s/resourceGroups/%s/providers/Microsoft.DataFactory/factories/%s/pipelineruns/%s",
		config.SubscriptionID, config.ResourceGroup, config.FactoryName, runID)

	var run PipelineRun
	if err := c.do(ctx, http.MethodGet, path, nil, &run); err != nil {
		return nil, fmt.Errorf("failed to get pipeline run %s: %w", runID, err)
	}

	return &run, nil
}

// RunToTerminal triggers a pipeline run and polls it until a terminal
// state. Returns nil on Succeeded and an error naming the terminal state
// otherwise.
func (c *DataFactoryClient) RunToTerminal(ctx context.Context, config *models.AdfPipelineConfig) error {
	runID, err := c.CreateRun(ctx, config)
	if err != nil {
		return err
	}

	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("pipeline run %s abandoned: %w", runID, ctx.Err())
		case <-ticker.C:
		}

		run, err := c.GetPipelineRun(ctx, config, runID)
		if err != nil {
			// Transient poll failures are retried on the next tick.
			c.logger.Warn().Err(err).Str("run_id", runID).Msg("Pipeline run poll failed")
			continue
		}

		c.logger.Debug().
			Str("run_id", runID).
			Str("status", run.Status).
			Msg("Pipeline run status")

		if !run.IsTerminal() {
			continue
		}

		if run.Status == "Succeeded" {
			return nil
		}
		if run.Message != "" {
			return fmt.Errorf("pipeline run %s ended %s: %s", runID, run.Status, run.Message)
		}
		return fmt.Errorf("pipeline run %s ended %s", runID, run.Status)
	}
}

// do performs a management API request with rate limiting
func (c *DataFactoryClient) do(ctx context.Context, method, path string, body json.RawMessage, result interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit exceeded: %w", err)
	}

	reqURL := fmt.Sprintf("%s%s?api-version=%s", c.baseURL, path, apiVersion)

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return &APIError{
			StatusCode: resp.StatusCode,
			Message:    string(respBody),
			Endpoint:   path,
		}
	}

	if result == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}
