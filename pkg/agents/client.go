// Package agents issues task requests to external HTTP-based agent services.
package agents

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/veloflow/veloflow/pkg/models"
)

const DefaultTimeout = 60 * time.Second

// ErrAgentTimeout is returned when an agent request is aborted by its
// deadline. Timeouts follow the same retry policy as other failures but stay
// distinguishable in logs.
var ErrAgentTimeout = errors.New("agent request timed out")

// ErrAgentRequestFailed is returned when the agent service answers with a
// non-success status code.
var ErrAgentRequestFailed = errors.New("agent request failed")

// Client invokes agent services over HTTP.
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates an agent client. The injected http.Client carries no
// timeout of its own; per-request deadlines come from InvokeRequest.
func NewClient(httpClient *http.Client, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}

	return &Client{
		httpClient: httpClient,
		logger:     logger.With("module", "agent_client"),
	}
}

// Invoke POSTs the provider-shaped payload to the agent's endpoint under the
// given timeout and returns the raw response body.
func (c *Client) Invoke(ctx context.Context, agent *models.Agent, req InvokeRequest, timeout time.Duration) (string, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	payload := BuildPayload(agent, req)

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal agent payload: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, agent.Endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build agent request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")

	if apiKey := agent.APIKey(); apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+apiKey)
	}

	c.logger.InfoContext(ctx, "Invoking agent",
		"agent_id", agent.ID,
		"provider", agent.Provider,
		"timeout", timeout,
	)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("agent %s timed out after %ds: %w", agent.ID, int(timeout.Seconds()), ErrAgentTimeout)
		}

		return "", fmt.Errorf("agent %s request failed: %w", agent.ID, err)
	}

	defer func() {
		if err := resp.Body.Close(); err != nil {
			c.logger.ErrorContext(ctx, "Failed to close agent response body", "error", err)
		}
	}()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read agent %s response: %w", agent.ID, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("agent %s answered status %d: %w", agent.ID, resp.StatusCode, ErrAgentRequestFailed)
	}

	return string(raw), nil
}
