package agents

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veloflow/veloflow/pkg/models"
)

func testAgent(endpoint string) *models.Agent {
	return &models.Agent{
		ID:       "agent-1",
		Name:     "Test Agent",
		Provider: models.AgentProviderCustom,
		Endpoint: endpoint,
		Config:   map[string]any{"apiKey": "secret-token"},
		Enabled:  true,
	}
}

func TestClientInvoke(t *testing.T) {
	t.Parallel()

	var (
		gotAuth        string
		gotContentType string
		gotBody        map[string]any
	)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotContentType = r.Header.Get("Content-Type")

		err := json.NewDecoder(r.Body).Decode(&gotBody)
		require.NoError(t, err)

		_, _ = w.Write([]byte(`{"result": "done"}`))
	}))
	defer server.Close()

	client := NewClient(server.Client(), slog.Default())

	response, err := client.Invoke(t.Context(), testAgent(server.URL), InvokeRequest{
		Prompt:       "do the thing",
		OutputFormat: "text",
		ExecutionID:  "exec-1",
		WorkflowID:   "wf-1",
	}, 0)
	require.NoError(t, err)

	assert.Equal(t, `{"result": "done"}`, response)
	assert.Equal(t, "Bearer secret-token", gotAuth)
	assert.Equal(t, "application/json", gotContentType)
	assert.Equal(t, "do the thing", gotBody["prompt"])
	assert.Equal(t, "exec-1", gotBody["workflow_execution_id"])
}

func TestClientInvokeNoAPIKey(t *testing.T) {
	t.Parallel()

	var gotAuth string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_, _ = w.Write([]byte("ok"))
	}))
	defer server.Close()

	agent := testAgent(server.URL)
	agent.Config = nil

	client := NewClient(server.Client(), slog.Default())

	_, err := client.Invoke(t.Context(), agent, InvokeRequest{Prompt: "hi"}, 0)
	require.NoError(t, err)
	assert.Empty(t, gotAuth)
}

func TestClientInvokeNonSuccessStatus(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer server.Close()

	client := NewClient(server.Client(), slog.Default())

	_, err := client.Invoke(t.Context(), testAgent(server.URL), InvokeRequest{Prompt: "hi"}, 0)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAgentRequestFailed)
	assert.Contains(t, err.Error(), "502")
}

func TestClientInvokeTimeout(t *testing.T) {
	t.Parallel()

	// The handler must be released before Close waits on it.
	release := make(chan struct{})

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	client := NewClient(server.Client(), slog.Default())

	start := time.Now()

	_, err := client.Invoke(t.Context(), testAgent(server.URL), InvokeRequest{Prompt: "hi"}, 50*time.Millisecond)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAgentTimeout)
	assert.Less(t, time.Since(start), 5*time.Second)
}
