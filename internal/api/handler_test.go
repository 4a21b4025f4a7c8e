package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/sheikh-saqib/idempotent-payments-simulator/internal/orchestrator"
	"github.com/sheikh-saqib/idempotent-payments-simulator/internal/remote"
	"github.com/sheikh-saqib/idempotent-payments-simulator/internal/remote/remotetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type testEnv struct {
	processor *remotetest.Processor
	api       *httptest.Server
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	processor := remotetest.NewProcessor()
	processorServer := httptest.NewServer(processor)
	t.Cleanup(processorServer.Close)

	orch := orchestrator.New(remote.NewHTTPAdapter(&remote.Config{URL: processorServer.URL}))
	logger := zap.NewNop()
	api := httptest.NewServer(SetupRoutes(NewHandler(orch, logger), []string{"http://localhost:5173"}, logger))
	t.Cleanup(api.Close)

	return &testEnv{processor: processor, api: api}
}

func (e *testEnv) do(t *testing.T, method, path, body string) (*http.Response, map[string]any) {
	t.Helper()
	req, err := http.NewRequest(method, e.api.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var decoded map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	return resp, decoded
}

func TestAPI_LostResponseAndRetry(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.do(t, http.MethodPost, "/api/v1/transactions", `{"amount":100,"simulate_outcome":"NETWORK_ERROR"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	outcome := body["outcome"].(map[string]any)
	key := outcome["idempotency_key"].(string)
	assert.Equal(t, "RETRY", outcome["status"])
	state := body["state"].(map[string]any)
	assert.Equal(t, true, state["can_retry"])
	assert.Equal(t, key, state["current_key"])

	resp, body = env.do(t, http.MethodPost, "/api/v1/transactions/retry", `{"amount":100,"simulate_outcome":"SUCCESS"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	outcome = body["outcome"].(map[string]any)
	assert.Equal(t, key, outcome["idempotency_key"])
	assert.Equal(t, "COMPLETED", outcome["status"])

	resp, body = env.do(t, http.MethodGet, "/api/v1/ledger/"+key, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(2), body["attempts"])
	assert.Equal(t, true, body["cached"])
	assert.Equal(t, "COMPLETED", body["state"])
	assert.Equal(t, "Payment $100", body["intent"])

	resp, body = env.do(t, http.MethodGet, "/api/v1/ledger", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, body["transactions"], 1)

	resp, body = env.do(t, http.MethodGet, "/api/v1/log", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	logs := body["logs"].([]any)
	require.Len(t, logs, 4)
	second := logs[1].(map[string]any)
	assert.Equal(t, "warning", second["kind"])
	assert.Contains(t, second["text"], "WARNING Network drop simulated. Response lost.")

	assert.Equal(t, 2, env.processor.Requests())
}

func TestAPI_ResetAndConflicts(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.do(t, http.MethodPost, "/api/v1/transactions/retry", `{"amount":100}`)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, orchestrator.ErrNoActiveKey.Error(), body["message"])

	resp, _ = env.do(t, http.MethodPost, "/api/v1/transactions", `{"amount":100}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body = env.do(t, http.MethodPost, "/api/v1/reset", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "RECEIVED", body["status"])
	assert.Equal(t, "", body["current_key"])

	resp, body = env.do(t, http.MethodGet, "/api/v1/ledger", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, body["transactions"], 1, "reset keeps history")
}

func TestAPI_InFlightRejected(t *testing.T) {
	env := newTestEnv(t)
	entered := make(chan struct{})
	release := make(chan struct{})
	env.processor.BeforeOutcome = func(key string) {
		close(entered)
		<-release
	}

	done := make(chan int, 1)
	go func() {
		req, _ := http.NewRequest(http.MethodPost, env.api.URL+"/api/v1/transactions", strings.NewReader(`{"amount":100}`))
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			done <- 0
			return
		}
		resp.Body.Close()
		done <- resp.StatusCode
	}()
	<-entered

	resp, body := env.do(t, http.MethodGet, "/api/v1/state", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["processing"])

	resp, _ = env.do(t, http.MethodPost, "/api/v1/transactions", `{"amount":100}`)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	resp, _ = env.do(t, http.MethodPost, "/api/v1/reset", "")
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	close(release)
	assert.Equal(t, http.StatusOK, <-done)
	assert.Equal(t, 1, env.processor.Requests())
}

func TestAPI_BadRequests(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		status int
	}{
		{"malformed body", http.MethodPost, "/api/v1/transactions", `{"amount":`, http.StatusBadRequest},
		{"zero amount", http.MethodPost, "/api/v1/transactions", `{"amount":0}`, http.StatusBadRequest},
		{"unknown outcome", http.MethodPost, "/api/v1/transactions", `{"amount":5,"simulate_outcome":"MAYBE"}`, http.StatusBadRequest},
		{"unknown key", http.MethodGet, "/api/v1/ledger/nope", "", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := env.do(t, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.status, resp.StatusCode)
			assert.Equal(t, false, body["success"])
		})
	}
	assert.Equal(t, 0, env.processor.Requests())
}

func TestAPI_HealthAndCORS(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.do(t, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body["status"])

	req, err := http.NewRequest(http.MethodGet, env.api.URL+"/api/v1/state", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://localhost:5173")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, "http://localhost:5173", resp.Header.Get("Access-Control-Allow-Origin"))
}
