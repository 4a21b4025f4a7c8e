package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	interfaces "github.com/sheikh-saqib/idempotent-payments-simulator/internal/interfaces"
	"github.com/sheikh-saqib/idempotent-payments-simulator/internal/models"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// DefaultProcessorURL is where the simulated processor listens by default.
const DefaultProcessorURL = "http://localhost:8000"

// TimeoutMessage is reported for gateway timeouts; their bodies are never read.
const TimeoutMessage = "Network Timeout Simulated"

// MaxResponseBytes caps how much of a response body is read. Longer bodies are
// cut off and fail to decode.
const MaxResponseBytes = 1 << 20

// duplicatePhrase is the text older processors use instead of the duplicate flag.
const duplicatePhrase = "already performed"

// Config configures the HTTP adapter.
type Config struct {
	// URL is the base URL of the remote processor
	URL string

	// HTTPClient is the HTTP client to use (optional)
	HTTPClient *http.Client

	// Timeout for requests (optional, defaults to 30s). Ignored when HTTPClient is set.
	Timeout time.Duration

	Logger *zap.Logger
}

// HTTPAdapter performs one POST /pay per call and normalizes whatever comes back.
// It never retries.
type HTTPAdapter struct {
	url        string
	httpClient *http.Client
	logger     *zap.Logger
}

type payRequest struct {
	IdempotencyKey  string                  `json:"idempotency_key"`
	Amount          json.Number             `json:"amount"`
	SimulateOutcome models.SimulatedOutcome `json:"simulate_outcome"`
}

type payResponse struct {
	State         *string `json:"state"`
	Message       string  `json:"message"`
	TransactionID string  `json:"transaction_id"`
	Duplicate     *bool   `json:"duplicate"`
	Detail        any     `json:"detail"`
}

func NewHTTPAdapter(config *Config) *HTTPAdapter {
	if config == nil {
		config = &Config{}
	}

	url := strings.TrimRight(config.URL, "/")
	if url == "" {
		url = DefaultProcessorURL
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		timeout := config.Timeout
		if timeout == 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{
			Timeout: timeout,
		}
	}

	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &HTTPAdapter{
		url:        url,
		httpClient: httpClient,
		logger:     logger,
	}
}

// Call sends the payment request once and classifies the response.
func (a *HTTPAdapter) Call(ctx context.Context, key string, amount decimal.Decimal, outcome models.SimulatedOutcome) models.CallResult {
	payload, err := json.Marshal(payRequest{
		IdempotencyKey:  key,
		Amount:          json.Number(amount.String()),
		SimulateOutcome: outcome,
	})
	if err != nil {
		return failure(models.KindRejected, fmt.Sprintf("failed to encode request: %v", err), 0)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.url+"/pay", bytes.NewReader(payload))
	if err != nil {
		return failure(models.KindTransport, fmt.Sprintf("failed to create request: %v", err), 0)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", key)

	a.logger.Debug("calling remote processor",
		zap.String("idempotency_key", key),
		zap.String("amount", amount.String()),
		zap.String("simulate_outcome", string(outcome)))

	resp, err := a.httpClient.Do(req)
	if err != nil {
		a.logger.Warn("remote processor unreachable",
			zap.String("idempotency_key", key),
			zap.Error(err))
		return failure(models.KindTransport, err.Error(), 0)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusGatewayTimeout {
		a.logger.Warn("remote processor timed out",
			zap.String("idempotency_key", key),
			zap.Int("status_code", resp.StatusCode))
		return failure(models.KindTimeout, TimeoutMessage, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseBytes))
	if err != nil {
		// the response was cut off, which leaves the outcome as unknown as no response at all
		return failure(models.KindTransport, fmt.Sprintf("failed to read response body: %v", err), 0)
	}

	result := normalize(resp.StatusCode, body)
	a.logger.Debug("remote processor responded",
		zap.String("idempotency_key", key),
		zap.Int("status_code", resp.StatusCode),
		zap.Stringer("kind", result.Kind))
	return result
}

// normalize maps a received status and body onto a CallResult. Any status whose
// body carries a COMPLETED or FAILED state is definitive.
func normalize(status int, body []byte) models.CallResult {
	var parsed payResponse
	decodeErr := json.Unmarshal(body, &parsed)

	if decodeErr == nil && parsed.State != nil {
		state := models.TransactionState(*parsed.State)
		if state == models.StateCompleted || state == models.StateFailed {
			return models.CallResult{
				Kind: models.KindDefinitive,
				Payload: &models.CallPayload{
					State:         state,
					Message:       parsed.Message,
					TransactionID: parsed.TransactionID,
					Duplicate:     isDuplicate(parsed),
				},
			}
		}
	}

	if status >= 200 && status < 300 {
		return failure(models.KindRejected, "malformed response from remote processor", status)
	}

	message := parsed.Message
	if message == "" {
		if detail, ok := parsed.Detail.(string); ok {
			message = detail
		}
	}
	if message == "" {
		message = fmt.Sprintf("Request Failed (%d %s)", status, http.StatusText(status))
	}
	return failure(models.KindRejected, message, status)
}

func isDuplicate(parsed payResponse) bool {
	if parsed.Duplicate != nil {
		return *parsed.Duplicate
	}
	return strings.Contains(strings.ToLower(parsed.Message), duplicatePhrase)
}

func failure(kind models.ResultKind, message string, status int) models.CallResult {
	return models.CallResult{
		Kind:    kind,
		Failure: &models.CallFailure{Message: message, Status: status},
	}
}

var _ interfaces.RemoteCaller = (*HTTPAdapter)(nil)
