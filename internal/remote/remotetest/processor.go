// Package remotetest provides an in-process stand-in for the remote payment
// processor, for use with net/http/httptest.
package remotetest

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type payment struct {
	amount   decimal.Decimal
	state    string
	response map[string]any
}

// Processor deduplicates by idempotency key the way the simulated processor does:
// completed keys replay their stored response, failed keys may be retried and
// NETWORK_ERROR commits the payment before answering 504.
type Processor struct {
	// FlagDuplicates adds "duplicate": true to replayed responses.
	FlagDuplicates bool
	// BeforeOutcome, when set, runs after the key is marked PROCESSING.
	BeforeOutcome func(key string)

	mu       sync.Mutex
	payments map[string]*payment
	requests int
}

func NewProcessor() *Processor {
	return &Processor{payments: make(map[string]*payment)}
}

// Requests returns how many /pay requests were received.
func (p *Processor) Requests() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.requests
}

func (p *Processor) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost || r.URL.Path != "/pay" {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	var req struct {
		IdempotencyKey  string          `json:"idempotency_key"`
		Amount          decimal.Decimal `json:"amount"`
		SimulateOutcome string          `json:"simulate_outcome"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"detail": "invalid request body"})
		return
	}
	if req.SimulateOutcome == "" {
		req.SimulateOutcome = "SUCCESS"
	}

	p.mu.Lock()
	p.requests++
	existing, found := p.payments[req.IdempotencyKey]
	if found {
		switch {
		case !existing.amount.Equal(req.Amount):
			p.mu.Unlock()
			writeJSON(w, http.StatusBadRequest, map[string]any{"message": "Idempotency key reuse with different request data is not allowed"})
			return
		case existing.state == "COMPLETED":
			replay := make(map[string]any, len(existing.response)+1)
			for k, v := range existing.response {
				replay[k] = v
			}
			replay["message"] = "Transaction already performed"
			if p.FlagDuplicates {
				replay["duplicate"] = true
			}
			p.mu.Unlock()
			writeJSON(w, http.StatusOK, replay)
			return
		case existing.state == "PROCESSING":
			p.mu.Unlock()
			writeJSON(w, http.StatusConflict, map[string]any{"message": "Payment is still processing. Please try again later.", "state": "PROCESSING"})
			return
		}
		existing.state = "PROCESSING"
	} else {
		existing = &payment{amount: req.Amount, state: "PROCESSING"}
		p.payments[req.IdempotencyKey] = existing
	}
	p.mu.Unlock()

	if p.BeforeOutcome != nil {
		p.BeforeOutcome(req.IdempotencyKey)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if req.SimulateOutcome == "BANK_FAILURE" {
		existing.state = "FAILED"
		writeJSON(w, http.StatusBadGateway, map[string]any{"message": "Bank failure simulated. Retry allowed.", "state": "FAILED"})
		return
	}

	existing.state = "COMPLETED"
	existing.response = map[string]any{
		"message":         "Payment successful",
		"transaction_id":  uuid.NewString(),
		"amount":          req.Amount,
		"state":           "COMPLETED",
		"idempotency_key": req.IdempotencyKey,
	}

	if req.SimulateOutcome == "NETWORK_ERROR" {
		writeJSON(w, http.StatusGatewayTimeout, map[string]any{"detail": "Network Timeout Simulated"})
		return
	}
	writeJSON(w, http.StatusOK, existing.response)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
