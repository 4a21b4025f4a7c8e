package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/sheikh-saqib/idempotent-payments-simulator/internal/journal"
	"github.com/sheikh-saqib/idempotent-payments-simulator/internal/ledger"
	"github.com/sheikh-saqib/idempotent-payments-simulator/internal/models"
	"github.com/sheikh-saqib/idempotent-payments-simulator/internal/orchestrator"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Handler exposes one orchestrator to the browser UI.
type Handler struct {
	orch   *orchestrator.Orchestrator
	logger *zap.Logger
}

func NewHandler(orch *orchestrator.Orchestrator, logger *zap.Logger) *Handler {
	return &Handler{
		orch:   orch,
		logger: logger,
	}
}

type transactionRequest struct {
	Amount          decimal.Decimal         `json:"amount"`
	SimulateOutcome models.SimulatedOutcome `json:"simulate_outcome"`
}

type transactionResponse struct {
	Outcome orchestrator.Outcome `json:"outcome"`
	State   orchestrator.State   `json:"state"`
}

type logLine struct {
	journal.Entry
	Text string `json:"text"`
}

func (h *Handler) StartTransaction(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decode(w, r)
	if !ok {
		return
	}

	outcome, err := h.orch.StartNewTransaction(r.Context(), req.Amount, req.SimulateOutcome)
	if err != nil {
		h.commandError(w, "start transaction", err)
		return
	}
	h.sendJSON(w, http.StatusOK, transactionResponse{Outcome: outcome, State: h.orch.Snapshot()})
}

func (h *Handler) RetryTransaction(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decode(w, r)
	if !ok {
		return
	}

	outcome, err := h.orch.RetryTransaction(r.Context(), req.Amount, req.SimulateOutcome)
	if err != nil {
		h.commandError(w, "retry transaction", err)
		return
	}
	h.sendJSON(w, http.StatusOK, transactionResponse{Outcome: outcome, State: h.orch.Snapshot()})
}

func (h *Handler) Reset(w http.ResponseWriter, r *http.Request) {
	if err := h.orch.Reset(); err != nil {
		h.commandError(w, "reset", err)
		return
	}
	h.sendJSON(w, http.StatusOK, h.orch.Snapshot())
}

func (h *Handler) GetState(w http.ResponseWriter, r *http.Request) {
	h.sendJSON(w, http.StatusOK, h.orch.Snapshot())
}

func (h *Handler) ListLedger(w http.ResponseWriter, r *http.Request) {
	records, err := h.orch.Records(r.Context())
	if err != nil {
		h.logger.Error("failed to list ledger", zap.Error(err))
		h.sendError(w, http.StatusInternalServerError, "failed to list ledger", err)
		return
	}
	h.sendJSON(w, http.StatusOK, map[string]any{"transactions": records})
}

func (h *Handler) GetRecord(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")

	record, err := h.orch.Record(r.Context(), key)
	if errors.Is(err, ledger.ErrRecordNotFound) {
		h.sendError(w, http.StatusNotFound, "transaction not found", nil)
		return
	}
	if err != nil {
		h.logger.Error("failed to load record", zap.String("idempotency_key", key), zap.Error(err))
		h.sendError(w, http.StatusInternalServerError, "failed to load transaction", err)
		return
	}
	h.sendJSON(w, http.StatusOK, record)
}

func (h *Handler) ListLog(w http.ResponseWriter, r *http.Request) {
	entries := h.orch.Journal()

	lines := make([]logLine, 0, len(entries))
	for _, e := range entries {
		lines = append(lines, logLine{Entry: e, Text: journal.Format(e)})
	}
	h.sendJSON(w, http.StatusOK, map[string]any{"logs": lines})
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request) (transactionRequest, bool) {
	var req transactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.sendError(w, http.StatusBadRequest, "invalid request body", err)
		return req, false
	}
	if req.SimulateOutcome == "" {
		req.SimulateOutcome = models.OutcomeSuccess
	}
	return req, true
}

func (h *Handler) commandError(w http.ResponseWriter, action string, err error) {
	switch {
	case errors.Is(err, orchestrator.ErrInFlight),
		errors.Is(err, orchestrator.ErrNoActiveKey),
		errors.Is(err, orchestrator.ErrRetryNotAllowed):
		h.sendError(w, http.StatusConflict, err.Error(), nil)
	case errors.Is(err, orchestrator.ErrInvalidAmount),
		errors.Is(err, orchestrator.ErrInvalidOutcome):
		h.sendError(w, http.StatusBadRequest, err.Error(), nil)
	default:
		h.logger.Error("command failed", zap.String("action", action), zap.Error(err))
		h.sendError(w, http.StatusInternalServerError, action+" failed", err)
	}
}

func (h *Handler) sendJSON(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Warn("failed to encode response", zap.Error(err))
	}
}

func (h *Handler) sendError(w http.ResponseWriter, statusCode int, message string, err error) {
	response := map[string]any{
		"success": false,
		"message": message,
	}
	if err != nil {
		response["error"] = err.Error()
	}
	h.sendJSON(w, statusCode, response)
}
