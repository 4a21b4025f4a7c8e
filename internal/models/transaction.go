package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionState is the lifecycle state of a transaction record or of the orchestrator itself.
type TransactionState string

const (
	StateReceived     TransactionState = "RECEIVED"
	StateProcessing   TransactionState = "PROCESSING"
	StateCompleted    TransactionState = "COMPLETED"
	StateFailed       TransactionState = "FAILED"
	StateNetworkError TransactionState = "NETWORK_ERROR"
	StateRetry        TransactionState = "RETRY"
)

// Valid reports whether s is one of the defined states.
func (s TransactionState) Valid() bool {
	switch s {
	case StateReceived, StateProcessing, StateCompleted, StateFailed, StateNetworkError, StateRetry:
		return true
	}
	return false
}

// TransactionRecord is the ledger's view of every call made under one idempotency key.
// Attempts counts resolved remote calls only: a call still in flight is not
// counted, so a fresh placeholder reads 0.
type TransactionRecord struct {
	Key                 string           `json:"key"`            // idempotency key, never changes
	Intent              string           `json:"intent"`         // display label, e.g. "Payment $100"
	Amount              decimal.Decimal  `json:"amount"`         // fixed by the first attempt
	State               TransactionState `json:"state"`          // latest known state
	Attempts            int              `json:"attempts"`       // resolved remote calls under Key
	RemoteTransactionID string           `json:"transaction_id"` // assigned by the remote processor
	Cached              bool             `json:"cached"`         // remote reported the request was already performed
	CreatedAt           time.Time        `json:"created_at"`
	LastUpdatedAt       time.Time        `json:"last_updated_at"`
}

// IntentFor builds the display label stored on a new record.
func IntentFor(amount decimal.Decimal) string {
	return "Payment $" + amount.String()
}
