package events

import (
	"time"

	"github.com/shopspring/decimal"
)

// LedgerUpdated is emitted after every ledger upsert.
type LedgerUpdated struct {
	IdempotencyKey string          `json:"idempotency_key"`
	State          string          `json:"state"`
	Attempts       int             `json:"attempts"`
	Cached         bool            `json:"cached"`
	TransactionID  string          `json:"transaction_id,omitempty"`
	Amount         decimal.Decimal `json:"amount"`
	OccurredAt     time.Time       `json:"occurred_at"`
}
