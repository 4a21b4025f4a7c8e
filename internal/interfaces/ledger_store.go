package interfaces

import (
	"context"

	"github.com/sheikh-saqib/idempotent-payments-simulator/internal/models"
)

// LedgerStore persists transaction records. Merge rules live in the ledger; a
// store only saves and loads whole records.
type LedgerStore interface {
	GetRecord(ctx context.Context, key string) (models.TransactionRecord, bool, error)
	SaveRecord(ctx context.Context, record models.TransactionRecord) error
	ListRecords(ctx context.Context) ([]models.TransactionRecord, error)
}
