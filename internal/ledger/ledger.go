package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	interfaces "github.com/sheikh-saqib/idempotent-payments-simulator/internal/interfaces"
	"github.com/sheikh-saqib/idempotent-payments-simulator/internal/models"
	"github.com/shopspring/decimal"
)

var (
	ErrEmptyKey       = errors.New("idempotency key is required")
	ErrInvalidState   = errors.New("invalid transaction state")
	ErrInvalidAmount  = errors.New("amount must be positive")
	ErrRecordNotFound = errors.New("transaction record not found")
)

// Ledger keeps exactly one TransactionRecord per idempotency key and applies
// every remote call to it. Records are only ever created or updated in place.
type Ledger struct {
	store interfaces.LedgerStore // storage backend, memory or postgres
	muMap map[string]*sync.Mutex // one mutex per idempotency key
	mapMu sync.Mutex             // protects the muMap itself
	now   func() time.Time
}

// NewLedger creates a Ledger on top of the given storage implementation.
func NewLedger(store interfaces.LedgerStore) *Ledger {
	return &Ledger{
		store: store,
		muMap: make(map[string]*sync.Mutex),
		now:   time.Now,
	}
}

func (l *Ledger) getKeyLock(key string) *sync.Mutex {

	l.mapMu.Lock()
	defer l.mapMu.Unlock()

	if _, exists := l.muMap[key]; !exists {
		l.muMap[key] = &sync.Mutex{}
	}
	return l.muMap[key]
}

// Track makes an in-flight call visible. A missing record is created with zero
// attempts; an existing one only has its state moved to PROCESSING.
func (l *Ledger) Track(ctx context.Context, key string, amount decimal.Decimal) (models.TransactionRecord, error) {
	if key == "" {
		return models.TransactionRecord{}, ErrEmptyKey
	}

	mu := l.getKeyLock(key)
	mu.Lock()
	defer mu.Unlock()

	record, exists, err := l.store.GetRecord(ctx, key)
	if err != nil {
		return models.TransactionRecord{}, fmt.Errorf("load record: %w", err)
	}

	now := l.now()
	if !exists {
		if amount.Cmp(decimal.Zero) <= 0 {
			return models.TransactionRecord{}, ErrInvalidAmount
		}
		record = models.TransactionRecord{
			Key:       key,
			Intent:    models.IntentFor(amount),
			Amount:    amount,
			CreatedAt: now,
		}
	}
	record.State = models.StateProcessing
	record.LastUpdatedAt = now

	if err := l.store.SaveRecord(ctx, record); err != nil {
		return models.TransactionRecord{}, fmt.Errorf("save record: %w", err)
	}
	return record, nil
}

// Upsert applies the result of one remote call to the record for key.
//
// A missing record is created from the patch with one attempt. An existing record
// takes the new state and gains exactly one attempt; its amount never changes, an
// empty transaction id never replaces a known one and Cached never goes back to false.
func (l *Ledger) Upsert(ctx context.Context, key string, patch models.RecordPatch) (models.TransactionRecord, error) {
	if key == "" {
		return models.TransactionRecord{}, ErrEmptyKey
	}
	if !patch.State.Valid() {
		return models.TransactionRecord{}, fmt.Errorf("%w: %q", ErrInvalidState, patch.State)
	}

	mu := l.getKeyLock(key)
	mu.Lock()
	defer mu.Unlock()

	record, exists, err := l.store.GetRecord(ctx, key)
	if err != nil {
		return models.TransactionRecord{}, fmt.Errorf("load record: %w", err)
	}

	now := l.now()
	if !exists {
		if patch.Amount.Cmp(decimal.Zero) <= 0 {
			return models.TransactionRecord{}, ErrInvalidAmount
		}
		record = models.TransactionRecord{
			Key:       key,
			Intent:    models.IntentFor(patch.Amount),
			Amount:    patch.Amount,
			CreatedAt: now,
		}
	}

	record.State = patch.State
	record.Attempts++
	if patch.RemoteTransactionID != "" {
		record.RemoteTransactionID = patch.RemoteTransactionID
	}
	record.Cached = record.Cached || patch.Duplicate
	record.LastUpdatedAt = now

	if err := l.store.SaveRecord(ctx, record); err != nil {
		return models.TransactionRecord{}, fmt.Errorf("save record: %w", err)
	}
	return record, nil
}

// Get looks a record up by exact key.
func (l *Ledger) Get(ctx context.Context, key string) (models.TransactionRecord, error) {
	record, exists, err := l.store.GetRecord(ctx, key)
	if err != nil {
		return models.TransactionRecord{}, err
	}
	if !exists {
		return models.TransactionRecord{}, ErrRecordNotFound
	}
	return record, nil
}

// Records returns every record, newest first.
func (l *Ledger) Records(ctx context.Context) ([]models.TransactionRecord, error) {
	records, err := l.store.ListRecords(ctx)

	if err != nil {
		return []models.TransactionRecord{}, err
	}
	return records, nil
}
