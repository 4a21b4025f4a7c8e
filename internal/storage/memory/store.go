package memory

import (
	"context" // request-scoped context, unused by the in-memory backend but part of the interface
	"sync"    // mutex guarding the maps below

	interfaces "github.com/sheikh-saqib/idempotent-payments-simulator/internal/interfaces" // interface LedgerStore
	"github.com/sheikh-saqib/idempotent-payments-simulator/internal/models"                // domain models: TransactionRecord
)

// MemoryLedgerStore is an in-memory implementation of interfaces.LedgerStore.
// Records live for the lifetime of the process and are never deleted.
type MemoryLedgerStore struct {
	mu      sync.Mutex                          // protects records and order
	records map[string]models.TransactionRecord // one record per idempotency key
	order   []string                            // keys in creation order
}

// NewMemoryLedgerStore creates and returns a new MemoryLedgerStore instance
func NewMemoryLedgerStore() *MemoryLedgerStore {
	return &MemoryLedgerStore{
		records: make(map[string]models.TransactionRecord),
		order:   make([]string, 0),
	}
}

// GetRecord looks a record up by exact key.
func (m *MemoryLedgerStore) GetRecord(ctx context.Context, key string) (models.TransactionRecord, bool, error) {

	m.mu.Lock()
	defer m.mu.Unlock()

	record, exists := m.records[key]
	return record, exists, nil
}

// SaveRecord inserts a new record or replaces the existing one with the same key.
func (m *MemoryLedgerStore) SaveRecord(ctx context.Context, record models.TransactionRecord) error {

	m.mu.Lock()         // lock the mutex to prevent concurrent writes
	defer m.mu.Unlock() // unlock automatically when function exits

	if _, exists := m.records[record.Key]; !exists {
		m.order = append(m.order, record.Key)
	}
	m.records[record.Key] = record
	return nil // always succeeds in memory
}

// ListRecords returns a copy of every record, newest first.
func (m *MemoryLedgerStore) ListRecords(ctx context.Context) ([]models.TransactionRecord, error) {

	m.mu.Lock()
	defer m.mu.Unlock()

	// copy so external code can't modify internal state
	result := make([]models.TransactionRecord, 0, len(m.order))
	for i := len(m.order) - 1; i >= 0; i-- {
		result = append(result, m.records[m.order[i]])
	}
	return result, nil
}

// Compile-time check: ensure MemoryLedgerStore implements LedgerStore interface
var _ interfaces.LedgerStore = (*MemoryLedgerStore)(nil)
