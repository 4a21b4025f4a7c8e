package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sheikh-saqib/idempotent-payments-simulator/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Runs only against a real database: TEST_DATABASE_URL=postgres://... go test ./...
func openTestStore(t *testing.T) *PostgresLedgerStore {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	store, err := Open(context.Background(), dsn)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestPostgresLedgerStore_RoundTrip(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	key := uuid.NewString()
	now := time.Now().UTC().Truncate(time.Microsecond)

	record := models.TransactionRecord{
		Key:           key,
		Intent:        "Payment $100",
		Amount:        decimal.NewFromInt(100),
		State:         models.StateProcessing,
		CreatedAt:     now,
		LastUpdatedAt: now,
	}
	require.NoError(t, store.SaveRecord(ctx, record))

	record.State = models.StateCompleted
	record.Attempts = 1
	record.RemoteTransactionID = "tx-1"
	record.Cached = true
	record.Amount = decimal.NewFromInt(999) // ignored on conflict
	require.NoError(t, store.SaveRecord(ctx, record))

	got, found, err := store.GetRecord(ctx, key)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, models.StateCompleted, got.State)
	assert.Equal(t, 1, got.Attempts)
	assert.Equal(t, "tx-1", got.RemoteTransactionID)
	assert.True(t, got.Cached)
	assert.True(t, decimal.NewFromInt(100).Equal(got.Amount))

	// cached cannot be cleared by a later write
	record.Cached = false
	require.NoError(t, store.SaveRecord(ctx, record))
	got, _, err = store.GetRecord(ctx, key)
	require.NoError(t, err)
	assert.True(t, got.Cached)

	_, found, err = store.GetRecord(ctx, key[:8])
	require.NoError(t, err)
	assert.False(t, found)
}

type noRows struct{ err error }

func (noRows) Next() bool             { return false }
func (noRows) Scan(dest ...any) error { return errors.New("no row to scan") }
func (r noRows) Err() error           { return r.err }

func TestScanRecords_EmptyIsNotNil(t *testing.T) {
	records, err := scanRecords(noRows{})
	require.NoError(t, err)
	assert.NotNil(t, records)
	assert.Empty(t, records)

	encoded, err := json.Marshal(map[string]any{"transactions": records})
	require.NoError(t, err)
	assert.JSONEq(t, `{"transactions":[]}`, string(encoded))
}

func TestScanRecords_RowsError(t *testing.T) {
	_, err := scanRecords(noRows{err: errors.New("connection reset")})
	assert.ErrorContains(t, err, "connection reset")
}
