package memory

import (
	"context"
	"testing"

	"github.com/sheikh-saqib/idempotent-payments-simulator/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryLedgerStore_SaveAndGet(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryLedgerStore()

	_, found, err := store.GetRecord(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, found)

	record := models.TransactionRecord{
		Key:      "key-1",
		Amount:   decimal.NewFromInt(100),
		State:    models.StateCompleted,
		Attempts: 1,
	}
	require.NoError(t, store.SaveRecord(ctx, record))

	got, found, err := store.GetRecord(ctx, "key-1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, models.StateCompleted, got.State)

	// prefix lookups must not match
	_, found, err = store.GetRecord(ctx, "key")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestMemoryLedgerStore_ListNewestFirst(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryLedgerStore()

	for _, key := range []string{"a", "b", "c"} {
		require.NoError(t, store.SaveRecord(ctx, models.TransactionRecord{Key: key, State: models.StateProcessing}))
	}
	// replacing a record keeps its position
	require.NoError(t, store.SaveRecord(ctx, models.TransactionRecord{Key: "a", State: models.StateCompleted}))

	records, err := store.ListRecords(ctx)
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "c", records[0].Key)
	assert.Equal(t, "b", records[1].Key)
	assert.Equal(t, "a", records[2].Key)
	assert.Equal(t, models.StateCompleted, records[2].State)

	// mutating the returned slice must not leak into the store
	records[0].State = models.StateFailed
	again, err := store.ListRecords(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.StateProcessing, again[0].State)
}
