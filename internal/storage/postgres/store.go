package postgres

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq" // registers the "postgres" driver

	interfaces "github.com/sheikh-saqib/idempotent-payments-simulator/internal/interfaces" // interface LedgerStore
	"github.com/sheikh-saqib/idempotent-payments-simulator/internal/models"
)

const schema = `CREATE TABLE IF NOT EXISTS idempotent_transactions (
	idempotency_key       TEXT PRIMARY KEY,
	intent                TEXT NOT NULL,
	amount                NUMERIC NOT NULL,
	state                 TEXT NOT NULL,
	attempts              INTEGER NOT NULL DEFAULT 0,
	remote_transaction_id TEXT NOT NULL DEFAULT '',
	cached                BOOLEAN NOT NULL DEFAULT FALSE,
	created_at            TIMESTAMPTZ NOT NULL,
	last_updated_at       TIMESTAMPTZ NOT NULL
)`

type PostgresLedgerStore struct {
	db *sql.DB
}

func NewPostgresLedgerStore(db *sql.DB) *PostgresLedgerStore {
	return &PostgresLedgerStore{
		db: db,
	}
}

// Open connects to dsn, verifies the connection and makes sure the table exists.
func Open(ctx context.Context, dsn string) (*PostgresLedgerStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	store := NewPostgresLedgerStore(db)
	if err := store.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

func (p *PostgresLedgerStore) Migrate(ctx context.Context) error {
	if _, err := p.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create idempotent_transactions: %w", err)
	}
	return nil
}

func (p *PostgresLedgerStore) Close() error {
	return p.db.Close()
}

func (p *PostgresLedgerStore) GetRecord(ctx context.Context, key string) (models.TransactionRecord, bool, error) {
	const query = `SELECT idempotency_key, intent, amount, state, attempts, remote_transaction_id, cached, created_at, last_updated_at
	FROM idempotent_transactions WHERE idempotency_key = $1`

	record, err := scanRecord(p.db.QueryRowContext(ctx, query, key))
	if err == sql.ErrNoRows {
		return models.TransactionRecord{}, false, nil
	}
	if err != nil {
		return models.TransactionRecord{}, false, err
	}
	return record, true, nil
}

// SaveRecord writes the whole record. amount, intent and created_at are only
// written on insert so a conflicting update can never rewrite them.
func (p *PostgresLedgerStore) SaveRecord(ctx context.Context, record models.TransactionRecord) error {
	const query = `INSERT INTO idempotent_transactions
	(idempotency_key, intent, amount, state, attempts, remote_transaction_id, cached, created_at, last_updated_at)
	VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	ON CONFLICT (idempotency_key) DO UPDATE SET
		state = EXCLUDED.state,
		attempts = EXCLUDED.attempts,
		remote_transaction_id = EXCLUDED.remote_transaction_id,
		cached = idempotent_transactions.cached OR EXCLUDED.cached,
		last_updated_at = EXCLUDED.last_updated_at`

	_, err := p.db.ExecContext(ctx, query,
		record.Key,
		record.Intent,
		record.Amount,
		string(record.State),
		record.Attempts,
		record.RemoteTransactionID,
		record.Cached,
		record.CreatedAt,
		record.LastUpdatedAt,
	)
	return err
}

func (p *PostgresLedgerStore) ListRecords(ctx context.Context) ([]models.TransactionRecord, error) {
	const query = `SELECT idempotency_key, intent, amount, state, attempts, remote_transaction_id, cached, created_at, last_updated_at
	FROM idempotent_transactions ORDER BY created_at DESC`

	rows, err := p.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanRecords(rows)
}

type rowIterator interface {
	scanner
	Next() bool
	Err() error
}

// scanRecords drains rows; an empty result is an empty slice, not nil.
func scanRecords(rows rowIterator) ([]models.TransactionRecord, error) {
	records := make([]models.TransactionRecord, 0)
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (models.TransactionRecord, error) {
	var (
		record models.TransactionRecord
		state  string
	)
	err := row.Scan(
		&record.Key,
		&record.Intent,
		&record.Amount,
		&state,
		&record.Attempts,
		&record.RemoteTransactionID,
		&record.Cached,
		&record.CreatedAt,
		&record.LastUpdatedAt,
	)
	record.State = models.TransactionState(state)
	return record, err
}

var _ interfaces.LedgerStore = (*PostgresLedgerStore)(nil)
