package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	interfaces "github.com/sheikh-saqib/idempotent-payments-simulator/internal/interfaces"
	"github.com/sheikh-saqib/idempotent-payments-simulator/internal/journal"
	"github.com/sheikh-saqib/idempotent-payments-simulator/internal/keygen"
	"github.com/sheikh-saqib/idempotent-payments-simulator/internal/ledger"
	"github.com/sheikh-saqib/idempotent-payments-simulator/internal/models"
	"github.com/sheikh-saqib/idempotent-payments-simulator/internal/models/events"
	"github.com/sheikh-saqib/idempotent-payments-simulator/internal/storage/memory"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var (
	ErrInFlight        = errors.New("a call is already in flight")
	ErrNoActiveKey     = errors.New("no active idempotency key")
	ErrRetryNotAllowed = errors.New("retry is not allowed in the current state")
	ErrInvalidAmount   = errors.New("amount must be positive")
	ErrInvalidOutcome  = errors.New("unknown simulated outcome")
)

// DefaultPublishTimeout bounds one ledger event publish.
const DefaultPublishTimeout = 5 * time.Second

// State is a consistent snapshot of the orchestrator.
type State struct {
	CurrentKey string                  `json:"current_key"`
	Status     models.TransactionState `json:"status"`
	CanRetry   bool                    `json:"can_retry"`
	Processing bool                    `json:"processing"`
}

// Outcome describes how one call resolved.
type Outcome struct {
	Key    string                   `json:"idempotency_key"`
	Status models.TransactionState  `json:"status"`
	Result models.CallResult        `json:"-"`
	Record models.TransactionRecord `json:"record"`
	Entry  journal.Entry            `json:"log_entry"`
}

// Orchestrator drives the request/retry state machine for one client. It allows
// a single call in flight: RECEIVED, COMPLETED, FAILED and RETRY are idle
// statuses, PROCESSING rejects every command until the call resolves.
type Orchestrator struct {
	remote    interfaces.RemoteCaller
	ledger    *ledger.Ledger
	journal   *journal.Journal
	keys      interfaces.KeyGenerator
	publisher interfaces.EventPublisher
	logger    *zap.Logger

	publishTimeout time.Duration

	mu         sync.Mutex // guards the fields below and every resolution
	currentKey string
	status     models.TransactionState
	canRetry   bool
}

func New(remote interfaces.RemoteCaller, opts ...Option) *Orchestrator {
	cfg := &config{}
	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.ledger == nil {
		cfg.ledger = ledger.NewLedger(memory.NewMemoryLedgerStore())
	}
	if cfg.journal == nil {
		cfg.journal = journal.New()
	}
	if cfg.keys == nil {
		cfg.keys = keygen.NewUUIDGenerator()
	}
	if cfg.logger == nil {
		cfg.logger = zap.NewNop()
	}
	if cfg.publishTimeout <= 0 {
		cfg.publishTimeout = DefaultPublishTimeout
	}

	return &Orchestrator{
		remote:    remote,
		ledger:    cfg.ledger,
		journal:   cfg.journal,
		keys:      cfg.keys,
		publisher: cfg.publisher,
		logger:    cfg.logger,
		status:    models.StateReceived,

		publishTimeout: cfg.publishTimeout,
	}
}

// StartNewTransaction mints a fresh key and issues the first call under it.
// It returns once the call has resolved; remote failures are reported through
// the Outcome, never as an error.
func (o *Orchestrator) StartNewTransaction(ctx context.Context, amount decimal.Decimal, outcome models.SimulatedOutcome) (Outcome, error) {
	if err := validate(amount, outcome); err != nil {
		return Outcome{}, err
	}

	o.mu.Lock()
	if o.status == models.StateProcessing {
		o.mu.Unlock()
		return Outcome{}, ErrInFlight
	}

	key := o.keys.NewKey()
	if _, err := o.ledger.Track(ctx, key, amount); err != nil {
		o.mu.Unlock()
		return Outcome{}, fmt.Errorf("track transaction: %w", err)
	}
	o.currentKey = key
	o.canRetry = false
	o.status = models.StateProcessing
	o.journal.Append(journal.KindInfo, key, fmt.Sprintf("Initiating request: %s...", keygen.Short(key)))
	o.mu.Unlock()

	o.logger.Info("starting new transaction",
		zap.String("idempotency_key", key),
		zap.String("amount", amount.String()),
		zap.String("simulate_outcome", string(outcome)))

	return o.dispatch(ctx, key, amount, outcome)
}

// RetryTransaction reissues the call under the current key.
func (o *Orchestrator) RetryTransaction(ctx context.Context, amount decimal.Decimal, outcome models.SimulatedOutcome) (Outcome, error) {
	if err := validate(amount, outcome); err != nil {
		return Outcome{}, err
	}

	o.mu.Lock()
	switch {
	case o.status == models.StateProcessing:
		o.mu.Unlock()
		return Outcome{}, ErrInFlight
	case o.currentKey == "":
		o.mu.Unlock()
		return Outcome{}, ErrNoActiveKey
	case !o.canRetry:
		o.mu.Unlock()
		return Outcome{}, ErrRetryNotAllowed
	}

	key := o.currentKey
	if _, err := o.ledger.Track(ctx, key, amount); err != nil {
		o.mu.Unlock()
		return Outcome{}, fmt.Errorf("track transaction: %w", err)
	}
	o.status = models.StateProcessing
	o.journal.Append(journal.KindInfo, key, fmt.Sprintf("Retrying request: %s...", keygen.Short(key)))
	o.mu.Unlock()

	o.logger.Info("retrying transaction",
		zap.String("idempotency_key", key),
		zap.String("amount", amount.String()),
		zap.String("simulate_outcome", string(outcome)))

	return o.dispatch(ctx, key, amount, outcome)
}

// Reset forgets the current key. Ledger history is kept.
func (o *Orchestrator) Reset() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.status == models.StateProcessing {
		return ErrInFlight
	}
	o.currentKey = ""
	o.status = models.StateReceived
	o.canRetry = false
	o.journal.Append(journal.KindInfo, "", "System reset. Ready for new transaction.")

	o.logger.Info("orchestrator reset")
	return nil
}

func (o *Orchestrator) Snapshot() State {
	o.mu.Lock()
	defer o.mu.Unlock()

	return State{
		CurrentKey: o.currentKey,
		Status:     o.status,
		CanRetry:   o.canRetry,
		Processing: o.status == models.StateProcessing,
	}
}

// Records returns the ledger, newest first.
func (o *Orchestrator) Records(ctx context.Context) ([]models.TransactionRecord, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.ledger.Records(ctx)
}

func (o *Orchestrator) Record(ctx context.Context, key string) (models.TransactionRecord, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.ledger.Get(ctx, key)
}

// Journal returns the diagnostic log, oldest first.
func (o *Orchestrator) Journal() []journal.Entry {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.journal.Entries()
}

// dispatch issues the call and applies its result. The call is not cancelled
// with ctx: once issued it is always awaited.
func (o *Orchestrator) dispatch(ctx context.Context, key string, amount decimal.Decimal, outcome models.SimulatedOutcome) (Outcome, error) {
	ctx = context.WithoutCancel(ctx)
	result := o.remote.Call(ctx, key, amount, outcome)
	return o.resolve(ctx, key, amount, result)
}

// resolve applies one result to the ledger, the journal and the status in a
// single critical section. The ledger event is published after the lock is
// released.
func (o *Orchestrator) resolve(ctx context.Context, key string, amount decimal.Decimal, result models.CallResult) (Outcome, error) {
	patch := models.RecordPatch{Amount: amount}
	var (
		status  models.TransactionState
		kind    journal.Kind
		message string
	)

	switch {
	case result.Kind.Ambiguous():
		patch.State = models.StateNetworkError
		status = models.StateRetry
		kind = journal.KindWarning
		if result.Kind == models.KindTimeout {
			message = "Network drop simulated. Response lost."
		} else {
			message = fmt.Sprintf("Network error: %s. Outcome unknown.", failureMessage(result))
		}

	case definitive(result):
		payload := result.Payload
		patch.State = payload.State
		patch.RemoteTransactionID = payload.TransactionID
		patch.Duplicate = payload.Duplicate
		if payload.State == models.StateFailed {
			status = models.StateFailed
			kind = journal.KindError
			message = "Transaction failed: " + payload.Message
		} else {
			status = models.StateCompleted
			kind = journal.KindSuccess
			message = "Transaction successful. " + payload.Message
		}
		if payload.Duplicate {
			message += " Idempotency check: duplicate request prevented."
		}

	default:
		patch.State = models.StateFailed
		status = models.StateFailed
		kind = journal.KindError
		message = "Error: " + failureMessage(result)
	}

	o.mu.Lock()
	o.status = status
	o.canRetry = true
	entry := o.journal.Append(kind, key, message)
	record, err := o.ledger.Upsert(ctx, key, patch)
	o.mu.Unlock()

	if err != nil {
		o.logger.Error("failed to update ledger",
			zap.String("idempotency_key", key),
			zap.Error(err))
		return Outcome{Key: key, Status: status, Result: result, Entry: entry}, fmt.Errorf("update ledger: %w", err)
	}

	o.logger.Info("transaction call resolved",
		zap.String("idempotency_key", key),
		zap.Stringer("kind", result.Kind),
		zap.String("state", string(record.State)),
		zap.Int("attempts", record.Attempts),
		zap.Bool("cached", record.Cached))

	o.publish(ctx, record)

	return Outcome{Key: key, Status: status, Result: result, Record: record, Entry: entry}, nil
}

func (o *Orchestrator) publish(ctx context.Context, record models.TransactionRecord) {
	if o.publisher == nil {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, o.publishTimeout)
	defer cancel()

	err := o.publisher.Publish(ctx, record.Key, events.LedgerUpdated{
		IdempotencyKey: record.Key,
		State:          string(record.State),
		Attempts:       record.Attempts,
		Cached:         record.Cached,
		TransactionID:  record.RemoteTransactionID,
		Amount:         record.Amount,
		OccurredAt:     record.LastUpdatedAt,
	})
	if err != nil {
		o.logger.Warn("failed to publish ledger event",
			zap.String("idempotency_key", record.Key),
			zap.Error(err))
	}
}

func definitive(result models.CallResult) bool {
	if result.Kind != models.KindDefinitive || result.Payload == nil {
		return false
	}
	return result.Payload.State == models.StateCompleted || result.Payload.State == models.StateFailed
}

func failureMessage(result models.CallResult) string {
	if result.Failure != nil && result.Failure.Message != "" {
		return result.Failure.Message
	}
	return "unexpected response from remote processor"
}

func validate(amount decimal.Decimal, outcome models.SimulatedOutcome) error {
	if amount.Cmp(decimal.Zero) <= 0 {
		return ErrInvalidAmount
	}
	if !outcome.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidOutcome, outcome)
	}
	return nil
}
