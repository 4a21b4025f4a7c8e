package orchestrator

import (
	"time"

	interfaces "github.com/sheikh-saqib/idempotent-payments-simulator/internal/interfaces"
	"github.com/sheikh-saqib/idempotent-payments-simulator/internal/journal"
	"github.com/sheikh-saqib/idempotent-payments-simulator/internal/ledger"
	"go.uber.org/zap"
)

// config holds the collaborators of an Orchestrator.
type config struct {
	ledger    *ledger.Ledger
	journal   *journal.Journal
	keys      interfaces.KeyGenerator
	publisher interfaces.EventPublisher
	logger    *zap.Logger

	publishTimeout time.Duration
}

// Option configures an Orchestrator.
type Option func(*config)

// WithLedger sets the ledger records are written to.
//
// Default: a ledger on a fresh in-memory store.
func WithLedger(l *ledger.Ledger) Option {
	return func(c *config) {
		c.ledger = l
	}
}

// WithJournal sets the diagnostic log. Default: a new empty journal.
func WithJournal(j *journal.Journal) Option {
	return func(c *config) {
		c.journal = j
	}
}

// WithKeyGenerator overrides how idempotency keys are minted. Default: random UUIDs.
func WithKeyGenerator(gen interfaces.KeyGenerator) Option {
	return func(c *config) {
		c.keys = gen
	}
}

// WithPublisher emits a LedgerUpdated event after every ledger upsert.
func WithPublisher(p interfaces.EventPublisher) Option {
	return func(c *config) {
		c.publisher = p
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

// WithPublishTimeout bounds each publish. Default: DefaultPublishTimeout.
func WithPublishTimeout(d time.Duration) Option {
	return func(c *config) {
		c.publishTimeout = d
	}
}
