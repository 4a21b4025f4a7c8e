package interfaces

import (
	"context"

	"github.com/sheikh-saqib/idempotent-payments-simulator/internal/models"
	"github.com/shopspring/decimal"
)

// RemoteCaller performs exactly one exchange with the remote processor and
// never returns an error: every outcome is folded into the result.
type RemoteCaller interface {
	Call(ctx context.Context, key string, amount decimal.Decimal, outcome models.SimulatedOutcome) models.CallResult
}

// KeyGenerator mints idempotency keys.
type KeyGenerator interface {
	NewKey() string
}
