package keygen

import (
	"github.com/google/uuid"
	interfaces "github.com/sheikh-saqib/idempotent-payments-simulator/internal/interfaces"
)

// UUIDGenerator mints random (version 4) UUIDs as idempotency keys.
type UUIDGenerator struct{}

func NewUUIDGenerator() UUIDGenerator {
	return UUIDGenerator{}
}

func (UUIDGenerator) NewKey() string {
	return uuid.NewString()
}

// Short returns the prefix of a key used in log lines.
func Short(key string) string {
	if len(key) <= 8 {
		return key
	}
	return key[:8]
}

var _ interfaces.KeyGenerator = UUIDGenerator{}
