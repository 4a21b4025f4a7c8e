package models

import "github.com/shopspring/decimal"

// RecordPatch carries the fields observed from one remote call.
// Amount is only consulted when the patch creates the record.
type RecordPatch struct {
	Amount              decimal.Decimal
	State               TransactionState
	RemoteTransactionID string
	Duplicate           bool
}
