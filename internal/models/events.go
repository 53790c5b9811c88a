package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Domain event names emitted by the settlement engine.
const (
	EventWithdrawalCompleted = "withdrawal.completed"
	EventWithdrawalFailed    = "withdrawal.failed"
	EventTransactionReversed = "transaction.reversed"
)

// Event is a fire-and-forget notification. Delivery failures never roll
// back the ledger.
type Event struct {
	Name          string          `json:"name"`
	TransactionID string          `json:"transaction_id"`
	UserID        uint            `json:"user_id,omitempty"`
	Amount        decimal.Decimal `json:"amount"`
	Reason        string          `json:"reason,omitempty"`
	OccurredAt    time.Time       `json:"occurred_at"`
}
