// Package gateway abstracts the external payment processor that executes
// bank transfers for approved withdrawals. The engine supplies its own
// transaction reference on every initiation so a retried call can never
// pay out twice.
package gateway

import (
	"context"

	"github.com/shopspring/decimal"

	"ledgerpay/internal/models"
)

// Transfer statuses reported by providers.
const (
	TransferSuccess = "success"
	TransferPending = "pending"
	TransferFailed  = "failed"
)

// TransferResult is the provider's acknowledgement of an initiated payout.
type TransferResult struct {
	Reference string `json:"reference"`
	Status    string `json:"status"`
}

// Bank is one entry of a provider's supported bank list.
type Bank struct {
	Name string `json:"name"`
	Code string `json:"code"`
}

// Gateway is the payment processor boundary. All calls are fallible and
// retryable; implementations classify transient failures as retryable
// gateway errors so the withdrawal workflow can back off and try again.
type Gateway interface {
	InitiateTransfer(ctx context.Context, account models.BankAccount, amount decimal.Decimal, reference string) (*TransferResult, error)
	ResolveAccountName(ctx context.Context, accountNumber, bankCode string) (string, error)
	ListBanks(ctx context.Context) ([]Bank, error)
}
