package ledger

import (
	"context"

	"github.com/shopspring/decimal"

	"ledgerpay/internal/models"
	"ledgerpay/internal/services/commission"
)

// Draft is a transaction waiting to be committed. Entries must balance and
// reference only chart-of-accounts entries; Reference is the caller's
// idempotency key.
type Draft struct {
	Reference           string
	Type                models.TransactionType
	Entries             []models.Entry
	TotalAmount         decimal.Decimal
	Currency            string
	Description         string
	VAT                 models.VATDetails
	Commission          models.CommissionDetails
	Metadata            models.JSON
	ParentTransactionID *string
	Reason              string
	// Pending commits the draft in pending status instead of completed.
	// Only wallet withdrawals reserve funds this way; the entries are
	// applied to balances either way so the ledger stays balanced at
	// every intermediate state.
	Pending bool
}

// Service is the transaction engine: it validates drafts and commits them
// atomically against the wallets they touch, and produces compensating
// transactions for the append-only ledger.
type Service interface {
	Commit(ctx context.Context, draft Draft) (*models.Transaction, error)
	// Reverse compensates a completed transaction: a new transaction with
	// every debit and credit swapped, linked through ParentTransactionID,
	// after which the original is marked reversed. At most once per
	// transaction.
	Reverse(ctx context.Context, transactionID, reason string) (*models.Transaction, error)
	// CompensateWithdrawal moves a withdrawal to a terminal status and
	// restores the reserved funds in the same unit of work, so a storage
	// failure can never strand the funds with the withdrawal already
	// terminal. The from status guards against concurrent transitions.
	// Used only by the withdrawal workflow.
	CompensateWithdrawal(ctx context.Context, transactionID string, from, to models.TransactionStatus, reason string) (*models.Transaction, error)

	// SettleOrder runs the commission calculator over an order and
	// commits the resulting balanced entry set.
	SettleOrder(ctx context.Context, order commission.OrderInput, reference string) (*models.Transaction, error)
	// RemitVAT books a payment of collected VAT out of the platform's
	// cash account.
	RemitVAT(ctx context.Context, amount decimal.Decimal, reference string) (*models.Transaction, error)

	GetTransaction(ctx context.Context, transactionID string) (*models.Transaction, error)
	// GetByReference looks a transaction up by its idempotency key, so
	// callers can recover the outcome of a commit they never saw the
	// response for.
	GetByReference(ctx context.Context, reference string) (*models.Transaction, error)
	// Statement lists the user's transactions newest first, along with
	// the total count for pagination.
	Statement(ctx context.Context, userID uint, limit, offset int) ([]models.Transaction, int64, error)
	// ReplayBalance recomputes a wallet balance from the entry log. Used
	// by auditing; the stored balance must always match.
	ReplayBalance(ctx context.Context, userID uint) (decimal.Decimal, error)
}

// CacheInvalidator drops cached wallet snapshots after a commit.
type CacheInvalidator interface {
	InvalidateWallet(ctx context.Context, userID uint) error
}
