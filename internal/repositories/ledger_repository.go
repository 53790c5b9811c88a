// Package repositories provides the data access layer.
package repositories

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"ledgerpay/internal/models"
)

// LedgerRepository is the storage abstraction shared by the wallet service,
// the transaction engine and the withdrawal workflow. Implementations must
// make ExecuteInTransaction atomic and GetWalletForUpdate serializing: two
// concurrent units of work touching the same wallet may not interleave.
type LedgerRepository interface {
	// ExecuteInTransaction runs fn inside one atomic unit of work. If fn
	// returns an error nothing it did is persisted.
	ExecuteInTransaction(ctx context.Context, fn func(tx LedgerRepository) error) error

	CreateWallet(ctx context.Context, wallet *models.Wallet) error
	GetWallet(ctx context.Context, userID uint) (*models.Wallet, error)
	// GetWalletForUpdate locks the wallet row for the remainder of the
	// enclosing unit of work. Callers lock wallets in ascending user id
	// order to avoid deadlocks.
	GetWalletForUpdate(ctx context.Context, userID uint) (*models.Wallet, error)
	SaveWallet(ctx context.Context, wallet *models.Wallet) error

	CreateTransaction(ctx context.Context, tx *models.Transaction) error
	GetTransaction(ctx context.Context, transactionID string) (*models.Transaction, error)
	GetTransactionForUpdate(ctx context.Context, transactionID string) (*models.Transaction, error)
	GetTransactionByReference(ctx context.Context, reference string) (*models.Transaction, error)
	ReferenceExists(ctx context.Context, reference string) (bool, error)
	// TransitionStatus atomically moves a transaction between statuses.
	// It reports false when the transaction was not in the expected from
	// status, which is how concurrent approve/reject races are decided.
	TransitionStatus(ctx context.Context, transactionID string, from, to models.TransactionStatus) (bool, error)
	SetAudit(ctx context.Context, transactionID string, approvedAt, reversedAt *time.Time) error

	ListTransactionsForUser(ctx context.Context, userID uint, limit, offset int) ([]models.Transaction, error)
	CountTransactionsForUser(ctx context.Context, userID uint) (int64, error)
	ListEntriesForUser(ctx context.Context, userID uint) ([]models.Entry, error)
	SumByType(ctx context.Context, txType models.TransactionType) (decimal.Decimal, error)
	SumVAT(ctx context.Context) (collected, remitted decimal.Decimal, err error)
	SumCommission(ctx context.Context) (decimal.Decimal, error)
}
