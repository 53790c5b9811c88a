package wallet

import (
	"context"

	"github.com/shopspring/decimal"

	"ledgerpay/internal/models"
)

// Service defines the wallet aggregate operations.
type Service interface {
	// Lifecycle
	Create(ctx context.Context, userID uint, accountType models.Account) (*models.Wallet, error)
	GetWallet(ctx context.Context, userID uint) (*models.Wallet, error)
	SetStatus(ctx context.Context, userID uint, status, reason string) error

	// Balance and limits
	GetBalance(ctx context.Context, userID uint) (decimal.Decimal, error)
	GetSnapshot(ctx context.Context, userID uint) (*Snapshot, error)
	CheckWithdrawalLimits(ctx context.Context, userID uint, amount, fee decimal.Decimal) error
	UpdateLimits(ctx context.Context, userID uint, limits models.WalletLimits) error

	// Payout destination
	UpdateBankAccount(ctx context.Context, userID uint, account models.BankAccount) (*models.Wallet, error)
	VerifyBankAccount(ctx context.Context, userID uint) (*models.Wallet, error)
}
