package wallet

import (
	"time"

	"github.com/shopspring/decimal"

	apperr "ledgerpay/internal/errors"
	"ledgerpay/internal/models"
)

// WalletConfig holds configuration for wallet operations
type WalletConfig struct {
	DefaultCurrency string
	DefaultLimits   map[models.Account]models.WalletLimits
	CacheTTL        time.Duration
}

// Snapshot is the read model returned to API consumers: current balance,
// limit consumption and running totals in one shape.
type Snapshot struct {
	UserID        uint                   `json:"user_id"`
	AccountType   models.Account         `json:"account_type"`
	Status        string                 `json:"status"`
	Currency      string                 `json:"currency"`
	Balance       decimal.Decimal        `json:"balance"`
	Available     decimal.Decimal        `json:"available"`
	Usage         apperr.LimitUsage      `json:"limit_usage"`
	BankAccount   models.BankAccount     `json:"bank_account"`
	Meta          models.WalletMetadata  `json:"metadata"`
	HasPendingOut bool                   `json:"has_pending_withdrawal"`
}

// MetricsCollector defines the interface for collecting wallet metrics
type MetricsCollector interface {
	// Operation metrics
	RecordOperationDuration(operation string, duration time.Duration)

	// Cache metrics
	RecordCacheHit(key string)
	RecordCacheMiss(key string)

	// Balance metrics
	RecordBalanceChange(userID uint, oldBalance, newBalance float64)

	// Error metrics
	RecordError(operation, errType string)

	// Transaction metrics
	RecordTransaction(txType string, amount float64)
	RecordWithdrawal(status string)
}
