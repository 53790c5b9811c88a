package wallet

import (
	"time"

	"github.com/shopspring/decimal"

	"ledgerpay/internal/models"
)

// Default configuration values
const (
	DefaultCurrency = "NGN"
	CacheDuration   = 5 * time.Minute
)

// Default withdrawal limits per account type. Vendors move more money than
// dispatch riders, so their caps sit higher.
func defaultLimits() map[models.Account]models.WalletLimits {
	return map[models.Account]models.WalletLimits{
		models.AccountWalletVendor: {
			DailyWithdrawal:   decimal.NewFromInt(500_000),
			MonthlyWithdrawal: decimal.NewFromInt(5_000_000),
			MinimumBalance:    decimal.Zero,
		},
		models.AccountWalletDispatch: {
			DailyWithdrawal:   decimal.NewFromInt(100_000),
			MonthlyWithdrawal: decimal.NewFromInt(1_000_000),
			MinimumBalance:    decimal.Zero,
		},
		models.AccountWalletCustomer: {
			DailyWithdrawal:   decimal.NewFromInt(50_000),
			MonthlyWithdrawal: decimal.NewFromInt(500_000),
			MinimumBalance:    decimal.Zero,
		},
	}
}
