package models

import (
	"time"

	"github.com/shopspring/decimal"

	apperr "ledgerpay/internal/errors"
)

// Wallet statuses
const (
	WalletActive    = "active"
	WalletSuspended = "suspended"
	WalletFrozen    = "frozen"
	WalletClosed    = "closed"
)

const (
	dailyPeriodLayout   = "2006-01-02"
	monthlyPeriodLayout = "2006-01"
)

// BankAccount holds the payout destination for a wallet. Verified flips to
// true only after the gateway resolves the account name.
type BankAccount struct {
	AccountName   string `json:"account_name" validate:"required"`
	AccountNumber string `json:"account_number" validate:"required,numeric,len=10"`
	BankCode      string `json:"bank_code" validate:"required"`
	BankName      string `json:"bank_name" validate:"required"`
	Verified      bool   `json:"verified" validate:"-"`
}

func (b BankAccount) Empty() bool {
	return b.AccountNumber == "" || b.BankCode == ""
}

// WalletLimits caps outbound transfers for a wallet.
type WalletLimits struct {
	DailyWithdrawal   decimal.Decimal `gorm:"type:numeric(20,2)" json:"daily_withdrawal"`
	MonthlyWithdrawal decimal.Decimal `gorm:"type:numeric(20,2)" json:"monthly_withdrawal"`
	MinimumBalance    decimal.Decimal `gorm:"type:numeric(20,2)" json:"minimum_balance"`
}

// WithdrawalStats tracks rolling withdrawal usage. The stored period strings
// stale out naturally: when they no longer match the current day or month
// the counter reads as zero.
type WithdrawalStats struct {
	DailyWithdrawn   decimal.Decimal `gorm:"type:numeric(20,2)" json:"daily_withdrawn"`
	DailyDate        string          `json:"daily_date"`
	MonthlyWithdrawn decimal.Decimal `gorm:"type:numeric(20,2)" json:"monthly_withdrawn"`
	MonthlyPeriod    string          `json:"monthly_period"`
}

// EffectiveDaily returns the withdrawn amount counted against today.
func (s WithdrawalStats) EffectiveDaily(now time.Time) decimal.Decimal {
	if s.DailyDate != now.UTC().Format(dailyPeriodLayout) {
		return decimal.Zero
	}
	return s.DailyWithdrawn
}

// EffectiveMonthly returns the withdrawn amount counted against this month.
func (s WithdrawalStats) EffectiveMonthly(now time.Time) decimal.Decimal {
	if s.MonthlyPeriod != now.UTC().Format(monthlyPeriodLayout) {
		return decimal.Zero
	}
	return s.MonthlyWithdrawn
}

// Record adds a reserved withdrawal to the current period counters,
// resetting any stale period first.
func (s *WithdrawalStats) Record(amount decimal.Decimal, now time.Time) {
	day := now.UTC().Format(dailyPeriodLayout)
	month := now.UTC().Format(monthlyPeriodLayout)
	if s.DailyDate != day {
		s.DailyDate = day
		s.DailyWithdrawn = decimal.Zero
	}
	if s.MonthlyPeriod != month {
		s.MonthlyPeriod = month
		s.MonthlyWithdrawn = decimal.Zero
	}
	s.DailyWithdrawn = s.DailyWithdrawn.Add(amount)
	s.MonthlyWithdrawn = s.MonthlyWithdrawn.Add(amount)
}

// Release returns a reversed withdrawal's amount to the period counters it
// was counted against, if those periods are still current.
func (s *WithdrawalStats) Release(amount decimal.Decimal, now time.Time) {
	if s.DailyDate == now.UTC().Format(dailyPeriodLayout) {
		s.DailyWithdrawn = decimal.Max(decimal.Zero, s.DailyWithdrawn.Sub(amount))
	}
	if s.MonthlyPeriod == now.UTC().Format(monthlyPeriodLayout) {
		s.MonthlyWithdrawn = decimal.Max(decimal.Zero, s.MonthlyWithdrawn.Sub(amount))
	}
}

// WalletMetadata carries running totals for display and reconciliation.
// The balance itself is always replayable from the entry log; these totals
// are derived conveniences updated inside the same commit.
type WalletMetadata struct {
	LastTransactionAt *time.Time      `json:"last_transaction_at,omitempty"`
	TotalEarnings     decimal.Decimal `gorm:"type:numeric(20,2)" json:"total_earnings"`
	TotalWithdrawals  decimal.Decimal `gorm:"type:numeric(20,2)" json:"total_withdrawals"`
	TotalCommissions  decimal.Decimal `gorm:"type:numeric(20,2)" json:"total_commissions"`
	TotalVATCollected decimal.Decimal `gorm:"type:numeric(20,2)" json:"total_vat_collected"`
}

// Wallet is the per-user balance aggregate. Exactly one wallet exists per
// user; wallets are never deleted, only status-transitioned to closed.
type Wallet struct {
	ID                  uint            `gorm:"primarykey" json:"-"`
	UserID              uint            `gorm:"uniqueIndex;not null" json:"user_id"`
	AccountType         Account         `gorm:"not null;default:'wallet_vendor'" json:"account_type"`
	Balance             decimal.Decimal `gorm:"type:numeric(20,2);not null" json:"balance"`
	Currency            string          `gorm:"default:'NGN'" json:"currency"`
	Status              string          `gorm:"default:'active'" json:"status"`
	StatusReason        string          `json:"status_reason,omitempty"`
	BankAccount         BankAccount     `gorm:"embedded;embeddedPrefix:bank_" json:"bank_account"`
	Limits              WalletLimits    `gorm:"embedded;embeddedPrefix:limit_" json:"limits"`
	Stats               WithdrawalStats `gorm:"embedded;embeddedPrefix:stat_" json:"withdrawal_stats"`
	Meta                WalletMetadata  `gorm:"embedded;embeddedPrefix:meta_" json:"metadata"`
	PendingWithdrawalID *string         `json:"pending_withdrawal_id,omitempty"`
	CreatedAt           time.Time       `json:"created_at"`
	UpdatedAt           time.Time       `json:"updated_at"`
}

// Usage snapshots the wallet's current limit consumption.
func (w *Wallet) Usage(now time.Time) apperr.LimitUsage {
	return apperr.LimitUsage{
		DailyLimit:       w.Limits.DailyWithdrawal,
		DailyWithdrawn:   w.Stats.EffectiveDaily(now),
		MonthlyLimit:     w.Limits.MonthlyWithdrawal,
		MonthlyWithdrawn: w.Stats.EffectiveMonthly(now),
		MinimumBalance:   w.Limits.MinimumBalance,
		Balance:          w.Balance,
	}
}

// CheckWithdrawal validates amount+fee against the wallet's limits and
// returns the projected post-withdrawal balance. The daily and monthly caps
// apply to the requested amount; the minimum-balance floor applies to the
// full debit including the fee.
func (w *Wallet) CheckWithdrawal(amount, fee decimal.Decimal, now time.Time) (decimal.Decimal, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero, apperr.ErrInvalidAmount
	}
	usage := w.Usage(now)

	if usage.DailyWithdrawn.Add(amount).GreaterThan(w.Limits.DailyWithdrawal) {
		return decimal.Zero, apperr.LimitExceeded("daily withdrawal limit exceeded", usage)
	}
	if usage.MonthlyWithdrawn.Add(amount).GreaterThan(w.Limits.MonthlyWithdrawal) {
		return decimal.Zero, apperr.LimitExceeded("monthly withdrawal limit exceeded", usage)
	}

	projected := w.Balance.Sub(amount).Sub(fee)
	if projected.LessThan(w.Limits.MinimumBalance) {
		return decimal.Zero, apperr.LimitExceeded("withdrawal would breach the minimum balance", usage)
	}
	return projected, nil
}
