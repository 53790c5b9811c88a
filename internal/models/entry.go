package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Entry is one leg of a double-entry transaction. Exactly one of Debit and
// Credit is non-zero. Entries are immutable once their transaction commits.
type Entry struct {
	ID            uint            `gorm:"primarykey" json:"-"`
	TransactionID string          `gorm:"index;not null" json:"transaction_id"`
	Position      int             `gorm:"not null" json:"position"`
	Account       Account         `gorm:"not null" json:"account"`
	UserID        *uint           `gorm:"index" json:"user_id,omitempty"`
	Debit         decimal.Decimal `gorm:"type:numeric(20,2);not null" json:"debit"`
	Credit        decimal.Decimal `gorm:"type:numeric(20,2);not null" json:"credit"`
	Description   string          `json:"description"`
	CreatedAt     time.Time       `json:"created_at"`
}

// Delta is the signed effect of the entry on a wallet balance: credits
// increase it, debits decrease it.
func (e Entry) Delta() decimal.Decimal {
	return e.Credit.Sub(e.Debit)
}

// DebitEntry builds a debit leg against a platform-level account.
func DebitEntry(account Account, amount decimal.Decimal, description string) Entry {
	return Entry{Account: account, Debit: amount, Credit: decimal.Zero, Description: description}
}

// CreditEntry builds a credit leg against a platform-level account.
func CreditEntry(account Account, amount decimal.Decimal, description string) Entry {
	return Entry{Account: account, Debit: decimal.Zero, Credit: amount, Description: description}
}

// WalletDebit builds a debit leg against a user's wallet account.
func WalletDebit(account Account, userID uint, amount decimal.Decimal, description string) Entry {
	e := DebitEntry(account, amount, description)
	e.UserID = &userID
	return e
}

// WalletCredit builds a credit leg against a user's wallet account.
func WalletCredit(account Account, userID uint, amount decimal.Decimal, description string) Entry {
	e := CreditEntry(account, amount, description)
	e.UserID = &userID
	return e
}
