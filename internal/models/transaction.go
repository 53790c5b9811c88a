package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type TransactionType string

const (
	TypeOrderPayment         TransactionType = "order_payment"
	TypeOrderRefund          TransactionType = "order_refund"
	TypePlatformCommission   TransactionType = "platform_commission"
	TypeVendorCommission     TransactionType = "vendor_commission"
	TypeDispatchCommission   TransactionType = "dispatch_commission"
	TypeVATCollection        TransactionType = "vat_collection"
	TypeVATRemittance        TransactionType = "vat_remittance"
	TypeWalletDeposit        TransactionType = "wallet_deposit"
	TypeWalletWithdrawal     TransactionType = "wallet_withdrawal"
	TypeWalletTransfer       TransactionType = "wallet_transfer"
	TypePaymentProcessingFee TransactionType = "payment_processing_fee"
	TypeBankTransferFee      TransactionType = "bank_transfer_fee"
	TypeSystemAdjustment     TransactionType = "system_adjustment"
	TypeReconciliation       TransactionType = "reconciliation"
)

var transactionTypes = map[TransactionType]bool{
	TypeOrderPayment: true, TypeOrderRefund: true,
	TypePlatformCommission: true, TypeVendorCommission: true,
	TypeDispatchCommission: true, TypeVATCollection: true,
	TypeVATRemittance: true, TypeWalletDeposit: true,
	TypeWalletWithdrawal: true, TypeWalletTransfer: true,
	TypePaymentProcessingFee: true, TypeBankTransferFee: true,
	TypeSystemAdjustment: true, TypeReconciliation: true,
}

func (t TransactionType) Valid() bool { return transactionTypes[t] }

type TransactionStatus string

const (
	StatusPending    TransactionStatus = "pending"
	StatusProcessing TransactionStatus = "processing"
	StatusCompleted  TransactionStatus = "completed"
	StatusFailed     TransactionStatus = "failed"
	StatusCancelled  TransactionStatus = "cancelled"
	StatusReversed   TransactionStatus = "reversed"
)

// CanTransitionTo encodes the one-directional status machine. Pending moves
// to processing, completed, failed or cancelled; processing to completed or
// failed; completed to reversed at most once. Everything else is terminal.
func (s TransactionStatus) CanTransitionTo(to TransactionStatus) bool {
	switch s {
	case StatusPending:
		return to == StatusProcessing || to == StatusCompleted || to == StatusFailed || to == StatusCancelled
	case StatusProcessing:
		return to == StatusCompleted || to == StatusFailed
	case StatusCompleted:
		return to == StatusReversed
	}
	return false
}

// Terminal reports whether no further transition is possible.
func (s TransactionStatus) Terminal() bool {
	return s == StatusFailed || s == StatusCancelled || s == StatusReversed
}

type VATResponsibility string

const (
	VATPlatform VATResponsibility = "platform"
	VATVendor   VATResponsibility = "vendor"
)

// VATDetails records how much VAT a transaction carried and who bore it.
type VATDetails struct {
	Rate           decimal.Decimal   `gorm:"type:numeric(8,4)" json:"rate"`
	Amount         decimal.Decimal   `gorm:"type:numeric(20,2)" json:"amount"`
	Responsibility VATResponsibility `json:"responsibility,omitempty"`
	Collected      bool              `json:"collected"`
	Remitted       bool              `json:"remitted"`
}

// CommissionDetails records the commission split applied to an order.
type CommissionDetails struct {
	PlatformRate   decimal.Decimal `gorm:"type:numeric(8,4)" json:"platform_rate"`
	PlatformAmount decimal.Decimal `gorm:"type:numeric(20,2)" json:"platform_amount"`
	VendorAmount   decimal.Decimal `gorm:"type:numeric(20,2)" json:"vendor_amount"`
	DispatchAmount decimal.Decimal `gorm:"type:numeric(20,2)" json:"dispatch_amount"`
}

// Transaction is one committed ledger event. Rows are append-only: after
// commit only the status machine and its audit stamps may change, never the
// entries or amounts. Corrections are new transactions linked through
// ParentTransactionID.
type Transaction struct {
	ID                  uint              `gorm:"primarykey" json:"-"`
	TransactionID       string            `gorm:"uniqueIndex;not null" json:"transaction_id"`
	Reference           string            `gorm:"uniqueIndex;not null" json:"reference"`
	Type                TransactionType   `gorm:"not null" json:"type"`
	Status              TransactionStatus `gorm:"not null;default:'pending'" json:"status"`
	Entries             []Entry           `gorm:"foreignKey:TransactionID;references:TransactionID" json:"entries"`
	TotalAmount         decimal.Decimal   `gorm:"type:numeric(20,2);not null" json:"total_amount"`
	Currency            string            `gorm:"default:'NGN'" json:"currency"`
	VAT                 VATDetails        `gorm:"embedded;embeddedPrefix:vat_" json:"vat"`
	Commission          CommissionDetails `gorm:"embedded;embeddedPrefix:commission_" json:"commission"`
	Description         string            `json:"description"`
	Reason              string            `json:"reason,omitempty"`
	Metadata            JSON              `gorm:"type:jsonb" json:"metadata,omitempty"`
	ParentTransactionID *string           `gorm:"index" json:"parent_transaction_id,omitempty"`
	ApprovedAt          *time.Time        `json:"approved_at,omitempty"`
	ReversedAt          *time.Time        `json:"reversed_at,omitempty"`
	CreatedAt           time.Time         `json:"created_at"`
	UpdatedAt           time.Time         `json:"-"`
}

// Balanced reports whether debits and credits sum to the same total.
func (t *Transaction) Balanced() bool {
	debits, credits := decimal.Zero, decimal.Zero
	for _, e := range t.Entries {
		debits = debits.Add(e.Debit)
		credits = credits.Add(e.Credit)
	}
	return debits.Equal(credits)
}

// CreditTotal sums the credit side of the transaction's entries for an account.
func (t *Transaction) CreditTotal(account Account) decimal.Decimal {
	total := decimal.Zero
	for _, e := range t.Entries {
		if e.Account == account {
			total = total.Add(e.Credit)
		}
	}
	return total
}

// WalletDelta is the signed effect of this transaction on one user's wallet.
func (t *Transaction) WalletDelta(userID uint) decimal.Decimal {
	delta := decimal.Zero
	for _, e := range t.Entries {
		if e.Account.UserScoped() && e.UserID != nil && *e.UserID == userID {
			delta = delta.Add(e.Delta())
		}
	}
	return delta
}
