// Package commission computes the balanced entry set for an order payment:
// the vendor's share, the dispatch share, the platform's commission and the
// VAT line. It performs no I/O and is safe for concurrent use.
package commission

import (
	"fmt"

	"github.com/shopspring/decimal"

	apperr "ledgerpay/internal/errors"
	"ledgerpay/internal/models"
)

// OrderInput describes one order to be settled.
type OrderInput struct {
	OrderTotal        decimal.Decimal
	PlatformRate      decimal.Decimal // fraction, e.g. 0.10 for 10%
	DispatchFee       decimal.Decimal // zero when no delivery leg
	VATRate           decimal.Decimal // fraction, e.g. 0.075 for 7.5%
	VATResponsibility models.VATResponsibility
	VendorID          uint
	DispatchID        uint // required only when DispatchFee > 0
	OrderReference    string
}

// Breakdown is the calculator's result: a balanced entry set plus the
// commission and VAT details recorded on the transaction.
type Breakdown struct {
	Entries    []models.Entry
	PayerTotal decimal.Decimal
	Commission models.CommissionDetails
	VAT        models.VATDetails
}

// Calculate splits an order total into balanced ledger entries.
//
// Each share is rounded to 2 decimal places half-up; any residual cent left
// by rounding is assigned to the platform commission so the transaction
// balances exactly. PlatformAmount + VendorAmount always equals OrderTotal;
// VAT is tracked separately from commission. When the platform bears the
// VAT the payer funds it on top of the order total, when the vendor bears
// it the amount comes out of the vendor's share.
func Calculate(in OrderInput) (*Breakdown, error) {
	if err := validate(in); err != nil {
		return nil, err
	}

	one := decimal.NewFromInt(1)
	platformShare := in.OrderTotal.Mul(in.PlatformRate).Round(2)
	vendorGross := in.OrderTotal.Mul(one.Sub(in.PlatformRate)).Round(2)

	// Residual cent from rounding the two shares independently.
	residual := in.OrderTotal.Sub(platformShare).Sub(vendorGross)
	platformShare = platformShare.Add(residual)

	vat := in.OrderTotal.Mul(in.VATRate).Round(2)

	vendorNet := vendorGross
	payerTotal := in.OrderTotal.Add(in.DispatchFee)
	if in.VATResponsibility == models.VATPlatform {
		payerTotal = payerTotal.Add(vat)
	} else {
		vendorNet = vendorNet.Sub(vat)
	}
	if vendorNet.IsNegative() {
		return nil, apperr.Validation("VAT_EXCEEDS_SHARE", "VAT amount exceeds the vendor's share")
	}

	entries := []models.Entry{
		models.DebitEntry(models.AccountCash, payerTotal,
			fmt.Sprintf("payment for order %s", in.OrderReference)),
		models.WalletCredit(models.AccountWalletVendor, in.VendorID, vendorNet,
			fmt.Sprintf("vendor settlement for order %s", in.OrderReference)),
	}
	if in.DispatchFee.IsPositive() {
		entries = append(entries, models.WalletCredit(models.AccountWalletDispatch, in.DispatchID, in.DispatchFee,
			fmt.Sprintf("dispatch fee for order %s", in.OrderReference)))
	}
	entries = append(entries, models.CreditEntry(models.AccountCommissionRevenue, platformShare,
		fmt.Sprintf("platform commission for order %s", in.OrderReference)))
	if vat.IsPositive() {
		entries = append(entries, models.CreditEntry(models.AccountVATPayable, vat,
			fmt.Sprintf("VAT on order %s", in.OrderReference)))
	}
	for i := range entries {
		entries[i].Position = i
	}

	return &Breakdown{
		Entries:    entries,
		PayerTotal: payerTotal,
		Commission: models.CommissionDetails{
			PlatformRate:   in.PlatformRate,
			PlatformAmount: platformShare,
			VendorAmount:   vendorGross,
			DispatchAmount: in.DispatchFee,
		},
		VAT: models.VATDetails{
			Rate:           in.VATRate,
			Amount:         vat,
			Responsibility: in.VATResponsibility,
			Collected:      vat.IsPositive(),
		},
	}, nil
}

func validate(in OrderInput) error {
	if in.OrderTotal.LessThanOrEqual(decimal.Zero) {
		return apperr.ErrInvalidAmount
	}
	if in.PlatformRate.IsNegative() || in.PlatformRate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return apperr.Validation("INVALID_RATE", "platform commission rate must be in [0, 1)")
	}
	if in.VATRate.IsNegative() {
		return apperr.Validation("INVALID_RATE", "VAT rate must not be negative")
	}
	if in.DispatchFee.IsNegative() {
		return apperr.Validation("INVALID_FEE", "dispatch fee must not be negative")
	}
	if in.VendorID == 0 {
		return apperr.Validation("MISSING_VENDOR", "order has no vendor")
	}
	if in.DispatchFee.IsPositive() && in.DispatchID == 0 {
		return apperr.Validation("MISSING_DISPATCH", "dispatch fee without a dispatch rider")
	}
	switch in.VATResponsibility {
	case models.VATPlatform, models.VATVendor:
		return nil
	}
	return apperr.Validation("INVALID_VAT_RESPONSIBILITY", "VAT responsibility must be platform or vendor")
}
