package commission

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperr "ledgerpay/internal/errors"
	"ledgerpay/internal/models"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func entryTotal(entries []models.Entry, account models.Account) decimal.Decimal {
	total := decimal.Zero
	for _, e := range entries {
		if e.Account == account {
			total = total.Add(e.Credit).Sub(e.Debit)
		}
	}
	return total
}

func assertBalanced(t *testing.T, entries []models.Entry) {
	t.Helper()
	debits, credits := decimal.Zero, decimal.Zero
	for _, e := range entries {
		debits = debits.Add(e.Debit)
		credits = credits.Add(e.Credit)
	}
	assert.True(t, debits.Equal(credits), "debits %s != credits %s", debits, credits)
}

func TestCalculate_PlatformBorneVAT(t *testing.T) {
	breakdown, err := Calculate(OrderInput{
		OrderTotal:        dec("1000"),
		PlatformRate:      dec("0.10"),
		DispatchFee:       dec("150"),
		VATRate:           dec("0.075"),
		VATResponsibility: models.VATPlatform,
		VendorID:          7,
		DispatchID:        9,
		OrderReference:    "ORD-1001",
	})
	require.NoError(t, err)

	assertBalanced(t, breakdown.Entries)
	assert.True(t, breakdown.PayerTotal.Equal(dec("1225")), "payer total %s", breakdown.PayerTotal)
	assert.True(t, breakdown.Commission.PlatformAmount.Equal(dec("100")))
	assert.True(t, breakdown.Commission.VendorAmount.Equal(dec("900")))
	assert.True(t, breakdown.VAT.Amount.Equal(dec("75")))
	assert.True(t, breakdown.VAT.Collected)

	assert.True(t, entryTotal(breakdown.Entries, models.AccountWalletVendor).Equal(dec("900")))
	assert.True(t, entryTotal(breakdown.Entries, models.AccountWalletDispatch).Equal(dec("150")))
	assert.True(t, entryTotal(breakdown.Entries, models.AccountCommissionRevenue).Equal(dec("100")))
	assert.True(t, entryTotal(breakdown.Entries, models.AccountVATPayable).Equal(dec("75")))
	assert.True(t, entryTotal(breakdown.Entries, models.AccountCash).Equal(dec("-1225")))
}

func TestCalculate_VendorBorneVAT(t *testing.T) {
	breakdown, err := Calculate(OrderInput{
		OrderTotal:        dec("1000"),
		PlatformRate:      dec("0.10"),
		VATRate:           dec("0.075"),
		VATResponsibility: models.VATVendor,
		VendorID:          7,
		OrderReference:    "ORD-1002",
	})
	require.NoError(t, err)

	assertBalanced(t, breakdown.Entries)
	// The payer funds only the order; the vendor's share absorbs the VAT.
	assert.True(t, breakdown.PayerTotal.Equal(dec("1000")))
	assert.True(t, entryTotal(breakdown.Entries, models.AccountWalletVendor).Equal(dec("825")))
	assert.True(t, entryTotal(breakdown.Entries, models.AccountVATPayable).Equal(dec("75")))
}

func TestCalculate_RoundingResidualGoesToPlatform(t *testing.T) {
	// 10.01 at 50%: both halves round 5.005 up to 5.01, overshooting the
	// total by one cent. The platform share absorbs the correction.
	breakdown, err := Calculate(OrderInput{
		OrderTotal:        dec("10.01"),
		PlatformRate:      dec("0.5"),
		VATRate:           decimal.Zero,
		VATResponsibility: models.VATVendor,
		VendorID:          7,
		OrderReference:    "ORD-1003",
	})
	require.NoError(t, err)

	assertBalanced(t, breakdown.Entries)
	assert.True(t, breakdown.Commission.PlatformAmount.Equal(dec("5.00")))
	assert.True(t, entryTotal(breakdown.Entries, models.AccountWalletVendor).Equal(dec("5.01")))
	sum := breakdown.Commission.PlatformAmount.Add(breakdown.Commission.VendorAmount)
	assert.True(t, sum.Equal(dec("10.01")), "shares sum to %s", sum)
}

func TestCalculate_NoVATNoDispatch(t *testing.T) {
	breakdown, err := Calculate(OrderInput{
		OrderTotal:        dec("500"),
		PlatformRate:      dec("0.2"),
		VATRate:           decimal.Zero,
		VATResponsibility: models.VATPlatform,
		VendorID:          3,
		OrderReference:    "ORD-1004",
	})
	require.NoError(t, err)

	// No VAT or dispatch entries when those amounts are zero.
	assert.Len(t, breakdown.Entries, 3)
	assert.False(t, breakdown.VAT.Collected)
	assertBalanced(t, breakdown.Entries)
}

func TestCalculate_ValidationErrors(t *testing.T) {
	base := OrderInput{
		OrderTotal:        dec("1000"),
		PlatformRate:      dec("0.10"),
		VATRate:           dec("0.075"),
		VATResponsibility: models.VATPlatform,
		VendorID:          7,
		OrderReference:    "ORD-1005",
	}

	tests := []struct {
		name   string
		mutate func(*OrderInput)
	}{
		{"zero total", func(in *OrderInput) { in.OrderTotal = decimal.Zero }},
		{"negative total", func(in *OrderInput) { in.OrderTotal = dec("-10") }},
		{"rate of one", func(in *OrderInput) { in.PlatformRate = decimal.NewFromInt(1) }},
		{"negative rate", func(in *OrderInput) { in.PlatformRate = dec("-0.1") }},
		{"negative vat rate", func(in *OrderInput) { in.VATRate = dec("-0.05") }},
		{"negative dispatch fee", func(in *OrderInput) { in.DispatchFee = dec("-1") }},
		{"missing vendor", func(in *OrderInput) { in.VendorID = 0 }},
		{"dispatch fee without rider", func(in *OrderInput) { in.DispatchFee = dec("100") }},
		{"unknown vat responsibility", func(in *OrderInput) { in.VATResponsibility = "nobody" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := base
			tt.mutate(&in)
			_, err := Calculate(in)
			assert.Error(t, err)
			assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
		})
	}
}

func TestCalculate_VATExceedsVendorShare(t *testing.T) {
	_, err := Calculate(OrderInput{
		OrderTotal:        dec("100"),
		PlatformRate:      dec("0.95"),
		VATRate:           dec("0.075"),
		VATResponsibility: models.VATVendor,
		VendorID:          7,
		OrderReference:    "ORD-1006",
	})
	require.Error(t, err)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}
