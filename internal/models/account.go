package models

// Account identifies a ledger account from the fixed chart of accounts.
// The set is closed: the calculator and the transaction engine reject any
// value outside it so a typo can never unbalance the ledger.
type Account string

const (
	AccountCash               Account = "cash_account"
	AccountAccountsReceivable Account = "accounts_receivable"
	AccountWalletVendor       Account = "wallet_vendor"
	AccountWalletDispatch     Account = "wallet_dispatch"
	AccountWalletCustomer     Account = "wallet_customer"
	AccountPlatformRevenue    Account = "platform_revenue"
	AccountCommissionRevenue  Account = "commission_revenue"
	AccountVATPayable         Account = "vat_payable"
	AccountGatewayPayable     Account = "gateway_payable"
	AccountFeeRevenue         Account = "fee_revenue"
)

var chartOfAccounts = map[Account]bool{
	AccountCash:               true,
	AccountAccountsReceivable: true,
	AccountWalletVendor:       true,
	AccountWalletDispatch:     true,
	AccountWalletCustomer:     true,
	AccountPlatformRevenue:    true,
	AccountCommissionRevenue:  true,
	AccountVATPayable:         true,
	AccountGatewayPayable:     true,
	AccountFeeRevenue:         true,
}

// Valid reports whether the account belongs to the chart of accounts.
func (a Account) Valid() bool { return chartOfAccounts[a] }

// UserScoped reports whether entries on this account address a user wallet.
// User-scoped entries must carry a user id; platform-level entries must not.
func (a Account) UserScoped() bool {
	switch a {
	case AccountWalletVendor, AccountWalletDispatch, AccountWalletCustomer:
		return true
	}
	return false
}

func (a Account) String() string { return string(a) }
