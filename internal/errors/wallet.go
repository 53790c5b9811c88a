package errors

var (
	ErrWalletNotFound = &DomainError{
		Kind:    KindNotFound,
		Code:    "WALLET_NOT_FOUND",
		Message: "wallet not found",
	}
	ErrWalletExists = &DomainError{
		Kind:    KindConflict,
		Code:    "WALLET_EXISTS",
		Message: "a wallet already exists for this user",
	}
	ErrWalletNotActive = &DomainError{
		Kind:    KindValidation,
		Code:    "WALLET_NOT_ACTIVE",
		Message: "wallet is not active",
	}
	ErrInsufficientBalance = &DomainError{
		Kind:    KindValidation,
		Code:    "INSUFFICIENT_BALANCE",
		Message: "insufficient wallet balance",
	}
	ErrInvalidAmount = &DomainError{
		Kind:    KindValidation,
		Code:    "INVALID_AMOUNT",
		Message: "invalid amount",
	}
	ErrBankAccountMissing = &DomainError{
		Kind:    KindValidation,
		Code:    "BANK_ACCOUNT_MISSING",
		Message: "no bank account on file",
	}
	ErrBankAccountUnverified = &DomainError{
		Kind:    KindValidation,
		Code:    "BANK_ACCOUNT_UNVERIFIED",
		Message: "bank account has not been verified",
	}
)
