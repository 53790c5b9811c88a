package errors

var (
	ErrTransactionNotFound = &DomainError{
		Kind:    KindNotFound,
		Code:    "TRANSACTION_NOT_FOUND",
		Message: "transaction not found",
	}
	ErrDuplicateReference = &DomainError{
		Kind:    KindConflict,
		Code:    "DUPLICATE_REFERENCE",
		Message: "a transaction with this reference already exists",
	}
	ErrEmptyEntries = &DomainError{
		Kind:    KindValidation,
		Code:    "EMPTY_ENTRIES",
		Message: "transaction has no entries",
	}
	ErrUnbalancedEntries = &DomainError{
		Kind:    KindValidation,
		Code:    "UNBALANCED_ENTRIES",
		Message: "transaction debits and credits do not balance",
	}
	ErrUnknownAccount = &DomainError{
		Kind:    KindValidation,
		Code:    "UNKNOWN_ACCOUNT",
		Message: "entry references an unknown ledger account",
	}
	ErrInvalidTransition = &DomainError{
		Kind:    KindConflict,
		Code:    "INVALID_TRANSITION",
		Message: "transaction status transition is not allowed",
	}
	ErrAlreadyReversed = &DomainError{
		Kind:    KindConflict,
		Code:    "ALREADY_REVERSED",
		Message: "transaction has already been reversed",
	}
	ErrWithdrawalPending = &DomainError{
		Kind:    KindConflict,
		Code:    "WITHDRAWAL_PENDING",
		Message: "another withdrawal is already pending for this wallet",
	}
)
