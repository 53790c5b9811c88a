// Package errors defines the domain error taxonomy shared by the ledger,
// wallet and withdrawal services. Handlers map kinds to HTTP status codes.
package errors

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

type Kind string

const (
	KindValidation    Kind = "validation"
	KindLimitExceeded Kind = "limit_exceeded"
	KindConflict      Kind = "conflict"
	KindGateway       Kind = "gateway"
	KindNotFound      Kind = "not_found"
	KindInternal      Kind = "internal"
)

// LimitUsage carries the current withdrawal usage so callers can display
// how much headroom remains when a limit check fails.
type LimitUsage struct {
	DailyLimit       decimal.Decimal `json:"daily_limit"`
	DailyWithdrawn   decimal.Decimal `json:"daily_withdrawn"`
	MonthlyLimit     decimal.Decimal `json:"monthly_limit"`
	MonthlyWithdrawn decimal.Decimal `json:"monthly_withdrawn"`
	MinimumBalance   decimal.Decimal `json:"minimum_balance"`
	Balance          decimal.Decimal `json:"balance"`
}

type DomainError struct {
	Kind    Kind
	Code    string
	Message string
	Usage   *LimitUsage
	Err     error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error { return e.Err }

// Is matches two domain errors by code so sentinel comparisons with
// errors.Is work across wrapping.
func (e *DomainError) Is(target error) bool {
	var de *DomainError
	if !errors.As(target, &de) {
		return false
	}
	return e.Code == de.Code
}

func Validation(code, message string) *DomainError {
	return &DomainError{Kind: KindValidation, Code: code, Message: message}
}

func Conflict(code, message string) *DomainError {
	return &DomainError{Kind: KindConflict, Code: code, Message: message}
}

func NotFound(code, message string) *DomainError {
	return &DomainError{Kind: KindNotFound, Code: code, Message: message}
}

func LimitExceeded(message string, usage LimitUsage) *DomainError {
	return &DomainError{Kind: KindLimitExceeded, Code: "LIMIT_EXCEEDED", Message: message, Usage: &usage}
}

// Gateway wraps a payment-gateway failure. Retryable failures are retried
// by the withdrawal workflow before the withdrawal is failed terminally.
func Gateway(message string, err error, retryable bool) *DomainError {
	code := "GATEWAY_ERROR"
	if retryable {
		code = "GATEWAY_TRANSIENT"
	}
	return &DomainError{Kind: KindGateway, Code: code, Message: message, Err: err}
}

func Internal(message string, err error) *DomainError {
	return &DomainError{Kind: KindInternal, Code: "INTERNAL", Message: message, Err: err}
}

// KindOf extracts the domain kind from an error chain, KindInternal when
// the error is not a DomainError.
func KindOf(err error) Kind {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindInternal
}

func IsKind(err error, kind Kind) bool { return KindOf(err) == kind }

// Retryable reports whether a gateway error is worth another attempt.
func Retryable(err error) bool {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Kind == KindGateway && de.Code == "GATEWAY_TRANSIENT"
	}
	return false
}
