package payments

import (
	"errors"
	"fmt"
)

// ErrRecordNotFound signals that no payment record exists for the given key.
// Webhook callers treat it as a soft miss, not a failure.
var ErrRecordNotFound = errors.New("payment record not found")

// Machine-readable validation codes.
const (
	CodeInvalidAmount       = "INVALID_AMOUNT"
	CodeInvalidCurrency     = "INVALID_CURRENCY"
	CodeInvalidFee          = "INVALID_FEE"
	CodeInvalidStatus       = "INVALID_STATUS"
	CodeMissingIntent       = "MISSING_PAYMENT_INTENT"
	CodeNoConnectedAccount  = "NO_CONNECTED_ACCOUNT"
	CodeAccountNotOnboarded = "ACCOUNT_NOT_ONBOARDED"
)

// ValidationError describes bad caller input with a machine-readable code.
type ValidationError struct {
	Code    string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewValidationError builds a ValidationError.
func NewValidationError(code, message string) *ValidationError {
	return &ValidationError{Code: code, Message: message}
}

// GatewayError describes a failed call to Stripe or a collaborator service.
type GatewayError struct {
	Code    string
	Message string
	Err     error
}

func (e *GatewayError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return e.Code
}

func (e *GatewayError) Unwrap() error {
	return e.Err
}

// NewGatewayError builds a GatewayError wrapping the underlying cause.
func NewGatewayError(code, message string, err error) *GatewayError {
	return &GatewayError{Code: code, Message: message, Err: err}
}
