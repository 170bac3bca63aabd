// Package errors provides standardized error types for the domain layer.
// The sentinel values cover the transfer validation and submission taxonomy;
// DomainError adds codes and details for HTTP responses.
package errors

import (
	"errors"
	"fmt"
)

// Standard error categories
var (
	// ErrInvalidRecipient indicates a syntactically invalid recipient address
	ErrInvalidRecipient = errors.New("invalid recipient address")

	// ErrInvalidAmount indicates a non-positive or unparseable amount
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrWalletNotConnected indicates no signer client is available
	ErrWalletNotConnected = errors.New("wallet not connected")

	// ErrUnsupportedToken indicates a symbol outside the supported catalog
	ErrUnsupportedToken = errors.New("unsupported token")

	// ErrNetworkFailure indicates a failed balance or metadata read
	ErrNetworkFailure = errors.New("network failure")

	// ErrSubmissionFailure indicates a failed transfer broadcast or confirmation
	ErrSubmissionFailure = errors.New("submission failure")

	// ErrNotFound indicates the requested resource was not found
	ErrNotFound = errors.New("resource not found")

	// ErrInvalidInput indicates invalid input was provided
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnauthorized indicates the request is not authorized
	ErrUnauthorized = errors.New("unauthorized")

	// ErrConflict indicates a conflict with the current state
	ErrConflict = errors.New("conflict")

	// ErrInternal indicates an internal server error
	ErrInternal = errors.New("internal error")
)

// DomainError represents a domain-specific error with additional context
type DomainError struct {
	Err       error
	Code      string
	Message   string
	Details   map[string]interface{}
	Retryable bool
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Code
}

// Unwrap returns the underlying error
func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is checks if the error matches the target
func (e *DomainError) Is(target error) bool {
	if e.Err != nil {
		return errors.Is(e.Err, target)
	}
	return false
}

// WithDetails adds details to the error
func (e *DomainError) WithDetails(details map[string]interface{}) *DomainError {
	e.Details = details
	return e
}

// InvalidRecipientError creates an invalid recipient error
func InvalidRecipientError(address string) *DomainError {
	return &DomainError{
		Err:     ErrInvalidRecipient,
		Code:    "INVALID_RECIPIENT",
		Message: "recipient is not a valid address",
		Details: map[string]interface{}{
			"recipient": address,
		},
	}
}

// InvalidAmountError creates an invalid amount error
func InvalidAmountError(amount string) *DomainError {
	return &DomainError{
		Err:     ErrInvalidAmount,
		Code:    "INVALID_AMOUNT",
		Message: "amount must be a positive number",
		Details: map[string]interface{}{
			"amount": amount,
		},
	}
}

// WalletNotConnectedError creates a wallet-not-connected error
func WalletNotConnectedError() *DomainError {
	return &DomainError{
		Err:     ErrWalletNotConnected,
		Code:    "WALLET_NOT_CONNECTED",
		Message: "no active wallet client is available",
	}
}

// UnsupportedTokenError creates an unsupported token error
func UnsupportedTokenError(symbol string) *DomainError {
	return &DomainError{
		Err:     ErrUnsupportedToken,
		Code:    "UNSUPPORTED_TOKEN",
		Message: fmt.Sprintf("token %s is not supported", symbol),
		Details: map[string]interface{}{
			"token": symbol,
		},
	}
}

// NetworkFailureError creates a network failure error for the read path
func NetworkFailureError(operation string, err error) *DomainError {
	de := &DomainError{
		Err:       ErrNetworkFailure,
		Code:      "NETWORK_FAILURE",
		Message:   fmt.Sprintf("%s failed", operation),
		Retryable: true,
	}
	if err != nil {
		de.Details = map[string]interface{}{
			"cause": err.Error(),
		}
	}
	return de
}

// SubmissionFailureError creates a transfer submission failure error
func SubmissionFailureError(message string, err error) *DomainError {
	de := &DomainError{
		Err:     ErrSubmissionFailure,
		Code:    "SUBMISSION_FAILURE",
		Message: message,
	}
	if err != nil {
		de.Details = map[string]interface{}{
			"cause": err.Error(),
		}
	}
	return de
}

// NotFoundError creates a not found error
func NotFoundError(resource string) *DomainError {
	return &DomainError{
		Err:     ErrNotFound,
		Code:    fmt.Sprintf("%s_NOT_FOUND", resource),
		Message: fmt.Sprintf("%s not found", resource),
	}
}

// ConflictError creates a conflict error
func ConflictError(resource, reason string) *DomainError {
	return &DomainError{
		Err:     ErrConflict,
		Code:    "CONFLICT",
		Message: fmt.Sprintf("conflict with %s: %s", resource, reason),
	}
}

// InternalError creates an internal error
func InternalError(message string, err error) *DomainError {
	de := &DomainError{
		Err:     ErrInternal,
		Code:    "INTERNAL_ERROR",
		Message: message,
	}
	if err != nil {
		de.Details = map[string]interface{}{
			"cause": err.Error(),
		}
	}
	return de
}

// Error helpers for common patterns

// IsValidation reports whether err is one of the pre-submission
// validation failures (no side effects have happened).
func IsValidation(err error) bool {
	return errors.Is(err, ErrInvalidRecipient) ||
		errors.Is(err, ErrInvalidAmount) ||
		errors.Is(err, ErrWalletNotConnected)
}

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsConflict checks if an error is a conflict error
func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}

// GetErrorCode extracts the error code from a domain error
func GetErrorCode(err error) string {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code
	}
	return "UNKNOWN_ERROR"
}

// GetErrorDetails extracts details from a domain error
func GetErrorDetails(err error) map[string]interface{} {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Details
	}
	return nil
}

// Wrap wraps an error with additional context
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}
