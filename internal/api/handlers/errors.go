package handlers

// Error codes as constants for consistent error responses across handlers
const (
	// Authentication & Authorization errors
	ErrCodeUnauthorized = "UNAUTHORIZED"
	ErrCodeInvalidToken = "INVALID_TOKEN"

	// Validation errors
	ErrCodeInvalidRequest   = "INVALID_REQUEST"
	ErrCodeInvalidRecipient = "INVALID_RECIPIENT"
	ErrCodeInvalidAmount    = "INVALID_AMOUNT"
	ErrCodeInvalidAddress   = "INVALID_ADDRESS"

	// Wallet errors
	ErrCodeWalletNotConnected = "WALLET_NOT_CONNECTED"
	ErrCodeUnsupportedToken   = "UNSUPPORTED_TOKEN"

	// Resource errors
	ErrCodeNotFound = "NOT_FOUND"
	ErrCodeConflict = "CONFLICT"

	// Operation errors
	ErrCodeInternalError      = "INTERNAL_ERROR"
	ErrCodeSubmissionFailure  = "SUBMISSION_FAILURE"
	ErrCodeServiceUnavailable = "SERVICE_UNAVAILABLE"
)
