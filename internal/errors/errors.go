// Package errors provides custom error types for the cap-table API.
// All service-layer errors should use AppError to ensure consistent,
// secure error responses that never leak internal details to clients.
package errors

import "net/http"

// AppError represents a structured application error with an error code,
// human-readable message, HTTP status code, and optional internal error.
type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"-"`
	Internal   error  `json:"-"`
}

// Error implements the error interface.
func (e *AppError) Error() string { return e.Message }

// Unwrap returns the internal error for use with errors.Is/As.
func (e *AppError) Unwrap() error { return e.Internal }

// Wrap creates a new AppError with the same code/message/status but wraps an internal error.
func Wrap(sentinel *AppError, internal error) *AppError {
	return &AppError{
		Code:       sentinel.Code,
		Message:    sentinel.Message,
		StatusCode: sentinel.StatusCode,
		Internal:   internal,
	}
}

// WithMessage creates a new AppError with a custom message.
func WithMessage(sentinel *AppError, message string) *AppError {
	return &AppError{
		Code:       sentinel.Code,
		Message:    message,
		StatusCode: sentinel.StatusCode,
		Internal:   sentinel.Internal,
	}
}

// Authentication & authorization errors.
var (
	ErrUnauthorized       = &AppError{Code: "UNAUTHORIZED", Message: "Authentication required", StatusCode: http.StatusUnauthorized}
	ErrInvalidCredentials = &AppError{Code: "INVALID_CREDENTIALS", Message: "Invalid email or password", StatusCode: http.StatusUnauthorized}
	ErrForbidden          = &AppError{Code: "FORBIDDEN", Message: "Access denied", StatusCode: http.StatusForbidden}
	ErrAccountLocked      = &AppError{Code: "ACCOUNT_LOCKED", Message: "Account is temporarily locked", StatusCode: http.StatusLocked}
)

// General errors.
var (
	ErrInvalidInput   = &AppError{Code: "INVALID_INPUT", Message: "Invalid input", StatusCode: http.StatusBadRequest}
	ErrNotFound       = &AppError{Code: "NOT_FOUND", Message: "Resource not found", StatusCode: http.StatusNotFound}
	ErrInternalServer = &AppError{Code: "INTERNAL_ERROR", Message: "An internal error occurred", StatusCode: http.StatusInternalServerError}
)

// User errors.
var (
	ErrUserNotFound   = &AppError{Code: "USER_NOT_FOUND", Message: "User not found", StatusCode: http.StatusNotFound}
	ErrDuplicateEmail = &AppError{Code: "DUPLICATE_EMAIL", Message: "A user with this email already exists", StatusCode: http.StatusConflict}
)

// Company errors.
var (
	ErrCompanyNotFound  = &AppError{Code: "COMPANY_NOT_FOUND", Message: "Company not found", StatusCode: http.StatusNotFound}
	ErrCompanyNotActive = &AppError{Code: "COMPANY_NOT_ACTIVE", Message: "Company is not active", StatusCode: http.StatusUnprocessableEntity}
)

// Cap-table entity errors.
var (
	ErrShareholderNotFound  = &AppError{Code: "SHAREHOLDER_NOT_FOUND", Message: "Shareholder not found", StatusCode: http.StatusNotFound}
	ErrShareClassNotFound   = &AppError{Code: "SHARE_CLASS_NOT_FOUND", Message: "Share class not found", StatusCode: http.StatusNotFound}
	ErrFundingRoundNotFound = &AppError{Code: "FUNDING_ROUND_NOT_FOUND", Message: "Funding round not found", StatusCode: http.StatusNotFound}
)

// Convertible instrument validation errors.
var (
	ErrInstrumentNotFound  = &AppError{Code: "INSTRUMENT_NOT_FOUND", Message: "Convertible instrument not found", StatusCode: http.StatusNotFound}
	ErrInvalidPrincipal    = &AppError{Code: "INVALID_PRINCIPAL", Message: "Principal must be greater than zero", StatusCode: http.StatusBadRequest}
	ErrInvalidInterestRate = &AppError{Code: "INVALID_INTEREST_RATE", Message: "Interest rate must be between 0 and 0.30 unless explicitly overridden", StatusCode: http.StatusBadRequest}
	ErrInvalidMaturityDate = &AppError{Code: "INVALID_MATURITY_DATE", Message: "Maturity date must be after the issue date", StatusCode: http.StatusBadRequest}
	ErrInvalidDiscountRate = &AppError{Code: "INVALID_DISCOUNT_RATE", Message: "Discount rate must be at least 0 and below 1", StatusCode: http.StatusBadRequest}
	ErrInvalidValuationCap = &AppError{Code: "INVALID_VALUATION_CAP", Message: "Valuation cap must be greater than zero", StatusCode: http.StatusBadRequest}
	ErrInvalidValuation    = &AppError{Code: "INVALID_VALUATION", Message: "Valuation must be greater than zero", StatusCode: http.StatusUnprocessableEntity}
)

// Lifecycle and conversion errors.
var (
	ErrInvalidStatusTransition = &AppError{Code: "INVALID_STATUS_TRANSITION", Message: "Invalid instrument status transition", StatusCode: http.StatusUnprocessableEntity}
	ErrInstrumentNotEditable   = &AppError{Code: "INSTRUMENT_NOT_EDITABLE", Message: "Instrument terms can only be updated while outstanding or matured", StatusCode: http.StatusUnprocessableEntity}
	ErrAlreadyConverted        = &AppError{Code: "ALREADY_CONVERTED", Message: "Instrument has already been converted or is in a terminal state", StatusCode: http.StatusConflict}
	ErrThresholdNotMet         = &AppError{Code: "THRESHOLD_NOT_MET", Message: "Funding round does not meet the qualified financing threshold", StatusCode: http.StatusUnprocessableEntity}
	ErrZeroPreMoneyShares      = &AppError{Code: "ZERO_PREMONEY_SHARES", Message: "Company has no issued shares to price the conversion against", StatusCode: http.StatusUnprocessableEntity}
	ErrExceedsAuthorized       = &AppError{Code: "EXCEEDS_AUTHORIZED_SHARES", Message: "Conversion would exceed the share class's authorized shares", StatusCode: http.StatusUnprocessableEntity}
)
