package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents a unique error code
type ErrorCode int

// AppError represents an application error
type AppError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Err     error     `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Common error codes
const (
	ErrNotFound ErrorCode = iota + 1000
	ErrBadRequest
	ErrUnauthorized
	ErrForbidden
	ErrInternal
)

// Rate resolution and cache error codes
const (
	ErrNoActiveSchedule ErrorCode = iota + 2000
	ErrRateNotFound
	ErrMissingReferenceData
	ErrRefreshFailure
	ErrStoreUnavailable
)

// Error constructors
func NewNotFound(resource string, err error) *AppError {
	return &AppError{
		Code:    ErrNotFound,
		Message: fmt.Sprintf("%s not found", resource),
		Err:     err,
	}
}

func NewBadRequest(message string, err error) *AppError {
	return &AppError{
		Code:    ErrBadRequest,
		Message: message,
		Err:     err,
	}
}

func NewInternal(err error) *AppError {
	return &AppError{
		Code:    ErrInternal,
		Message: "internal server error",
		Err:     err,
	}
}

func Unauthorized(err error) *AppError {
	return &AppError{
		Code:    ErrUnauthorized,
		Message: "unauthorized",
		Err:     err,
	}
}

// NoActiveSchedule reports that no fee schedule covers the jurisdiction
// and date requested.
func NoActiveSchedule(state, scheduleType string) *AppError {
	return &AppError{
		Code:    ErrNoActiveSchedule,
		Message: fmt.Sprintf("no active %s fee schedule for %s", scheduleType, state),
	}
}

// RateNotFound reports that a schedule exists but carries no matching rate row.
func RateNotFound(procedureCode string) *AppError {
	return &AppError{
		Code:    ErrRateNotFound,
		Message: fmt.Sprintf("no rate for procedure %s", procedureCode),
	}
}

// MissingReferenceData reports an absent RVU, GPCI or conversion factor input
// for a Medicare derivation.
func MissingReferenceData(what string, year int) *AppError {
	return &AppError{
		Code:    ErrMissingReferenceData,
		Message: fmt.Sprintf("missing %s reference data for %d", what, year),
	}
}

// RefreshFailure wraps an object-store fetch or decode failure. It is always
// recovered locally; callers see stale or empty data instead.
func RefreshFailure(err error) *AppError {
	return &AppError{
		Code:    ErrRefreshFailure,
		Message: "cache refresh failed",
		Err:     err,
	}
}

// StoreUnavailable reports that the backing data store is unreachable. The
// message is generic on purpose; the wrapped error stays server-side.
func StoreUnavailable(err error) *AppError {
	return &AppError{
		Code:    ErrStoreUnavailable,
		Message: "rate store unavailable",
		Err:     err,
	}
}

// CodeOf extracts the ErrorCode from err, or ErrInternal when err is not
// an AppError.
func CodeOf(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ErrInternal
}

// IsNotFoundClass reports whether err is one of the domain lookup misses that
// must surface as an empty result or structured not-found, never a 5xx.
func IsNotFoundClass(err error) bool {
	switch CodeOf(err) {
	case ErrNotFound, ErrNoActiveSchedule, ErrRateNotFound, ErrMissingReferenceData:
		return true
	}
	return false
}
