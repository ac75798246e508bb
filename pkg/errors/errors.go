package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
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

// Is matches any AppError carrying the same code, so errors.Is(err, errors.ErrSlotTakenSentinel) works.
func (e *AppError) Is(target error) bool {
	var t *AppError
	if !stderrors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// HTTPStatus maps the code to the response status.
func (e *AppError) HTTPStatus() int {
	switch e.Code {
	case ErrNotFound:
		return http.StatusNotFound
	case ErrBadRequest:
		return http.StatusBadRequest
	case ErrUnauthorized:
		return http.StatusUnauthorized
	case ErrForbidden:
		return http.StatusForbidden
	case ErrConflict, ErrSlotTaken:
		return http.StatusConflict
	case ErrUnavailable:
		return http.StatusUnprocessableEntity
	case ErrTooManyRequests:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// Slug is the stable machine-readable name of the code.
func (e *AppError) Slug() string {
	switch e.Code {
	case ErrNotFound:
		return "not_found"
	case ErrBadRequest:
		return "validation_error"
	case ErrUnauthorized:
		return "unauthorized"
	case ErrForbidden:
		return "forbidden"
	case ErrConflict:
		return "conflict"
	case ErrSlotTaken:
		return "slot_taken"
	case ErrUnavailable:
		return "unavailable"
	case ErrTooManyRequests:
		return "rate_limited"
	default:
		return "internal_error"
	}
}

// Common error codes
const (
	ErrNotFound ErrorCode = iota + 1000
	ErrBadRequest
	ErrUnauthorized
	ErrForbidden
	ErrInternal
	ErrConflict
	ErrUnavailable
	ErrSlotTaken
	ErrTooManyRequests
)

// Sentinels for errors.Is comparisons.
var (
	ErrNotFoundSentinel    = &AppError{Code: ErrNotFound}
	ErrSlotTakenSentinel   = &AppError{Code: ErrSlotTaken}
	ErrUnavailableSentinel = &AppError{Code: ErrUnavailable}
	ErrConflictSentinel    = &AppError{Code: ErrConflict}
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

// Common errors
func NotFound(resource string, err error) *AppError {
	return NewNotFound(resource, err)
}

// Validation reports malformed input such as a bad date or time string.
func Validation(message string, err error) *AppError {
	return NewBadRequest(message, err)
}

func Internal(err error) *AppError {
	return NewInternal(err)
}

func Unauthorized(err error) *AppError {
	return &AppError{
		Code:    ErrUnauthorized,
		Message: "unauthorized",
		Err:     err,
	}
}

func Forbidden(message string) *AppError {
	return &AppError{
		Code:    ErrForbidden,
		Message: message,
	}
}

func Conflict(message string, err error) *AppError {
	return &AppError{
		Code:    ErrConflict,
		Message: message,
		Err:     err,
	}
}

// Unavailable means no enabled shift covers the request.
func Unavailable(message string) *AppError {
	return &AppError{
		Code:    ErrUnavailable,
		Message: message,
	}
}

// SlotTaken means the slot was booked by someone else; the caller should re-fetch slots.
func SlotTaken(err error) *AppError {
	return &AppError{
		Code:    ErrSlotTaken,
		Message: "slot already taken, please choose again",
		Err:     err,
	}
}

func TooManyRequests() *AppError {
	return &AppError{
		Code:    ErrTooManyRequests,
		Message: "rate limit exceeded",
	}
}

// CodeOf returns the code of the first AppError in err's chain, or ErrInternal.
func CodeOf(err error) ErrorCode {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code
	}
	return ErrInternal
}

func IsNotFound(err error) bool  { return err != nil && CodeOf(err) == ErrNotFound }
func IsSlotTaken(err error) bool { return err != nil && CodeOf(err) == ErrSlotTaken }
func IsConflict(err error) bool  { return err != nil && CodeOf(err) == ErrConflict }
