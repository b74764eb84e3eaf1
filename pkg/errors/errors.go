package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// AppError provides a structured error that can be rendered to API consumers.
type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"-"`
	Internal   error  `json:"-"`
}

func (e *AppError) Error() string {
	if e == nil {
		return "<nil>"
	}

	if e.Internal != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Internal)
	}

	return e.Message
}

// Unwrap exposes the internal error for errors.Is / errors.As compatibility.
func (e *AppError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Internal
}

// WithInternal returns a copy of the AppError with an attached internal error.
func (e *AppError) WithInternal(err error) *AppError {
	if e == nil {
		return nil
	}

	cpy := *e
	cpy.Internal = err
	return &cpy
}

// WithMessage returns a copy of the AppError carrying a more specific message.
func (e *AppError) WithMessage(message string) *AppError {
	if e == nil {
		return nil
	}

	cpy := *e
	cpy.Message = message
	return &cpy
}

// Common errors exposed to the rest of the application.
var (
	ErrUnauthorized = &AppError{
		Code:       "UNAUTHORIZED",
		Message:    "Authentication required",
		StatusCode: http.StatusUnauthorized,
	}

	ErrInvalidCredentials = &AppError{
		Code:       "INVALID_CREDENTIALS",
		Message:    "Invalid username or password",
		StatusCode: http.StatusUnauthorized,
	}

	// ErrForbidden covers every caller-acting-outside-its-rights case. Handlers
	// return it verbatim for non-participants so thread and invite existence is
	// never leaked.
	ErrForbidden = &AppError{
		Code:       "FORBIDDEN",
		Message:    "Permission denied",
		StatusCode: http.StatusForbidden,
	}

	ErrNotFound = &AppError{
		Code:       "NOT_FOUND",
		Message:    "Resource not found",
		StatusCode: http.StatusNotFound,
	}

	ErrBadRequest = &AppError{
		Code:       "BAD_REQUEST",
		Message:    "Invalid request",
		StatusCode: http.StatusBadRequest,
	}

	ErrInternalServer = &AppError{
		Code:       "INTERNAL_SERVER_ERROR",
		Message:    "Internal server error",
		StatusCode: http.StatusInternalServerError,
	}

	ErrRateLimit = &AppError{
		Code:       "RATE_LIMIT_EXCEEDED",
		Message:    "Too many requests, please slow down",
		StatusCode: http.StatusTooManyRequests,
	}
)

// Policy denials. All are expected, user-facing, and carry a message the client
// can render directly.
var (
	ErrQuotaExhausted = &AppError{
		Code:       "quota.exhausted",
		Message:    "No Open Pages available. Open Pages are granted daily (max 3 stored)",
		StatusCode: http.StatusConflict,
	}
	ErrNotEligible = &AppError{
		Code:       "btl.not_eligible",
		Message:    "Between the Lines is not available with this account",
		StatusCode: http.StatusBadRequest,
	}
	ErrInviteCapReached = &AppError{
		Code:       "btl.invite_cap_reached",
		Message:    "Daily invite limit reached. Maximum 3 invites per day",
		StatusCode: http.StatusTooManyRequests,
	}
	ErrInvitePending = &AppError{
		Code:       "btl.invite_pending",
		Message:    "You already have a pending invite to this account",
		StatusCode: http.StatusConflict,
	}
	ErrInviteResolved = &AppError{
		Code:       "btl.invite_resolved",
		Message:    "Invite is no longer pending",
		StatusCode: http.StatusConflict,
	}
	ErrThreadClosed = &AppError{
		Code:       "btl.thread_closed",
		Message:    "Cannot send messages in a closed conversation",
		StatusCode: http.StatusConflict,
	}
)

// Validation failures caught before any mutation.
var (
	ErrContentEmpty = &AppError{
		Code:       "btl.message_empty",
		Message:    "Message content is required",
		StatusCode: http.StatusBadRequest,
	}
	ErrContentTooLong = &AppError{
		Code:       "btl.message_too_long",
		Message:    "Message content exceeds the maximum length",
		StatusCode: http.StatusBadRequest,
	}
)

// New builds a new application error with the provided metadata.
func New(code, message string, statusCode int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
	}
}

// Wrap turns any error into an AppError while keeping the original error for logging.
func Wrap(err error, message string) *AppError {
	return &AppError{
		Code:       "INTERNAL_ERROR",
		Message:    message,
		StatusCode: http.StatusInternalServerError,
		Internal:   err,
	}
}

// FromError converts a generic error into an AppError, defaulting to ErrInternalServer.
func FromError(err error) *AppError {
	if err == nil {
		return nil
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	return ErrInternalServer.WithInternal(err)
}

// NewBadRequest wraps validation errors with a helpful message.
func NewBadRequest(message string) *AppError {
	return &AppError{
		Code:       ErrBadRequest.Code,
		Message:    message,
		StatusCode: ErrBadRequest.StatusCode,
	}
}
