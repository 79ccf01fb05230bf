package utils

import (
	"errors"
	"fmt"
)

type ErrorKind int

const (
	KindValidation ErrorKind = iota + 1
	KindNotFound
	KindConflict
	KindInternal
)

func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindInternal:
		return "internal"
	}
	return "unknown"
}

// Machine readable error codes returned to clients.
const (
	CodeValidation        = "VALIDATION_ERROR"
	CodeTableNotFound     = "TABLE_NOT_FOUND"
	CodeSessionNotFound   = "SESSION_NOT_FOUND"
	CodeOrderNotFound     = "ORDER_NOT_FOUND"
	CodeDishNotFound      = "DISH_NOT_FOUND"
	CodeUserNotFound      = "USER_NOT_FOUND"
	CodeTableNotAvailable = "TABLE_NOT_AVAILABLE"
	CodeTableHasSession   = "TABLE_HAS_ACTIVE_SESSION"
	CodeTableNumberTaken  = "TABLE_NUMBER_TAKEN"
	CodeSessionInvalid    = "SESSION_INVALID"
	CodeDishUnavailable   = "DISH_UNAVAILABLE"
	CodeInvalidTransition = "INVALID_TRANSITION"
	CodeInternal          = "INTERNAL_SERVER_ERROR"

	CodeTokenMissing            = "TOKEN_MISSING"
	CodeTokenExpired            = "TOKEN_EXPIRED"
	CodeTokenInvalid            = "TOKEN_INVALID"
	CodeUserInvalid             = "USER_INVALID"
	CodeInsufficientPermissions = "INSUFFICIENT_PERMISSIONS"
	CodeInvalidCredentials      = "INVALID_CREDENTIALS"
	CodeRateLimited             = "RATE_LIMIT_EXCEEDED"
	CodeIdempotencyInProgress   = "IDEMPOTENCY_IN_PROGRESS"
	CodeIdempotencyMismatch     = "IDEMPOTENCY_KEY_REUSED"
)

// AppError carries a taxonomy kind and a stable code next to the message.
type AppError struct {
	Kind    ErrorKind
	Code    string
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil && e.Kind == KindInternal {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NewValidationError(message string) *AppError {
	return &AppError{Kind: KindValidation, Code: CodeValidation, Message: message}
}

func NewNotFoundError(code, message string) *AppError {
	return &AppError{Kind: KindNotFound, Code: code, Message: message}
}

func NewConflictError(code, message string) *AppError {
	return &AppError{Kind: KindConflict, Code: code, Message: message}
}

func NewInternalError(message string, err error) *AppError {
	return &AppError{Kind: KindInternal, Code: CodeInternal, Message: message, Err: err}
}

func ErrInvalidTransition(from, to string) *AppError {
	return NewConflictError(CodeInvalidTransition, fmt.Sprintf("invalid transition: %s -> %s", from, to))
}

func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

func IsKind(err error, kind ErrorKind) bool {
	appErr, ok := AsAppError(err)
	return ok && appErr.Kind == kind
}

func HasCode(err error, code string) bool {
	appErr, ok := AsAppError(err)
	return ok && appErr.Code == code
}
