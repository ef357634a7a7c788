package common

import (
	"errors"
	"net/http"
)

// Kind classifies an AppError for logging and metrics.
type Kind string

const (
	KindValidation Kind = "validation"
	KindUpstream   Kind = "upstream"
	KindInternal   Kind = "internal"
)

// AppError represents an error with an attached kind and HTTP status.
type AppError struct {
	Kind       Kind
	Message    string
	HTTPStatus int
	Err        error
	Details    any
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		if e.Message != "" {
			return e.Message + ": " + e.Err.Error()
		}
		return e.Err.Error()
	}
	return e.Message
}

// Unwrap allows errors.Is/As to inspect the underlying error.
func (e *AppError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// NewAppError constructs an AppError.
func NewAppError(kind Kind, message string, status int, err error) *AppError {
	return &AppError{Kind: kind, Message: message, HTTPStatus: status, Err: err}
}

// ValidationError reports malformed or missing client input.
func ValidationError(message string) *AppError {
	return NewAppError(KindValidation, message, http.StatusBadRequest, nil)
}

// AsAppError extracts the first AppError in err's chain.
func AsAppError(err error) (*AppError, bool) {
	var target *AppError
	if errors.As(err, &target) {
		return target, true
	}
	return nil, false
}

// IsValidation reports whether err carries a validation AppError.
func IsValidation(err error) bool {
	appErr, ok := AsAppError(err)
	return ok && appErr.Kind == KindValidation
}
