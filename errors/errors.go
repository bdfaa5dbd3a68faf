// Package errors provides an API for errors across the application.
//
// Provider adapters classify upstream errors into this taxonomy at the
// boundary; callers decide behavior by type and never re-interpret an
// already-classified error.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// RequestError carries an HTTP status code to the handler layer.
type RequestError struct {
	StatusCode int
	Err        error
}

func (e *RequestError) Error() string {
	return e.Err.Error()
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

// ValidationError means the supplied credentials or input were rejected.
// User-correctable, never retried automatically. Code distinguishes at
// minimum bad identifier, bad secret, expired and generic provider failures.
type ValidationError struct {
	Code    string
	Message string
}

// Validation error codes.
const (
	CodeMissingField       = "missing_field"
	CodeInvalidAccessKeyID = "invalid_access_key_id"
	CodeInvalidSecretKey   = "invalid_secret_access_key"
	CodeExpiredCredentials = "expired_credentials"
	CodeInvalidRoleArn     = "invalid_role_arn"
	CodeProviderError      = "provider_error"
	CodeUnsupported        = "unsupported"
)

func (e *ValidationError) Error() string {
	return e.Message
}

func NewValidationError(code, format string, a ...interface{}) *ValidationError {
	return &ValidationError{Code: code, Message: fmt.Sprintf(format, a...)}
}

// IntegrityError means stored ciphertext failed authentication on decrypt,
// either tampered with or produced under a different key. Fatal for the
// affected account until the operator reconnects it.
type IntegrityError struct {
	Err error
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("credential integrity check failed: %s", e.Err)
}

func (e *IntegrityError) Unwrap() error {
	return e.Err
}

// NotFoundError means the referenced account id does not exist.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("account not found: %s", e.ID)
}

// ProviderTransientError means the provider call failed for reasons outside
// the credentials themselves (network, timeout, provider 5xx). Safe to retry
// on the next scheduled sync.
type ProviderTransientError struct {
	Err error
}

func (e *ProviderTransientError) Error() string {
	return fmt.Sprintf("provider temporarily unavailable: %s", e.Err)
}

func (e *ProviderTransientError) Unwrap() error {
	return e.Err
}

// StorageError means persisting the account collection failed. The in-flight
// mutation is aborted, nothing is partially applied.
type StorageError struct {
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage failure: %s", e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// StatusCode maps a classified error to the HTTP status handlers respond
// with. Unclassified errors map to 500 without leaking details.
func StatusCode(err error) int {
	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		return reqErr.StatusCode
	}

	var notFound *NotFoundError
	if errors.As(err, &notFound) {
		return http.StatusNotFound
	}

	var validation *ValidationError
	if errors.As(err, &validation) {
		return http.StatusBadRequest
	}

	var transient *ProviderTransientError
	if errors.As(err, &transient) {
		return http.StatusBadGateway
	}

	var integrity *IntegrityError
	if errors.As(err, &integrity) {
		return http.StatusConflict
	}

	return http.StatusInternalServerError
}
