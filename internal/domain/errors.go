package domain

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrSessionExpired     = errors.New("session expired")
	ErrRefreshRejected    = errors.New("refresh rejected by authority")
	ErrNotAuthenticated   = errors.New("not authenticated")
	ErrStorageUnavailable = errors.New("storage unavailable")
	ErrKeyNotFound        = errors.New("key not found")
)

// StatusError is a non-2xx answer from the authority or a protected API.
type StatusError struct {
	Endpoint   string
	StatusCode int
	Code       string
	Message    string
	cause      error
}

func NewStatusError(endpoint string, statusCode int, code, message string) *StatusError {
	return &StatusError{Endpoint: endpoint, StatusCode: statusCode, Code: code, Message: message}
}

// WithCause attaches a sentinel so errors.Is matches both the status and the category.
func (e *StatusError) WithCause(cause error) *StatusError {
	e.cause = cause
	return e
}

func (e *StatusError) Error() string {
	detail := e.Message
	if e.Code != "" && detail != "" {
		detail = e.Code + ": " + detail
	} else if e.Code != "" {
		detail = e.Code
	}
	if detail == "" {
		return fmt.Sprintf("%s: status %d", e.Endpoint, e.StatusCode)
	}
	return fmt.Sprintf("%s: status %d: %s", e.Endpoint, e.StatusCode, detail)
}

func (e *StatusError) Unwrap() error {
	return e.cause
}

func IsAuthorizationFailure(err error) bool {
	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		return false
	}
	return statusErr.StatusCode == http.StatusUnauthorized || statusErr.StatusCode == http.StatusForbidden
}

func IsAuthorizationStatus(code int) bool {
	return code == http.StatusUnauthorized || code == http.StatusForbidden
}
