package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound signals a missing resource or an unknown operation id.
	ErrNotFound = errors.New("not found")
	// ErrConflict signals a duplicate resource or an operation already in progress.
	ErrConflict = errors.New("conflict")
	// ErrUnauthorized signals a missing or invalid API key.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrForbidden signals insufficient permissions for the request.
	ErrForbidden = errors.New("forbidden")
	// ErrInvalidInput signals a request the server rejected as malformed.
	ErrInvalidInput = errors.New("invalid input")
	// ErrRateLimited signals a rate limit hit.
	ErrRateLimited = errors.New("rate limited")
	// ErrUnavailable signals a transport failure or a server-side outage.
	ErrUnavailable = errors.New("server unavailable")
	// ErrWaitTimeout signals that an operation wait deadline elapsed before a
	// terminal status was observed. Distinct from a server-reported failure.
	ErrWaitTimeout = errors.New("operation wait timed out")
	// ErrVectorizerNotConfigured signals a text operation without an embedder.
	ErrVectorizerNotConfigured = errors.New("vectorizer not configured")
)

// StatusError wraps a sentinel with the HTTP status and server message.
// Use errors.Is against the sentinels; use errors.As to read Code/Message.
type StatusError struct {
	Code    int
	Message string
	Kind    error
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server returned %d: %s", e.Code, e.Kind.Error())
	}
	return fmt.Sprintf("server returned %d: %s", e.Code, e.Message)
}

func (e *StatusError) Unwrap() error { return e.Kind }

// NewStatusError creates a StatusError classified by HTTP status code.
func NewStatusError(code int, message string) error {
	return &StatusError{Code: code, Message: message, Kind: kindForStatus(code)}
}

func kindForStatus(code int) error {
	switch {
	case code == 401:
		return ErrUnauthorized
	case code == 403:
		return ErrForbidden
	case code == 404:
		return ErrNotFound
	case code == 409:
		return ErrConflict
	case code == 429:
		return ErrRateLimited
	case code >= 500:
		return ErrUnavailable
	default:
		return ErrInvalidInput
	}
}
