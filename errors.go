package strata

import "github.com/kailas-cloud/strata-go/internal/domain"

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrNotFound                = domain.ErrNotFound
	ErrConflict                = domain.ErrConflict
	ErrUnauthorized            = domain.ErrUnauthorized
	ErrForbidden               = domain.ErrForbidden
	ErrInvalidInput            = domain.ErrInvalidInput
	ErrRateLimited             = domain.ErrRateLimited
	ErrUnavailable             = domain.ErrUnavailable
	ErrWaitTimeout             = domain.ErrWaitTimeout
	ErrVectorizerNotConfigured = domain.ErrVectorizerNotConfigured
)

// ServerError carries the HTTP status and message of a server rejection.
// Use errors.As() to inspect it; errors.Is() against the sentinels above
// still works on the same error value.
type ServerError = domain.StatusError
