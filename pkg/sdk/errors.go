package aigate

import "github.com/kailas-cloud/aigate/internal/domain"

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrQuotaExceeded       = domain.ErrQuotaExceeded
	ErrProvidersExhausted  = domain.ErrProvidersExhausted
	ErrSearchFailed        = domain.ErrSearchFailed
	ErrPermissionDenied    = domain.ErrPermissionDenied
	ErrUserNotFound        = domain.ErrUserNotFound
	ErrFileNotFound        = domain.ErrFileNotFound
	ErrInvalidRequest      = domain.ErrInvalidRequest
	ErrProviderUnavailable = domain.ErrProviderUnavailable
)
