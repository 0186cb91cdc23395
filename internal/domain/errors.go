package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrQuotaExceeded signals the user's daily request limit is reached.
	ErrQuotaExceeded = errors.New("daily quota exceeded")
	// ErrProviderUnavailable signals a transient provider failure (timeout, transport, non-2xx).
	ErrProviderUnavailable = errors.New("provider unavailable")
	// ErrProvidersExhausted signals the whole fallback chain failed.
	ErrProvidersExhausted = errors.New("all providers exhausted")
	// ErrSearchFailed signals both retrieval branches failed.
	ErrSearchFailed = errors.New("search failed")
	// ErrPermissionDenied signals the user may not query the requested scope.
	ErrPermissionDenied = errors.New("permission denied")
	// ErrUserNotFound signals an unknown user id.
	ErrUserNotFound = errors.New("user not found")
	// ErrFileNotFound signals a missing file.
	ErrFileNotFound = errors.New("file not found")
	// ErrInvalidRequest signals a malformed request.
	ErrInvalidRequest = errors.New("invalid request")
)

// QuotaError wraps ErrQuotaExceeded with the limit, the current count and the
// next UTC reset time, so the caller can report all three.
type QuotaError struct {
	Limit    int64
	Current  int64
	ResetsAt time.Time
}

func (e *QuotaError) Error() string {
	return fmt.Sprintf("%s: %d/%d, resets at %s",
		ErrQuotaExceeded.Error(), e.Current, e.Limit, e.ResetsAt.Format(time.RFC3339))
}

func (e *QuotaError) Unwrap() error { return ErrQuotaExceeded }

// NewQuotaError creates a quota denial for the UTC day containing now.
func NewQuotaError(limit, current int64, now time.Time) error {
	day := now.UTC().Truncate(24 * time.Hour)
	return &QuotaError{Limit: limit, Current: current, ResetsAt: day.Add(24 * time.Hour)}
}
