package google

import (
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/api/googleapi"

	"github.com/custodia-labs/coworker/internal/core/domain"
)

// IsUnauthorized returns true if the error indicates invalid credentials.
func IsUnauthorized(err error) bool {
	return statusOf(err) == http.StatusUnauthorized
}

// IsForbidden returns true if the error indicates insufficient permissions.
func IsForbidden(err error) bool {
	return statusOf(err) == http.StatusForbidden
}

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	code := statusOf(err)
	return code == http.StatusNotFound || code == http.StatusGone
}

// IsRateLimited returns true if the error indicates rate limiting.
func IsRateLimited(err error) bool {
	return statusOf(err) == http.StatusTooManyRequests
}

// MapError translates a Google API error into a domain error.
func MapError(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case IsNotFound(err):
		return fmt.Errorf("google: %w: %w", domain.ErrNotFound, err)
	case IsRateLimited(err):
		return fmt.Errorf("google: %w: %w", domain.ErrRateLimited, err)
	case IsUnauthorized(err), IsForbidden(err):
		return fmt.Errorf("google: %w: access denied: %w", domain.ErrUpstream, err)
	default:
		return fmt.Errorf("google: %w: %w", domain.ErrUpstream, err)
	}
}

func statusOf(err error) int {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return gerr.Code
	}
	return 0
}
