package ai

import (
	"errors"
	"fmt"
)

var (
	// ErrUnavailable covers network failures, provider overload and quota errors.
	ErrUnavailable = errors.New("ai provider unavailable")
	// ErrRateLimited indicates the provider throttled us (HTTP 429 or similar).
	// Retrying the same provider right away is pointless.
	ErrRateLimited = fmt.Errorf("%w: rate limited", ErrUnavailable)
	// ErrNotConfigured is returned by adapters whose credentials are missing.
	ErrNotConfigured = fmt.Errorf("%w: not configured", ErrUnavailable)
	// ErrUnparseable indicates the provider replied but the payload does not match the schema.
	ErrUnparseable = errors.New("unparseable provider response")
	// ErrNoResult means the lookup worked but found nothing usable.
	ErrNoResult = errors.New("no result")
)

// Unavailable wraps a transport error from provider as ErrUnavailable.
func Unavailable(provider string, err error) error {
	return fmt.Errorf("%s: %w: %w", provider, ErrUnavailable, err)
}

// RateLimited wraps a throttling error from provider as ErrRateLimited.
func RateLimited(provider string, err error) error {
	return fmt.Errorf("%s: %w: %w", provider, ErrRateLimited, err)
}
