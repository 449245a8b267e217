package domain

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors used throughout the application.
// Handlers translate these to HTTP status codes via a single mapError function.
var (
	ErrNotFound            = errors.New("not found")
	ErrInvalidChange       = errors.New("invalid state change: missing kind, tenant, or kind-specific fields")
	ErrInvalidSubscription = errors.New("subscription requires tenant, recipient, and endpoint")
	ErrInvalidThreshold    = fmt.Errorf("up_soon_threshold must be between %d and %d", UpSoonThresholdMin, UpSoonThresholdMax)
	ErrDuplicateEndpoint   = errors.New("a subscription for this endpoint already exists")
	ErrSecretUnset         = errors.New("gateway secret is missing or still the placeholder")
	ErrAlreadyAcked        = errors.New("dead-letter item is already acknowledged")
	ErrInvalidOperator     = errors.New("operator id must not be empty")
)

// RateLimitError is the synchronous rejection returned when a producer
// exceeds its window. It is not a delivery failure: nothing is queued.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded, try again in %s", e.RetryAfter.Round(time.Second))
}
