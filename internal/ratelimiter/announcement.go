package ratelimiter

import (
	"context"
	"time"

	"github.com/showring/notify/internal/repository"
)

// AnnouncementLimiter throttles announcement creation per tenant with fixed,
// non-overlapping windows. Counting is delegated to the rate-counter store,
// whose atomic upsert-and-increment makes concurrent producers safe.
//
// Over-limit attempts still increment the bucket; the bucket ages out of the
// query window naturally, so the stray counts are harmless.
type AnnouncementLimiter struct {
	counters repository.RateCounterRepository
	limit    int
	window   time.Duration
}

func NewAnnouncementLimiter(counters repository.RateCounterRepository, limit int, window time.Duration) *AnnouncementLimiter {
	return &AnnouncementLimiter{counters: counters, limit: limit, window: window}
}

// Allow consumes one slot in the tenant's current window. When the limit is
// exceeded it returns allowed=false and the time remaining until the window
// rolls over, for the caller's retry-after message.
func (l *AnnouncementLimiter) Allow(ctx context.Context, tenantID string) (allowed bool, retryAfter time.Duration, err error) {
	now := time.Now().UTC()
	bucket := now.Truncate(l.window)

	count, err := l.counters.Increment(ctx, tenantID, bucket)
	if err != nil {
		return false, 0, err
	}
	if count > l.limit {
		return false, bucket.Add(l.window).Sub(now), nil
	}
	return true, 0, nil
}
