package repository

import (
	"context"
	"time"
)

// RateCounterRepository is the fixed-window counter store for announcement
// throttling. Increment must be atomic under concurrent producers: the pg
// implementation uses a row-level upsert, returning the post-increment count
// for the (tenant, bucket) pair.
type RateCounterRepository interface {
	Increment(ctx context.Context, tenantID string, bucket time.Time) (int, error)
	Prune(ctx context.Context, cutoff time.Time) (int64, error)
}
