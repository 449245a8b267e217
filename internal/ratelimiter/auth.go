package ratelimiter

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Decision is the outcome of a rate-limit check.
type Decision struct {
	Allowed    bool          `json:"allowed"`
	Remaining  int           `json:"remaining"`
	RetryAfter time.Duration `json:"-"`
}

// AuthLimiter counts failed authentication attempts per (network address,
// device fingerprint) pair in a fixed Redis window. Keying on the device
// fingerprint as well as the address avoids collectively blocking every
// exhibitor behind one venue NAT.
//
// Once the threshold is hit, further attempts are rejected until the window
// key expires — the window doubles as the block duration.
type AuthLimiter struct {
	client *redis.Client
	limit  int
	window time.Duration
}

func NewAuthLimiter(client *redis.Client, limit int, window time.Duration) *AuthLimiter {
	return &AuthLimiter{client: client, limit: limit, window: window}
}

func (l *AuthLimiter) key(address, device string) string {
	return fmt.Sprintf("authfail:%s:%s", address, device)
}

// RegisterFailure records one failed attempt and reports whether the pair is
// now blocked. ExpireNX starts the window on the first failure and leaves an
// in-flight window untouched.
func (l *AuthLimiter) RegisterFailure(ctx context.Context, address, device string) (*Decision, error) {
	key := l.key(address, device)

	pipe := l.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.ExpireNX(ctx, key, l.window)
	ttl := pipe.TTL(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("register auth failure: %w", err)
	}

	d := l.decide(int(incr.Val()), ttl.Val())
	return &d, nil
}

// Status reports the current block state without consuming an attempt.
func (l *AuthLimiter) Status(ctx context.Context, address, device string) (*Decision, error) {
	key := l.key(address, device)

	pipe := l.client.Pipeline()
	get := pipe.Get(ctx, key)
	ttl := pipe.TTL(ctx, key)
	_, _ = pipe.Exec(ctx) // redis.Nil on a missing key is expected

	count := 0
	if v, err := get.Int(); err == nil {
		count = v
	}
	d := l.decide(count, ttl.Val())
	return &d, nil
}

// Reset clears the counter for a pair (operator action after, say, a
// legitimate exhibitor locked themselves out).
func (l *AuthLimiter) Reset(ctx context.Context, address, device string) error {
	return l.client.Del(ctx, l.key(address, device)).Err()
}

// decide turns a raw count and key TTL into a Decision. Split out so the
// window arithmetic is testable without a Redis server.
func (l *AuthLimiter) decide(count int, ttl time.Duration) Decision {
	if ttl <= 0 {
		ttl = l.window
	}
	remaining := l.limit - count
	if remaining < 0 {
		remaining = 0
	}
	d := Decision{
		Allowed:   count <= l.limit,
		Remaining: remaining,
	}
	if !d.Allowed {
		d.RetryAfter = ttl
	}
	return d
}
