package ratelimiter

import (
	"testing"
	"time"
)

// decide holds all the window arithmetic, so it gets direct coverage
// without a Redis server.
func TestAuthLimiter_Decide(t *testing.T) {
	l := &AuthLimiter{limit: 10, window: 15 * time.Minute}

	cases := []struct {
		name          string
		count         int
		ttl           time.Duration
		wantAllowed   bool
		wantRemaining int
	}{
		{"first failure", 1, 15 * time.Minute, true, 9},
		{"at the limit", 10, 10 * time.Minute, true, 0},
		{"over the limit", 11, 10 * time.Minute, false, 0},
		{"far over", 50, 2 * time.Minute, false, 0},
	}

	for _, c := range cases {
		d := l.decide(c.count, c.ttl)
		if d.Allowed != c.wantAllowed {
			t.Errorf("%s: allowed = %v, want %v", c.name, d.Allowed, c.wantAllowed)
		}
		if d.Remaining != c.wantRemaining {
			t.Errorf("%s: remaining = %d, want %d", c.name, d.Remaining, c.wantRemaining)
		}
		if !c.wantAllowed && d.RetryAfter != c.ttl {
			t.Errorf("%s: retry-after = %s, want %s", c.name, d.RetryAfter, c.ttl)
		}
		if c.wantAllowed && d.RetryAfter != 0 {
			t.Errorf("%s: retry-after = %s, want 0 while allowed", c.name, d.RetryAfter)
		}
	}
}

// A missing TTL (key without expiry, or race with expiration) falls back to
// the full window rather than reporting an instant unblock.
func TestAuthLimiter_DecideTTLFallback(t *testing.T) {
	l := &AuthLimiter{limit: 2, window: 15 * time.Minute}

	d := l.decide(3, -1)
	if d.Allowed {
		t.Fatal("expected blocked")
	}
	if d.RetryAfter != 15*time.Minute {
		t.Fatalf("retry-after = %s, want the full window", d.RetryAfter)
	}
}

func TestAuthLimiter_Key(t *testing.T) {
	l := &AuthLimiter{limit: 10, window: time.Minute}
	got := l.key("203.0.113.7", "dev-abc")
	want := "authfail:203.0.113.7:dev-abc"
	if got != want {
		t.Fatalf("key = %q, want %q", got, want)
	}
}
