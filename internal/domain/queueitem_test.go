package domain_test

import (
	"testing"
	"time"

	"github.com/showring/notify/internal/domain"
)

func TestBackoffDelay_Schedule(t *testing.T) {
	cases := []struct {
		retryCount int
		want       time.Duration
	}{
		{0, 1 * time.Minute},
		{1, 5 * time.Minute},
		{2, 15 * time.Minute},
		{3, 1 * time.Hour},
		{4, 6 * time.Hour},
		{5, 6 * time.Hour},  // past the table: reuse the last entry
		{99, 6 * time.Hour},
		{-1, 1 * time.Minute}, // defensive clamp
	}

	for _, c := range cases {
		if got := domain.BackoffDelay(c.retryCount); got != c.want {
			t.Errorf("BackoffDelay(%d) = %s, want %s", c.retryCount, got, c.want)
		}
	}
}

func TestQueueItem_Exhausted(t *testing.T) {
	item := &domain.QueueItem{RetryCount: 4, MaxRetries: domain.MaxDeliveryAttempts}
	if item.Exhausted() {
		t.Fatal("4 of 5 attempts should not be exhausted")
	}
	item.RetryCount = 5
	if !item.Exhausted() {
		t.Fatal("5 of 5 attempts should be exhausted")
	}
}

func TestGatewaySecrets_Usable(t *testing.T) {
	cases := []struct {
		name    string
		secrets domain.GatewaySecrets
		want    bool
	}{
		{"both real", domain.GatewaySecrets{SharedSecret: "s3cret", GatewayKey: "key"}, true},
		{"placeholder secret", domain.GatewaySecrets{SharedSecret: domain.SecretPlaceholder, GatewayKey: "key"}, false},
		{"placeholder key", domain.GatewaySecrets{SharedSecret: "s3cret", GatewayKey: domain.SecretPlaceholder}, false},
		{"empty secret", domain.GatewaySecrets{SharedSecret: "", GatewayKey: "key"}, false},
		{"empty key", domain.GatewaySecrets{SharedSecret: "s3cret", GatewayKey: ""}, false},
	}
	for _, c := range cases {
		if got := c.secrets.Usable(); got != c.want {
			t.Errorf("%s: Usable() = %v, want %v", c.name, got, c.want)
		}
	}
}
