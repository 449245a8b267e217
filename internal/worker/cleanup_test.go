package worker_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/showring/notify/internal/domain"
	"github.com/showring/notify/internal/repository"
	"github.com/showring/notify/internal/worker"
)

func TestCleaner_Run(t *testing.T) {
	dlq := repository.NewMockDeadLetterRepository()
	q := repository.NewMockQueueRepository(dlq)
	subs := repository.NewMockSubscriptionRepository()
	counters := repository.NewMockRateCounterRepository()
	ctx := context.Background()
	now := time.Now().UTC()

	// Succeeded two days ago: past the 24h retention.
	old := &domain.QueueItem{
		ID:          uuid.New().String(),
		TenantID:    "show-1",
		Category:    domain.CategoryAnnouncement,
		Payload:     []byte(`{}`),
		MaxRetries:  domain.MaxDeliveryAttempts,
		NextRetryAt: now,
		Status:      domain.StatusSucceeded,
		CreatedAt:   now.Add(-48 * time.Hour),
		UpdatedAt:   now.Add(-48 * time.Hour),
	}
	_ = q.Create(ctx, old)

	// Still pending: retention must not touch it regardless of age.
	pending := &domain.QueueItem{
		ID:          uuid.New().String(),
		TenantID:    "show-1",
		Category:    domain.CategoryAnnouncement,
		Payload:     []byte(`{}`),
		MaxRetries:  domain.MaxDeliveryAttempts,
		NextRetryAt: now.Add(time.Hour),
		Status:      domain.StatusPending,
		CreatedAt:   now.Add(-48 * time.Hour),
		UpdatedAt:   now.Add(-48 * time.Hour),
	}
	_ = q.Create(ctx, pending)

	// Untouched for four months: past the 90-day staleness window.
	stale := &domain.Subscription{
		ID: "stale", TenantID: "show-1", Endpoint: "https://push.example.com/ep/stale",
		Active: true, CreatedAt: now.Add(-120 * 24 * time.Hour),
	}
	_ = subs.Create(ctx, stale)
	recent := &domain.Subscription{
		ID: "recent", TenantID: "show-1", Endpoint: "https://push.example.com/ep/recent",
		Active: true, CreatedAt: now,
	}
	_ = subs.Create(ctx, recent)

	_, _ = counters.Increment(ctx, "show-1", now.Add(-72*time.Hour).Truncate(time.Hour))

	c := worker.NewCleaner(subs, q, counters,
		24*time.Hour, 90*24*time.Hour, 48*time.Hour, zap.NewNop())
	c.Run(ctx)

	if _, err := q.GetByID(ctx, old.ID); err != domain.ErrNotFound {
		t.Fatalf("old succeeded item should be purged, got err=%v", err)
	}
	if _, err := q.GetByID(ctx, pending.ID); err != nil {
		t.Fatalf("pending item must survive cleanup: %v", err)
	}

	s, _ := subs.GetByID(ctx, "stale")
	if s.Active {
		t.Fatal("stale subscription should be deactivated")
	}
	r, _ := subs.GetByID(ctx, "recent")
	if !r.Active {
		t.Fatal("recent subscription must stay active")
	}
}
