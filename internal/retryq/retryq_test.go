package retryq_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/showring/notify/internal/dispatch"
	"github.com/showring/notify/internal/domain"
	"github.com/showring/notify/internal/repository"
	"github.com/showring/notify/internal/retryq"
)

func newService() (*retryq.Service, *repository.MockQueueRepository, *repository.MockDeadLetterRepository) {
	dlq := repository.NewMockDeadLetterRepository()
	q := repository.NewMockQueueRepository(dlq)
	return retryq.New(q, zap.NewNop()), q, dlq
}

var testTarget = dispatch.Target{
	SubscriptionID: "s1",
	Endpoint:       "https://push.example.com/ep/s1",
	Keys:           json.RawMessage(`{"auth":"x"}`),
}

func testEvent() *domain.Event {
	return &domain.Event{
		Category:   domain.CategoryGateCall,
		TenantID:   "show-1",
		EntryID:    "e42",
		Title:      "Gate call",
		OccurredAt: time.Now().UTC(),
	}
}

func TestEnqueueFailure(t *testing.T) {
	svc, q, _ := newService()
	before := time.Now().UTC()

	if err := svc.EnqueueFailure(context.Background(), testEvent(), testTarget, errors.New("gateway timeout")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	items := q.Items()
	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(items))
	}
	item := items[0]
	if item.RetryCount != 1 {
		t.Fatalf("retry_count = %d, want 1", item.RetryCount)
	}
	if item.MaxRetries != domain.MaxDeliveryAttempts {
		t.Fatalf("max_retries = %d, want %d", item.MaxRetries, domain.MaxDeliveryAttempts)
	}
	if item.Status != domain.StatusPending {
		t.Fatalf("status = %s, want pending", item.Status)
	}
	if item.EntryID == nil || *item.EntryID != "e42" {
		t.Fatal("entry_id not carried onto the queue item")
	}
	if item.LastError == nil || *item.LastError != "gateway timeout" {
		t.Fatal("last_error not recorded")
	}
	wantNext := before.Add(domain.BackoffDelay(0))
	if item.NextRetryAt.Before(wantNext.Add(-time.Second)) {
		t.Fatalf("next_retry_at = %s, want >= %s", item.NextRetryAt, wantNext)
	}

	// The stored payload must round-trip everything needed to re-attempt.
	payload, err := retryq.ParsePayload(item)
	if err != nil {
		t.Fatalf("parse payload: %v", err)
	}
	if payload.SubscriptionID != "s1" || payload.Endpoint != testTarget.Endpoint {
		t.Fatalf("payload target mismatch: %+v", payload)
	}
	if payload.Event.Category != domain.CategoryGateCall {
		t.Fatalf("payload event category = %s", payload.Event.Category)
	}
}

func TestRecordFailure_SchedulesBackoff(t *testing.T) {
	svc, q, dlq := newService()
	if err := svc.EnqueueFailure(context.Background(), testEvent(), testTarget, errors.New("boom")); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	item := q.Items()[0]

	before := time.Now().UTC()
	deadLettered, err := svc.RecordFailure(context.Background(), item, errors.New("still down"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if deadLettered {
		t.Fatal("second attempt must not dead-letter")
	}

	got, _ := q.GetByID(context.Background(), item.ID)
	if got.RetryCount != 2 {
		t.Fatalf("retry_count = %d, want 2", got.RetryCount)
	}
	if got.Status != domain.StatusPending {
		t.Fatalf("status = %s, want pending", got.Status)
	}
	// Failing at count 1 uses the second backoff step (5 minutes).
	wantNext := before.Add(domain.BackoffDelay(1))
	if got.NextRetryAt.Before(wantNext.Add(-time.Second)) {
		t.Fatalf("next_retry_at = %s, want about %s", got.NextRetryAt, wantNext)
	}
	if len(dlq.All()) != 0 {
		t.Fatal("nothing should be dead-lettered yet")
	}
}

// Running the ladder to exhaustion produces exactly one dead letter carrying
// the full attempt count, and removes the queue item.
func TestRecordFailure_ExhaustionDeadLetters(t *testing.T) {
	svc, q, dlq := newService()
	if err := svc.EnqueueFailure(context.Background(), testEvent(), testTarget, errors.New("attempt 0 failed")); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	for attempt := 1; ; attempt++ {
		items := q.Items()
		if len(items) == 0 {
			break
		}
		deadLettered, err := svc.RecordFailure(context.Background(), items[0], errors.New("gateway down"))
		if err != nil {
			t.Fatalf("attempt %d: %v", attempt, err)
		}
		if deadLettered {
			break
		}
		if attempt > domain.MaxDeliveryAttempts {
			t.Fatal("retry ladder did not terminate")
		}
	}

	if len(q.Items()) != 0 {
		t.Fatal("exhausted item must leave the queue")
	}
	letters := dlq.All()
	if len(letters) != 1 {
		t.Fatalf("expected exactly 1 dead letter, got %d", len(letters))
	}
	d := letters[0]
	if d.RetryCount != domain.MaxDeliveryAttempts {
		t.Fatalf("dead letter retry_count = %d, want %d", d.RetryCount, domain.MaxDeliveryAttempts)
	}
	if d.FinalError != "gateway down" {
		t.Fatalf("final_error = %q", d.FinalError)
	}
	if d.AckedAt != nil {
		t.Fatal("new dead letter must be unacked")
	}
}

// Release puts a claimed item back without consuming retry budget.
func TestRelease_PreservesRetryCount(t *testing.T) {
	svc, q, _ := newService()
	if err := svc.EnqueueFailure(context.Background(), testEvent(), testTarget, errors.New("boom")); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	item := q.Items()[0]
	if _, err := q.Claim(context.Background(), item.ID); err != nil {
		t.Fatalf("claim: %v", err)
	}

	if err := svc.Release(context.Background(), item); err != nil {
		t.Fatalf("release: %v", err)
	}

	got, _ := q.GetByID(context.Background(), item.ID)
	if got.Status != domain.StatusPending {
		t.Fatalf("status = %s, want pending", got.Status)
	}
	if got.RetryCount != item.RetryCount {
		t.Fatalf("retry_count changed: %d -> %d", item.RetryCount, got.RetryCount)
	}
	if got.NextRetryAt.Before(item.NextRetryAt) {
		t.Fatal("next_retry_at moved backwards")
	}
}
