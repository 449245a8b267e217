// Package retryq owns the retry-queue lifecycle: a failed delivery becomes a
// queue item, each further failure pushes the item down the backoff schedule,
// and exhaustion moves it to the dead-letter store.
package retryq

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/showring/notify/internal/dispatch"
	"github.com/showring/notify/internal/domain"
	"github.com/showring/notify/internal/repository"
)

// Service wraps the queue repository with the retry-count and backoff rules.
type Service struct {
	queue  repository.QueueRepository
	logger *zap.Logger
}

func New(queue repository.QueueRepository, logger *zap.Logger) *Service {
	return &Service{queue: queue, logger: logger}
}

// EnqueueFailure records a failed first-attempt delivery. The inline attempt
// counts as attempt 0, so the item starts at retry_count 1 with its next
// attempt one backoff step away.
func (s *Service) EnqueueFailure(ctx context.Context, ev *domain.Event, target dispatch.Target, sendErr error) error {
	payload, err := json.Marshal(domain.DeliveryPayload{
		SubscriptionID: target.SubscriptionID,
		Endpoint:       target.Endpoint,
		EndpointKeys:   target.Keys,
		Event:          *ev,
	})
	if err != nil {
		return fmt.Errorf("marshal delivery payload: %w", err)
	}

	now := time.Now().UTC()
	errMsg := sendErr.Error()
	item := &domain.QueueItem{
		ID:          uuid.New().String(),
		TenantID:    ev.TenantID,
		Category:    ev.Category,
		Payload:     payload,
		RetryCount:  1,
		MaxRetries:  domain.MaxDeliveryAttempts,
		NextRetryAt: now.Add(domain.BackoffDelay(0)),
		Status:      domain.StatusPending,
		LastError:   &errMsg,
		LastErrorAt: &now,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if ev.EntryID != "" {
		id := ev.EntryID
		item.EntryID = &id
	}
	if ev.AnnouncementID != "" {
		id := ev.AnnouncementID
		item.AnnouncementID = &id
	}

	if err := s.queue.Create(ctx, item); err != nil {
		return fmt.Errorf("enqueue failed delivery: %w", err)
	}
	s.logger.Info("delivery queued for retry",
		zap.String("queue_item_id", item.ID),
		zap.String("category", string(ev.Category)),
		zap.Time("next_retry_at", item.NextRetryAt),
	)
	return nil
}

// RecordSuccess marks a claimed item delivered. Succeeded items stay visible
// until the cleanup job purges them past the retention window.
func (s *Service) RecordSuccess(ctx context.Context, item *domain.QueueItem) error {
	return s.queue.MarkSucceeded(ctx, item.ID)
}

// RecordFailure applies the backoff schedule to a claimed item after a
// failed attempt. The attempt that brings the count to max moves the item to
// the dead-letter store atomically; otherwise the item returns to pending
// with its next_retry_at pushed out by the schedule.
func (s *Service) RecordFailure(ctx context.Context, item *domain.QueueItem, sendErr error) (deadLettered bool, err error) {
	delay := domain.BackoffDelay(item.RetryCount)
	now := time.Now().UTC()
	nextCount := item.RetryCount + 1

	if nextCount >= item.MaxRetries {
		item.RetryCount = nextCount
		if err := s.queue.MoveToDeadLetter(ctx, item, sendErr.Error(), now); err != nil {
			return false, fmt.Errorf("move to dead letter: %w", err)
		}
		s.logger.Warn("delivery exhausted retries, dead-lettered",
			zap.String("queue_item_id", item.ID),
			zap.Int("retry_count", nextCount),
			zap.String("final_error", sendErr.Error()),
		)
		return true, nil
	}

	if err := s.queue.ScheduleRetry(ctx, item.ID, nextCount, now.Add(delay), sendErr.Error()); err != nil {
		return false, fmt.Errorf("schedule retry: %w", err)
	}
	return false, nil
}

// Release returns a claimed item to pending without consuming a retry.
// Used when the attempt was aborted before reaching the gateway (for
// example, unusable secrets): burning budget would not help until the
// condition is repaired.
func (s *Service) Release(ctx context.Context, item *domain.QueueItem) error {
	next := time.Now().UTC().Add(domain.BackoffDelay(item.RetryCount))
	if !next.After(item.NextRetryAt) {
		next = item.NextRetryAt
	}
	errMsg := "attempt aborted: gateway secrets unavailable"
	if item.LastError != nil {
		errMsg = *item.LastError
	}
	return s.queue.ScheduleRetry(ctx, item.ID, item.RetryCount, next, errMsg)
}

// ParsePayload deserializes an item's delivery payload.
func ParsePayload(item *domain.QueueItem) (*domain.DeliveryPayload, error) {
	var p domain.DeliveryPayload
	if err := json.Unmarshal(item.Payload, &p); err != nil {
		return nil, fmt.Errorf("unmarshal delivery payload: %w", err)
	}
	return &p, nil
}
