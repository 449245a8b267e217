package repository

import (
	"context"
	"time"

	"github.com/showring/notify/internal/domain"
)

// QueueRepository defines persistence for retrying deliveries.
//
// Claim is the concurrency guard: it flips exactly one item from pending to
// retrying, so two concurrent processor runs can never both send the same
// item. MoveToDeadLetter performs the copy+delete atomically.
type QueueRepository interface {
	Create(ctx context.Context, item *domain.QueueItem) error
	GetByID(ctx context.Context, id string) (*domain.QueueItem, error)
	FindDue(ctx context.Context, now time.Time, limit int) ([]*domain.QueueItem, error)
	Claim(ctx context.Context, id string) (bool, error)
	MarkSucceeded(ctx context.Context, id string) error
	ScheduleRetry(ctx context.Context, id string, retryCount int, nextRetry time.Time, errMsg string) error
	MoveToDeadLetter(ctx context.Context, item *domain.QueueItem, finalErr string, failedAt time.Time) error
	PurgeSucceeded(ctx context.Context, cutoff time.Time) (int64, error)
	CountByStatus(ctx context.Context, tenantID string) (map[domain.Status]int, error)
}
