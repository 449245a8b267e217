package repository

import (
	"context"
	"time"

	"github.com/showring/notify/internal/domain"
)

// SubscriptionRepository defines persistence for recipient delivery targets.
// The pgx implementation is in pg_subscription_repo.go; tests use a
// hand-written mock (mock_subscription_repo.go).
//
// Subscriptions are soft-deleted: Deactivate flips the active flag and the
// row is retained for audit.
type SubscriptionRepository interface {
	Create(ctx context.Context, s *domain.Subscription) error
	GetByID(ctx context.Context, id string) (*domain.Subscription, error)
	ListActive(ctx context.Context, tenantID string) ([]*domain.Subscription, error)
	Deactivate(ctx context.Context, id string) error
	Touch(ctx context.Context, id string, usedAt time.Time) error
	DeactivateStale(ctx context.Context, cutoff time.Time) (int64, error)
}
