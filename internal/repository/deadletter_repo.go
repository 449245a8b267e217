package repository

import (
	"context"
	"time"

	"github.com/showring/notify/internal/domain"
)

// DeadLetterRepository defines read and acknowledgment access to the
// quarantine store. Rows are only ever created by
// QueueRepository.MoveToDeadLetter and are never auto-deleted.
type DeadLetterRepository interface {
	GetByID(ctx context.Context, id string) (*domain.DeadLetterItem, error)
	ListByTenant(ctx context.Context, tenantID string, limit int) ([]*domain.DeadLetterItem, error)
	Acknowledge(ctx context.Context, id, operatorID string, at time.Time) error
	CountUnacked(ctx context.Context, tenantID string) (int, error)
}
