package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/showring/notify/internal/domain"
)

// MockDeadLetterRepository is an in-memory DeadLetterRepository for unit
// tests. MockQueueRepository appends to it on MoveToDeadLetter.
type MockDeadLetterRepository struct {
	mu    sync.RWMutex
	items map[string]*domain.DeadLetterItem
}

func NewMockDeadLetterRepository() *MockDeadLetterRepository {
	return &MockDeadLetterRepository{items: make(map[string]*domain.DeadLetterItem)}
}

func (m *MockDeadLetterRepository) add(d *domain.DeadLetterItem) {
	m.mu.Lock()
	defer m.mu.Unlock()
	clone := *d
	m.items[d.ID] = &clone
}

func (m *MockDeadLetterRepository) GetByID(_ context.Context, id string) (*domain.DeadLetterItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.items[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	clone := *d
	return &clone, nil
}

func (m *MockDeadLetterRepository) ListByTenant(_ context.Context, tenantID string, limit int) ([]*domain.DeadLetterItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*domain.DeadLetterItem
	for _, d := range m.items {
		if d.TenantID == tenantID {
			clone := *d
			result = append(result, &clone)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].FailedAt.After(result[j].FailedAt) })
	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (m *MockDeadLetterRepository) Acknowledge(_ context.Context, id, operatorID string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.items[id]
	if !ok {
		return domain.ErrNotFound
	}
	if d.AckedAt != nil {
		return domain.ErrAlreadyAcked
	}
	op, t := operatorID, at
	d.AckedBy = &op
	d.AckedAt = &t
	return nil
}

func (m *MockDeadLetterRepository) CountUnacked(_ context.Context, tenantID string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var n int
	for _, d := range m.items {
		if d.TenantID == tenantID && d.AckedAt == nil {
			n++
		}
	}
	return n, nil
}

// All returns a snapshot of every dead letter, for test assertions.
func (m *MockDeadLetterRepository) All() []*domain.DeadLetterItem {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]*domain.DeadLetterItem, 0, len(m.items))
	for _, d := range m.items {
		clone := *d
		result = append(result, &clone)
	}
	return result
}
