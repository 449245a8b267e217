package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/showring/notify/internal/domain"
)

// MockQueueRepository is an in-memory QueueRepository for unit tests. It
// shares a MockDeadLetterRepository so MoveToDeadLetter behaves like the
// transactional pg implementation.
type MockQueueRepository struct {
	mu    sync.RWMutex
	items map[string]*domain.QueueItem
	dlq   *MockDeadLetterRepository

	// Optional error overrides — set in tests to simulate failure paths.
	CreateErr  error
	FindDueErr error
}

func NewMockQueueRepository(dlq *MockDeadLetterRepository) *MockQueueRepository {
	return &MockQueueRepository{
		items: make(map[string]*domain.QueueItem),
		dlq:   dlq,
	}
}

func (m *MockQueueRepository) Create(_ context.Context, item *domain.QueueItem) error {
	if m.CreateErr != nil {
		return m.CreateErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	clone := *item
	m.items[item.ID] = &clone
	return nil
}

func (m *MockQueueRepository) GetByID(_ context.Context, id string) (*domain.QueueItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	item, ok := m.items[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	clone := *item
	return &clone, nil
}

func (m *MockQueueRepository) FindDue(_ context.Context, now time.Time, limit int) ([]*domain.QueueItem, error) {
	if m.FindDueErr != nil {
		return nil, m.FindDueErr
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var due []*domain.QueueItem
	for _, item := range m.items {
		if item.Status == domain.StatusPending && !item.NextRetryAt.After(now) {
			clone := *item
			due = append(due, &clone)
		}
	}
	sort.Slice(due, func(i, j int) bool { return due[i].NextRetryAt.Before(due[j].NextRetryAt) })
	if len(due) > limit {
		due = due[:limit]
	}
	return due, nil
}

func (m *MockQueueRepository) Claim(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.items[id]
	if !ok || item.Status != domain.StatusPending {
		return false, nil
	}
	item.Status = domain.StatusRetrying
	item.UpdatedAt = time.Now().UTC()
	return true, nil
}

func (m *MockQueueRepository) MarkSucceeded(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if item, ok := m.items[id]; ok {
		item.Status = domain.StatusSucceeded
		item.UpdatedAt = time.Now().UTC()
	}
	return nil
}

func (m *MockQueueRepository) ScheduleRetry(_ context.Context, id string, retryCount int, nextRetry time.Time, errMsg string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if item, ok := m.items[id]; ok {
		now := time.Now().UTC()
		item.Status = domain.StatusPending
		item.RetryCount = retryCount
		item.NextRetryAt = nextRetry
		item.LastError = &errMsg
		item.LastErrorAt = &now
		item.UpdatedAt = now
	}
	return nil
}

func (m *MockQueueRepository) MoveToDeadLetter(_ context.Context, item *domain.QueueItem, finalErr string, failedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dlq.add(&domain.DeadLetterItem{
		ID:          uuid.New().String(),
		QueueItemID: item.ID,
		TenantID:    item.TenantID,
		Category:    item.Category,
		Payload:     item.Payload,
		RetryCount:  item.RetryCount,
		FinalError:  finalErr,
		FailedAt:    failedAt,
	})
	delete(m.items, item.ID)
	return nil
}

func (m *MockQueueRepository) PurgeSucceeded(_ context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, item := range m.items {
		if item.Status == domain.StatusSucceeded && item.UpdatedAt.Before(cutoff) {
			delete(m.items, id)
			n++
		}
	}
	return n, nil
}

func (m *MockQueueRepository) CountByStatus(_ context.Context, tenantID string) (map[domain.Status]int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	counts := make(map[domain.Status]int)
	for _, item := range m.items {
		if item.TenantID == tenantID {
			counts[item.Status]++
		}
	}
	return counts, nil
}

// Items returns a snapshot of every stored item, for test assertions.
func (m *MockQueueRepository) Items() []*domain.QueueItem {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]*domain.QueueItem, 0, len(m.items))
	for _, item := range m.items {
		clone := *item
		result = append(result, &clone)
	}
	return result
}
