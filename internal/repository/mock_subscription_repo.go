package repository

import (
	"context"
	"sync"
	"time"

	"github.com/showring/notify/internal/domain"
)

// MockSubscriptionRepository is a hand-written, in-memory implementation of
// SubscriptionRepository used in unit tests. No mock-generation library needed.
type MockSubscriptionRepository struct {
	mu   sync.RWMutex
	subs map[string]*domain.Subscription

	// Optional error overrides — set in tests to simulate failure paths.
	CreateErr     error
	ListActiveErr error
}

func NewMockSubscriptionRepository() *MockSubscriptionRepository {
	return &MockSubscriptionRepository{subs: make(map[string]*domain.Subscription)}
}

func (m *MockSubscriptionRepository) Create(_ context.Context, s *domain.Subscription) error {
	if m.CreateErr != nil {
		return m.CreateErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.subs {
		if existing.Endpoint == s.Endpoint {
			return domain.ErrDuplicateEndpoint
		}
	}
	clone := *s
	m.subs[s.ID] = &clone
	return nil
}

func (m *MockSubscriptionRepository) GetByID(_ context.Context, id string) (*domain.Subscription, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.subs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	clone := *s
	return &clone, nil
}

func (m *MockSubscriptionRepository) ListActive(_ context.Context, tenantID string) ([]*domain.Subscription, error) {
	if m.ListActiveErr != nil {
		return nil, m.ListActiveErr
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*domain.Subscription
	for _, s := range m.subs {
		if s.TenantID == tenantID && s.Active {
			clone := *s
			result = append(result, &clone)
		}
	}
	return result, nil
}

func (m *MockSubscriptionRepository) Deactivate(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.subs[id]
	if !ok {
		return domain.ErrNotFound
	}
	s.Active = false
	return nil
}

func (m *MockSubscriptionRepository) Touch(_ context.Context, id string, usedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.subs[id]; ok {
		t := usedAt
		s.LastUsedAt = &t
	}
	return nil
}

func (m *MockSubscriptionRepository) DeactivateStale(_ context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, s := range m.subs {
		if !s.Active {
			continue
		}
		ref := s.CreatedAt
		if s.LastUsedAt != nil {
			ref = *s.LastUsedAt
		}
		if ref.Before(cutoff) {
			s.Active = false
			n++
		}
	}
	return n, nil
}
