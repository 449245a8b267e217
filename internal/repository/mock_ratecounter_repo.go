package repository

import (
	"context"
	"sync"
	"time"
)

type counterKey struct {
	tenantID string
	bucket   time.Time
}

// MockRateCounterRepository is an in-memory RateCounterRepository for unit tests.
type MockRateCounterRepository struct {
	mu     sync.Mutex
	counts map[counterKey]int

	IncrementErr error
}

func NewMockRateCounterRepository() *MockRateCounterRepository {
	return &MockRateCounterRepository{counts: make(map[counterKey]int)}
}

func (m *MockRateCounterRepository) Increment(_ context.Context, tenantID string, bucket time.Time) (int, error) {
	if m.IncrementErr != nil {
		return 0, m.IncrementErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	key := counterKey{tenantID: tenantID, bucket: bucket.UTC()}
	m.counts[key]++
	return m.counts[key], nil
}

func (m *MockRateCounterRepository) Prune(_ context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for key := range m.counts {
		if key.bucket.Before(cutoff) {
			delete(m.counts, key)
			n++
		}
	}
	return n, nil
}
