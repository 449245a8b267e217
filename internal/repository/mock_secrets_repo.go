package repository

import (
	"context"
	"sync"
	"time"

	"github.com/showring/notify/internal/domain"
)

// MockSecretsRepository is an in-memory SecretsRepository for unit tests.
// It starts out with placeholder secrets, matching the initial migration.
type MockSecretsRepository struct {
	mu      sync.RWMutex
	secrets domain.GatewaySecrets

	GetErr error
}

func NewMockSecretsRepository() *MockSecretsRepository {
	return &MockSecretsRepository{
		secrets: domain.GatewaySecrets{
			SharedSecret: domain.SecretPlaceholder,
			GatewayKey:   domain.SecretPlaceholder,
		},
	}
}

func (m *MockSecretsRepository) Get(_ context.Context) (*domain.GatewaySecrets, error) {
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	clone := m.secrets
	return &clone, nil
}

func (m *MockSecretsRepository) Rotate(_ context.Context, sharedSecret, gatewayKey, updatedBy string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.secrets = domain.GatewaySecrets{
		SharedSecret: sharedSecret,
		GatewayKey:   gatewayKey,
		UpdatedAt:    time.Now().UTC(),
		UpdatedBy:    updatedBy,
	}
	return nil
}
