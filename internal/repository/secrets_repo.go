package repository

import (
	"context"

	"github.com/showring/notify/internal/domain"
)

// SecretsRepository holds the rotate-able gateway credentials. The dispatcher
// reads them on every send, so Rotate takes effect without a restart or
// redeploy.
type SecretsRepository interface {
	Get(ctx context.Context) (*domain.GatewaySecrets, error)
	Rotate(ctx context.Context, sharedSecret, gatewayKey, updatedBy string) error
}
