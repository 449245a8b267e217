package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/showring/notify/internal/domain"
)

type pgSecretsRepository struct {
	pool *pgxpool.Pool
}

// NewPgSecretsRepository returns a SecretsRepository backed by PostgreSQL.
// The table holds a single row (id = 1), seeded with placeholders by the
// initial migration.
func NewPgSecretsRepository(pool *pgxpool.Pool) SecretsRepository {
	return &pgSecretsRepository{pool: pool}
}

func (r *pgSecretsRepository) Get(ctx context.Context) (*domain.GatewaySecrets, error) {
	var s domain.GatewaySecrets
	err := r.pool.QueryRow(ctx, `
		SELECT shared_secret, gateway_key, updated_at, updated_by
		FROM gateway_secrets WHERE id = 1`).
		Scan(&s.SharedSecret, &s.GatewayKey, &s.UpdatedAt, &s.UpdatedBy)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get gateway secrets: %w", err)
	}
	return &s, nil
}

func (r *pgSecretsRepository) Rotate(ctx context.Context, sharedSecret, gatewayKey, updatedBy string) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO gateway_secrets (id, shared_secret, gateway_key, updated_at, updated_by)
		VALUES (1, $1, $2, NOW(), $3)
		ON CONFLICT (id) DO UPDATE
		SET shared_secret = EXCLUDED.shared_secret,
		    gateway_key   = EXCLUDED.gateway_key,
		    updated_at    = NOW(),
		    updated_by    = EXCLUDED.updated_by`,
		sharedSecret, gatewayKey, updatedBy)
	if err != nil {
		return fmt.Errorf("rotate gateway secrets: %w", err)
	}
	return nil
}
