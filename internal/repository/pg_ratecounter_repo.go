package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

type pgRateCounterRepository struct {
	pool *pgxpool.Pool
}

// NewPgRateCounterRepository returns a RateCounterRepository backed by PostgreSQL.
func NewPgRateCounterRepository(pool *pgxpool.Pool) RateCounterRepository {
	return &pgRateCounterRepository{pool: pool}
}

// Increment upserts the (tenant, bucket) row and returns the new count.
// ON CONFLICT makes the increment atomic, so concurrent producers never
// lose updates.
func (r *pgRateCounterRepository) Increment(ctx context.Context, tenantID string, bucket time.Time) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `
		INSERT INTO rate_counters (tenant_id, bucket, count)
		VALUES ($1, $2, 1)
		ON CONFLICT (tenant_id, bucket)
		DO UPDATE SET count = rate_counters.count + 1
		RETURNING count`, tenantID, bucket).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("increment rate counter: %w", err)
	}
	return count, nil
}

func (r *pgRateCounterRepository) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM rate_counters WHERE bucket < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune rate counters: %w", err)
	}
	return tag.RowsAffected(), nil
}
