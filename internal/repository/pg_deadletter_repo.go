package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/showring/notify/internal/domain"
)

type pgDeadLetterRepository struct {
	pool *pgxpool.Pool
}

// NewPgDeadLetterRepository returns a DeadLetterRepository backed by PostgreSQL.
func NewPgDeadLetterRepository(pool *pgxpool.Pool) DeadLetterRepository {
	return &pgDeadLetterRepository{pool: pool}
}

const deadLetterColumns = `id, queue_item_id, tenant_id, category, payload,
	retry_count, final_error, failed_at, acked_by, acked_at`

func (r *pgDeadLetterRepository) GetByID(ctx context.Context, id string) (*domain.DeadLetterItem, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+deadLetterColumns+` FROM dead_letters WHERE id = $1`, id)

	d, err := scanDeadLetter(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return d, err
}

func (r *pgDeadLetterRepository) ListByTenant(ctx context.Context, tenantID string, limit int) ([]*domain.DeadLetterItem, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+deadLetterColumns+`
		FROM dead_letters
		WHERE tenant_id = $1
		ORDER BY failed_at DESC
		LIMIT $2`, tenantID, limit)
	if err != nil {
		return nil, fmt.Errorf("list dead letters: %w", err)
	}
	defer rows.Close()

	var result []*domain.DeadLetterItem
	for rows.Next() {
		d, err := scanDeadLetter(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, d)
	}
	return result, rows.Err()
}

// Acknowledge records the operator and time. The acked_at IS NULL guard makes
// acknowledgment first-writer-wins; a second ack reports ErrAlreadyAcked.
func (r *pgDeadLetterRepository) Acknowledge(ctx context.Context, id, operatorID string, at time.Time) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE dead_letters
		SET acked_by = $1, acked_at = $2
		WHERE id = $3 AND acked_at IS NULL`, operatorID, at, id)
	if err != nil {
		return fmt.Errorf("acknowledge dead letter: %w", err)
	}
	if tag.RowsAffected() == 0 {
		if _, getErr := r.GetByID(ctx, id); getErr != nil {
			return getErr
		}
		return domain.ErrAlreadyAcked
	}
	return nil
}

func (r *pgDeadLetterRepository) CountUnacked(ctx context.Context, tenantID string) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM dead_letters
		WHERE tenant_id = $1 AND acked_at IS NULL`, tenantID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count unacked dead letters: %w", err)
	}
	return n, nil
}

func scanDeadLetter(row pgx.Row) (*domain.DeadLetterItem, error) {
	var d domain.DeadLetterItem
	err := row.Scan(
		&d.ID, &d.QueueItemID, &d.TenantID, &d.Category, &d.Payload,
		&d.RetryCount, &d.FinalError, &d.FailedAt, &d.AckedBy, &d.AckedAt,
	)
	if err != nil {
		return nil, err
	}
	return &d, nil
}
