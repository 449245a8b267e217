package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/showring/notify/internal/domain"
)

type pgQueueRepository struct {
	pool *pgxpool.Pool
}

// NewPgQueueRepository returns a QueueRepository backed by PostgreSQL.
func NewPgQueueRepository(pool *pgxpool.Pool) QueueRepository {
	return &pgQueueRepository{pool: pool}
}

const queueColumns = `id, tenant_id, category, payload, retry_count, max_retries,
	next_retry_at, status, last_error, last_error_at, entry_id, announcement_id,
	created_at, updated_at`

func (r *pgQueueRepository) Create(ctx context.Context, item *domain.QueueItem) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO queue_items
			(id, tenant_id, category, payload, retry_count, max_retries,
			 next_retry_at, status, last_error, last_error_at, entry_id,
			 announcement_id, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)`,
		item.ID, item.TenantID, item.Category, item.Payload, item.RetryCount,
		item.MaxRetries, item.NextRetryAt, item.Status, item.LastError,
		item.LastErrorAt, item.EntryID, item.AnnouncementID, item.CreatedAt, item.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert queue item: %w", err)
	}
	return nil
}

func (r *pgQueueRepository) GetByID(ctx context.Context, id string) (*domain.QueueItem, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+queueColumns+` FROM queue_items WHERE id = $1`, id)

	item, err := scanQueueItem(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return item, err
}

func (r *pgQueueRepository) FindDue(ctx context.Context, now time.Time, limit int) ([]*domain.QueueItem, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+queueColumns+`
		FROM queue_items
		WHERE status = 'pending'
		  AND next_retry_at <= $1
		ORDER BY next_retry_at ASC
		LIMIT $2`, now, limit)
	if err != nil {
		return nil, fmt.Errorf("find due queue items: %w", err)
	}
	defer rows.Close()
	return scanQueueItems(rows)
}

// Claim flips pending -> retrying. The WHERE status guard makes the flip
// exclusive: only the run that sees RowsAffected()==1 may attempt delivery.
func (r *pgQueueRepository) Claim(ctx context.Context, id string) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE queue_items
		SET status = 'retrying', updated_at = NOW()
		WHERE id = $1 AND status = 'pending'`, id)
	if err != nil {
		return false, fmt.Errorf("claim queue item: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *pgQueueRepository) MarkSucceeded(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE queue_items
		SET status = 'succeeded', updated_at = NOW()
		WHERE id = $1`, id)
	return err
}

func (r *pgQueueRepository) ScheduleRetry(ctx context.Context, id string, retryCount int, nextRetry time.Time, errMsg string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE queue_items
		SET status = 'pending', retry_count = $1, next_retry_at = $2,
		    last_error = $3, last_error_at = NOW(), updated_at = NOW()
		WHERE id = $4`, retryCount, nextRetry, errMsg, id)
	return err
}

func (r *pgQueueRepository) MoveToDeadLetter(ctx context.Context, item *domain.QueueItem, finalErr string, failedAt time.Time) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	_, err = tx.Exec(ctx, `
		INSERT INTO dead_letters
			(id, queue_item_id, tenant_id, category, payload, retry_count, final_error, failed_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		uuid.New().String(), item.ID, item.TenantID, item.Category,
		item.Payload, item.RetryCount, finalErr, failedAt,
	)
	if err != nil {
		return fmt.Errorf("insert dead letter: %w", err)
	}

	_, err = tx.Exec(ctx, `DELETE FROM queue_items WHERE id = $1`, item.ID)
	if err != nil {
		return fmt.Errorf("delete exhausted queue item: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit dead-letter move: %w", err)
	}
	return nil
}

func (r *pgQueueRepository) PurgeSucceeded(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM queue_items
		WHERE status = 'succeeded' AND updated_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge succeeded queue items: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *pgQueueRepository) CountByStatus(ctx context.Context, tenantID string) (map[domain.Status]int, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT status, COUNT(*)
		FROM queue_items
		WHERE tenant_id = $1
		GROUP BY status`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("count queue items: %w", err)
	}
	defer rows.Close()

	counts := make(map[domain.Status]int)
	for rows.Next() {
		var status domain.Status
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

// ---- helpers ----

func scanQueueItem(row pgx.Row) (*domain.QueueItem, error) {
	var item domain.QueueItem
	err := row.Scan(
		&item.ID, &item.TenantID, &item.Category, &item.Payload,
		&item.RetryCount, &item.MaxRetries, &item.NextRetryAt, &item.Status,
		&item.LastError, &item.LastErrorAt, &item.EntryID, &item.AnnouncementID,
		&item.CreatedAt, &item.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func scanQueueItems(rows pgx.Rows) ([]*domain.QueueItem, error) {
	var result []*domain.QueueItem
	for rows.Next() {
		item, err := scanQueueItem(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, item)
	}
	return result, rows.Err()
}
