package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/showring/notify/internal/domain"
)

type pgSubscriptionRepository struct {
	pool *pgxpool.Pool
}

// NewPgSubscriptionRepository returns a SubscriptionRepository backed by PostgreSQL.
func NewPgSubscriptionRepository(pool *pgxpool.Pool) SubscriptionRepository {
	return &pgSubscriptionRepository{pool: pool}
}

func (r *pgSubscriptionRepository) Create(ctx context.Context, s *domain.Subscription) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO subscriptions
			(id, tenant_id, recipient_id, role, endpoint, endpoint_keys, prefs, active, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		s.ID, s.TenantID, s.RecipientID, s.Role, s.Endpoint, s.EndpointKeys, s.Prefs, s.Active, s.CreatedAt,
	)
	if err != nil {
		if strings.Contains(err.Error(), "subscriptions_endpoint_key") {
			return domain.ErrDuplicateEndpoint
		}
		return fmt.Errorf("insert subscription: %w", err)
	}
	return nil
}

func (r *pgSubscriptionRepository) GetByID(ctx context.Context, id string) (*domain.Subscription, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, tenant_id, recipient_id, role, endpoint, endpoint_keys, prefs,
		       active, last_used_at, created_at
		FROM subscriptions WHERE id = $1`, id)

	s, err := scanSubscription(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return s, err
}

func (r *pgSubscriptionRepository) ListActive(ctx context.Context, tenantID string) ([]*domain.Subscription, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, tenant_id, recipient_id, role, endpoint, endpoint_keys, prefs,
		       active, last_used_at, created_at
		FROM subscriptions
		WHERE tenant_id = $1 AND active
		ORDER BY created_at ASC`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list active subscriptions: %w", err)
	}
	defer rows.Close()

	var subs []*domain.Subscription
	for rows.Next() {
		s, err := scanSubscription(rows)
		if err != nil {
			return nil, err
		}
		subs = append(subs, s)
	}
	return subs, rows.Err()
}

func (r *pgSubscriptionRepository) Deactivate(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE subscriptions SET active = FALSE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deactivate subscription: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *pgSubscriptionRepository) Touch(ctx context.Context, id string, usedAt time.Time) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE subscriptions SET last_used_at = $1 WHERE id = $2`, usedAt, id)
	return err
}

func (r *pgSubscriptionRepository) DeactivateStale(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE subscriptions
		SET active = FALSE
		WHERE active
		  AND COALESCE(last_used_at, created_at) < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("deactivate stale subscriptions: %w", err)
	}
	return tag.RowsAffected(), nil
}

func scanSubscription(row pgx.Row) (*domain.Subscription, error) {
	var s domain.Subscription
	err := row.Scan(
		&s.ID, &s.TenantID, &s.RecipientID, &s.Role, &s.Endpoint,
		&s.EndpointKeys, &s.Prefs, &s.Active, &s.LastUsedAt, &s.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}
