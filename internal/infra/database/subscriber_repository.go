package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/matcreates/tribe-sub001/internal/entity"
)

type SubscriberRepository struct {
	DB *sql.DB
}

func NewSubscriberRepository(db *sql.DB) *SubscriberRepository {
	return &SubscriberRepository{DB: db}
}

const subscriberColumns = `id, tribe_id, email, verified, COALESCE(verification_token, ''), unsubscribed, unsubscribe_token, COALESCE(gift_id, ''), created_at`

func (r *SubscriberRepository) Create(ctx context.Context, s *entity.Subscriber) error {
	query := `
		INSERT INTO subscribers (id, tribe_id, email, verified, verification_token, unsubscribed, unsubscribe_token, gift_id, created_at)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, $7, NULLIF($8, ''), $9)
	`

	_, err := r.DB.ExecContext(ctx, query,
		s.ID,
		s.TenantID,
		s.Email,
		s.Verified,
		s.VerificationToken,
		s.Unsubscribed,
		s.UnsubscribeToken,
		s.GiftID,
		s.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return entity.ErrEmailAlreadyExists
		}
		return fmt.Errorf("insert subscriber: %w", err)
	}
	return nil
}

func (r *SubscriberRepository) Delete(ctx context.Context, tenantID, id string) error {
	_, err := r.DB.ExecContext(ctx, `DELETE FROM subscribers WHERE tribe_id = $1 AND id = $2`, tenantID, id)
	if err != nil {
		return fmt.Errorf("delete subscriber %s: %w", id, err)
	}
	return nil
}

func (r *SubscriberRepository) ListByTenant(ctx context.Context, tenantID string) ([]*entity.Subscriber, error) {
	query := `SELECT ` + subscriberColumns + ` FROM subscribers WHERE tribe_id = $1 ORDER BY created_at DESC`

	rows, err := r.DB.QueryContext(ctx, query, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list subscribers for tribe %s: %w", tenantID, err)
	}
	defer rows.Close()

	var subs []*entity.Subscriber
	for rows.Next() {
		s, err := scanSubscriber(rows)
		if err != nil {
			return nil, err
		}
		subs = append(subs, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate subscribers: %w", err)
	}
	return subs, nil
}

func (r *SubscriberRepository) CountVerified(ctx context.Context, tenantID string) (int, error) {
	query := `SELECT COUNT(*) FROM subscribers WHERE tribe_id = $1 AND verified = TRUE AND unsubscribed = FALSE`

	var n int
	if err := r.DB.QueryRowContext(ctx, query, tenantID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count verified subscribers: %w", err)
	}
	return n, nil
}

func (r *SubscriberRepository) FindByVerificationToken(ctx context.Context, token string) (*entity.Subscriber, error) {
	query := `SELECT ` + subscriberColumns + ` FROM subscribers WHERE verification_token = $1`

	s, err := scanSubscriber(r.DB.QueryRowContext(ctx, query, token))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, entity.ErrSubscriberNotFound
	}
	return s, err
}

// ConsumeVerificationToken verifies the subscriber and clears the token in
// one statement, so a token can only ever be used once.
func (r *SubscriberRepository) ConsumeVerificationToken(ctx context.Context, id, token string) error {
	query := `
		UPDATE subscribers
		SET verified = TRUE, verification_token = NULL
		WHERE id = $1 AND verification_token = $2
	`

	res, err := r.DB.ExecContext(ctx, query, id, token)
	if err != nil {
		return fmt.Errorf("verify subscriber %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("verify subscriber %s: %w", id, err)
	}
	if n == 0 {
		return entity.ErrTokenConsumed
	}
	return nil
}

func (r *SubscriberRepository) Unsubscribe(ctx context.Context, token string) (*entity.Subscriber, error) {
	query := `
		UPDATE subscribers SET unsubscribed = TRUE
		WHERE unsubscribe_token = $1
		RETURNING ` + subscriberColumns

	s, err := scanSubscriber(r.DB.QueryRowContext(ctx, query, token))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, entity.ErrSubscriberNotFound
	}
	return s, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSubscriber(row rowScanner) (*entity.Subscriber, error) {
	s := &entity.Subscriber{}
	err := row.Scan(
		&s.ID,
		&s.TenantID,
		&s.Email,
		&s.Verified,
		&s.VerificationToken,
		&s.Unsubscribed,
		&s.UnsubscribeToken,
		&s.GiftID,
		&s.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scan subscriber: %w", err)
	}
	return s, nil
}
