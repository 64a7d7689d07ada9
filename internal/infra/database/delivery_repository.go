package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/matcreates/tribe-sub001/internal/entity"
)

type DeliveryRepository struct {
	DB *sql.DB
}

func NewDeliveryRepository(db *sql.DB) *DeliveryRepository {
	return &DeliveryRepository{DB: db}
}

func (r *DeliveryRepository) DeliveredEmails(ctx context.Context, campaignID string) ([]string, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT email FROM campaign_deliveries WHERE campaign_id = $1`, campaignID)
	if err != nil {
		return nil, fmt.Errorf("list deliveries for %s: %w", campaignID, err)
	}
	defer rows.Close()

	var emails []string
	for rows.Next() {
		var email string
		if err := rows.Scan(&email); err != nil {
			return nil, fmt.Errorf("scan delivery: %w", err)
		}
		emails = append(emails, email)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate deliveries: %w", err)
	}
	return emails, nil
}

// RecordDeliveries writes one batch in a single statement. Rows already
// logged for the campaign are left untouched.
func (r *DeliveryRepository) RecordDeliveries(ctx context.Context, campaignID string, deliveries []entity.Delivery) error {
	if len(deliveries) == 0 {
		return nil
	}

	emails := make([]string, len(deliveries))
	ids := make([]string, len(deliveries))
	for i, d := range deliveries {
		emails[i] = d.Email
		ids[i] = d.DeliveryID
	}

	query := `
		INSERT INTO campaign_deliveries (campaign_id, email, delivery_id)
		SELECT $1, e, NULLIF(d, '') FROM unnest($2::text[], $3::text[]) AS t(e, d)
		ON CONFLICT (campaign_id, email) DO NOTHING
	`

	if _, err := r.DB.ExecContext(ctx, query, campaignID, pq.Array(emails), pq.Array(ids)); err != nil {
		return fmt.Errorf("record %d deliveries for %s: %w", len(deliveries), campaignID, err)
	}
	return nil
}
