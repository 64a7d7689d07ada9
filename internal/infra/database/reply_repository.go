package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/matcreates/tribe-sub001/internal/entity"
)

type ReplyRepository struct {
	DB *sql.DB
}

func NewReplyRepository(db *sql.DB) *ReplyRepository {
	return &ReplyRepository{DB: db}
}

func (r *ReplyRepository) Append(ctx context.Context, reply *entity.Reply) error {
	if reply.ID == "" {
		reply.ID = uuid.New().String()
	}

	query := `
		INSERT INTO email_replies (id, campaign_id, subscriber_email, reply_text, received_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := r.DB.ExecContext(ctx, query,
		reply.ID,
		reply.CampaignID,
		reply.SubscriberEmail,
		reply.Text,
		reply.ReceivedAt,
	)
	if err != nil {
		return fmt.Errorf("insert reply: %w", err)
	}
	return nil
}

// RecordUnmatched keeps inbound mail that could not be tied to a campaign.
// Nothing reads these rows back into a campaign view.
func (r *ReplyRepository) RecordUnmatched(ctx context.Context, ev entity.InboundEvent, reason string) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode inbound event: %w", err)
	}

	query := `
		INSERT INTO inbound_events (id, provider_id, from_address, to_addresses, subject, reason, payload, received_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err = r.DB.ExecContext(ctx, query,
		uuid.New().String(),
		nullString(ev.ProviderID),
		nullString(ev.From),
		pq.Array(ev.To),
		nullString(ev.Subject),
		reason,
		payload,
		ev.ReceivedAt,
	)
	if err != nil {
		return fmt.Errorf("insert inbound event: %w", err)
	}
	return nil
}

// ListByCampaign returns replies newest first. The join on campaigns scopes
// the query to the tribe and hides replies whose campaign was deleted.
func (r *ReplyRepository) ListByCampaign(ctx context.Context, tenantID, campaignID string) ([]*entity.Reply, error) {
	query := `
		SELECT er.id, er.campaign_id, er.subscriber_email, er.reply_text, er.received_at
		FROM email_replies er
		JOIN campaigns c ON c.id = er.campaign_id
		WHERE c.tribe_id = $1 AND er.campaign_id = $2
		ORDER BY er.received_at DESC
	`

	rows, err := r.DB.QueryContext(ctx, query, tenantID, campaignID)
	if err != nil {
		return nil, fmt.Errorf("list replies for %s: %w", campaignID, err)
	}
	defer rows.Close()

	var replies []*entity.Reply
	for rows.Next() {
		rp := &entity.Reply{}
		if err := rows.Scan(&rp.ID, &rp.CampaignID, &rp.SubscriberEmail, &rp.Text, &rp.ReceivedAt); err != nil {
			return nil, fmt.Errorf("scan reply: %w", err)
		}
		replies = append(replies, rp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate replies: %w", err)
	}
	return replies, nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
