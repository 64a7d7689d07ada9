package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/matcreates/tribe-sub001/internal/entity"
)

type CampaignRepository struct {
	DB *sql.DB
}

func NewCampaignRepository(db *sql.DB) *CampaignRepository {
	return &CampaignRepository{DB: db}
}

const campaignColumns = `id, tribe_id, subject, body, recipient_filter, allow_replies, status, scheduled_at,
	recipient_count, failed_count, open_count, attempts, COALESCE(last_error, ''),
	processing_started_at, sent_at, created_at, updated_at`

func (r *CampaignRepository) Create(ctx context.Context, c *entity.Campaign) error {
	query := `
		INSERT INTO campaigns (id, tribe_id, subject, body, recipient_filter, allow_replies, status, scheduled_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.DB.ExecContext(ctx, query,
		c.ID,
		c.TenantID,
		c.Subject,
		c.Body,
		c.Filter,
		c.AllowReplies,
		c.Status,
		c.ScheduledAt,
		c.CreatedAt,
		c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert campaign: %w", err)
	}
	return nil
}

func (r *CampaignRepository) Delete(ctx context.Context, tenantID, id string) error {
	_, err := r.DB.ExecContext(ctx, `DELETE FROM campaigns WHERE tribe_id = $1 AND id = $2`, tenantID, id)
	if err != nil {
		return fmt.Errorf("delete campaign %s: %w", id, err)
	}
	return nil
}

// Schedule moves a draft to scheduled. Any other current status is a
// rejected transition.
func (r *CampaignRepository) Schedule(ctx context.Context, id string, at time.Time) error {
	query := `
		UPDATE campaigns
		SET status = 'scheduled', scheduled_at = $2, updated_at = NOW()
		WHERE id = $1 AND status = 'draft'
	`

	res, err := r.DB.ExecContext(ctx, query, id, at)
	if err != nil {
		return fmt.Errorf("schedule campaign %s: %w", id, err)
	}
	return r.expectOne(ctx, res, "", id, entity.StatusScheduled)
}

func (r *CampaignRepository) Retry(ctx context.Context, tenantID, id string, at time.Time, maxAttempts int) error {
	query := `
		UPDATE campaigns
		SET status = 'scheduled', scheduled_at = $3, processing_started_at = NULL, updated_at = NOW()
		WHERE tribe_id = $1 AND id = $2 AND status = 'error' AND attempts < $4
	`

	res, err := r.DB.ExecContext(ctx, query, tenantID, id, at, maxAttempts)
	if err != nil {
		return fmt.Errorf("retry campaign %s: %w", id, err)
	}
	return r.expectOne(ctx, res, tenantID, id, entity.StatusScheduled)
}

// ClaimDue atomically moves up to limit due campaigns from scheduled to
// processing. Rows locked by a concurrent claimer are skipped, so each
// campaign is handed to exactly one caller.
func (r *CampaignRepository) ClaimDue(ctx context.Context, now time.Time, limit int) ([]*entity.Campaign, error) {
	query := `
		UPDATE campaigns
		SET status = 'processing', attempts = attempts + 1, processing_started_at = $1, updated_at = $1
		WHERE status = 'scheduled' AND id IN (
			SELECT id FROM campaigns
			WHERE status = 'scheduled' AND scheduled_at <= $1
			ORDER BY scheduled_at
			LIMIT $2
			FOR UPDATE SKIP LOCKED
		)
		RETURNING ` + campaignColumns

	rows, err := r.DB.QueryContext(ctx, query, now, limit)
	if err != nil {
		return nil, fmt.Errorf("claim due campaigns: %w", err)
	}
	defer rows.Close()

	var claimed []*entity.Campaign
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, err
		}
		claimed = append(claimed, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate claimed campaigns: %w", err)
	}
	return claimed, nil
}

// ClaimByID claims one scheduled campaign regardless of its scheduled time.
// It returns nil, nil when the campaign is not claimable.
func (r *CampaignRepository) ClaimByID(ctx context.Context, id string, now time.Time) (*entity.Campaign, error) {
	query := `
		UPDATE campaigns
		SET status = 'processing', attempts = attempts + 1, processing_started_at = $2, updated_at = $2
		WHERE id = $1 AND status = 'scheduled'
		RETURNING ` + campaignColumns

	c, err := scanCampaign(r.DB.QueryRowContext(ctx, query, id, now))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Heartbeat renews the claim held by the dispatcher that claimed the
// campaign on the given attempt, keeping it clear of the watchdog.
func (r *CampaignRepository) Heartbeat(ctx context.Context, id string, attempts int, at time.Time) error {
	query := `
		UPDATE campaigns
		SET processing_started_at = $3, updated_at = $3
		WHERE id = $1 AND status = 'processing' AND attempts = $2
	`

	res, err := r.DB.ExecContext(ctx, query, id, attempts, at)
	if err != nil {
		return fmt.Errorf("heartbeat campaign %s: %w", id, err)
	}
	return r.expectOne(ctx, res, "", id, entity.StatusProcessing)
}

// MarkOutcome finishes a processing campaign. It only applies while the
// campaign is still held by the claim made on the given attempt; a claim
// the watchdog has since handed to someone else gets a TransitionError.
func (r *CampaignRepository) MarkOutcome(ctx context.Context, id string, attempts int, outcome entity.Outcome) error {
	if outcome.Status != entity.StatusSent && outcome.Status != entity.StatusError {
		return &entity.TransitionError{CampaignID: id, From: entity.StatusProcessing, To: outcome.Status}
	}

	query := `
		UPDATE campaigns
		SET status = $2,
			recipient_count = $3,
			failed_count = $4,
			last_error = NULLIF($5, ''),
			sent_at = CASE WHEN $2 = 'sent' THEN NOW() ELSE sent_at END,
			processing_started_at = NULL,
			updated_at = NOW()
		WHERE id = $1 AND status = 'processing' AND attempts = $6
	`

	res, err := r.DB.ExecContext(ctx, query,
		id,
		outcome.Status,
		outcome.RecipientCount,
		outcome.FailedCount,
		outcome.Error,
		attempts,
	)
	if err != nil {
		return fmt.Errorf("mark campaign %s %s: %w", id, outcome.Status, err)
	}
	return r.expectOne(ctx, res, "", id, outcome.Status)
}

// ReclaimStale returns campaigns stuck in processing since before the cutoff
// to scheduled, or to error once they have used up their attempts.
func (r *CampaignRepository) ReclaimStale(ctx context.Context, startedBefore time.Time, maxAttempts int) ([]entity.Reclaimed, error) {
	query := `
		UPDATE campaigns
		SET status = CASE WHEN attempts >= $2 THEN 'error' ELSE 'scheduled' END,
			last_error = CASE WHEN attempts >= $2 THEN 'processing timed out' ELSE last_error END,
			processing_started_at = NULL,
			updated_at = NOW()
		WHERE status = 'processing' AND processing_started_at < $1
		RETURNING id, status, attempts
	`

	rows, err := r.DB.QueryContext(ctx, query, startedBefore, maxAttempts)
	if err != nil {
		return nil, fmt.Errorf("reclaim stale campaigns: %w", err)
	}
	defer rows.Close()

	var out []entity.Reclaimed
	for rows.Next() {
		var rc entity.Reclaimed
		if err := rows.Scan(&rc.ID, &rc.Status, &rc.Attempts); err != nil {
			return nil, fmt.Errorf("scan reclaimed campaign: %w", err)
		}
		out = append(out, rc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reclaimed campaigns: %w", err)
	}
	return out, nil
}

func (r *CampaignRepository) FindByID(ctx context.Context, tenantID, id string) (*entity.Campaign, error) {
	query := `SELECT ` + campaignColumns + ` FROM campaigns WHERE tribe_id = $1 AND id = $2`

	c, err := scanCampaign(r.DB.QueryRowContext(ctx, query, tenantID, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, entity.ErrCampaignNotFound
	}
	return c, err
}

func (r *CampaignRepository) Get(ctx context.Context, id string) (*entity.Campaign, error) {
	query := `SELECT ` + campaignColumns + ` FROM campaigns WHERE id = $1`

	c, err := scanCampaign(r.DB.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, entity.ErrCampaignNotFound
	}
	return c, err
}

// CountSentOrPendingSince counts campaigns that are sent, or on their way to
// being sent, created at or after since.
func (r *CampaignRepository) CountSentOrPendingSince(ctx context.Context, tenantID string, since time.Time) (int, error) {
	query := `
		SELECT COUNT(*) FROM campaigns
		WHERE tribe_id = $1 AND created_at >= $2 AND status IN ('scheduled', 'processing', 'sent')
	`

	var n int
	if err := r.DB.QueryRowContext(ctx, query, tenantID, since).Scan(&n); err != nil {
		return 0, fmt.Errorf("count campaigns since %s: %w", since.Format(time.RFC3339), err)
	}
	return n, nil
}

func (r *CampaignRepository) IncrementOpenCount(ctx context.Context, id string) error {
	_, err := r.DB.ExecContext(ctx, `UPDATE campaigns SET open_count = open_count + 1 WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("increment open count %s: %w", id, err)
	}
	return nil
}

// expectOne turns a conditional update that matched nothing into either
// ErrCampaignNotFound or a TransitionError carrying the current status.
// A non-empty tenantID scopes the lookup to that tribe.
func (r *CampaignRepository) expectOne(ctx context.Context, res sql.Result, tenantID, id string, to entity.CampaignStatus) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 1 {
		return nil
	}

	query := `SELECT status FROM campaigns WHERE id = $1`
	args := []any{id}
	if tenantID != "" {
		query += ` AND tribe_id = $2`
		args = append(args, tenantID)
	}

	var current entity.CampaignStatus
	err = r.DB.QueryRowContext(ctx, query, args...).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return entity.ErrCampaignNotFound
	}
	if err != nil {
		return fmt.Errorf("load campaign status %s: %w", id, err)
	}
	return &entity.TransitionError{CampaignID: id, From: current, To: to}
}

func scanCampaign(row rowScanner) (*entity.Campaign, error) {
	c := &entity.Campaign{}
	var scheduledAt, startedAt, sentAt sql.NullTime

	err := row.Scan(
		&c.ID,
		&c.TenantID,
		&c.Subject,
		&c.Body,
		&c.Filter,
		&c.AllowReplies,
		&c.Status,
		&scheduledAt,
		&c.RecipientCount,
		&c.FailedCount,
		&c.OpenCount,
		&c.Attempts,
		&c.LastError,
		&startedAt,
		&sentAt,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scan campaign: %w", err)
	}

	c.ScheduledAt = nullTimePtr(scheduledAt)
	c.ProcessingStartedAt = nullTimePtr(startedAt)
	c.SentAt = nullTimePtr(sentAt)
	return c, nil
}

func nullTimePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}
