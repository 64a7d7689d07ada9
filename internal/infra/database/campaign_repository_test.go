package database

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matcreates/tribe-sub001/internal/entity"
)

var campaignRowColumns = []string{
	"id", "tribe_id", "subject", "body", "recipient_filter", "allow_replies", "status", "scheduled_at",
	"recipient_count", "failed_count", "open_count", "attempts", "last_error",
	"processing_started_at", "sent_at", "created_at", "updated_at",
}

func newMockRepo(t *testing.T) (*CampaignRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewCampaignRepository(db), mock
}

func TestClaimDue_ReturnsClaimedCampaigns(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	scheduled := now.Add(-time.Minute)

	rows := sqlmock.NewRows(campaignRowColumns).
		AddRow("c1", "t1", "Hello", "Body", "verified", true, "processing", scheduled,
			0, 0, 0, 1, "", now, nil, now, now)

	mock.ExpectQuery(regexp.QuoteMeta("UPDATE campaigns")).
		WithArgs(now, 10).
		WillReturnRows(rows)

	claimed, err := repo.ClaimDue(context.Background(), now, 10)
	require.NoError(t, err)
	require.Len(t, claimed, 1)

	c := claimed[0]
	assert.Equal(t, "c1", c.ID)
	assert.Equal(t, entity.StatusProcessing, c.Status)
	assert.Equal(t, entity.FilterVerified, c.Filter)
	assert.Equal(t, 1, c.Attempts)
	require.NotNil(t, c.ScheduledAt)
	assert.True(t, c.ScheduledAt.Equal(scheduled))
	assert.Nil(t, c.SentAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClaimByID_NotClaimableReturnsNil(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta("UPDATE campaigns")).
		WithArgs("c1", now).
		WillReturnRows(sqlmock.NewRows(campaignRowColumns))

	c, err := repo.ClaimByID(context.Background(), "c1", now)
	assert.NoError(t, err)
	assert.Nil(t, c)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkOutcome(t *testing.T) {
	t.Run("applies while processing", func(t *testing.T) {
		repo, mock := newMockRepo(t)

		mock.ExpectExec(regexp.QuoteMeta("UPDATE campaigns")).
			WithArgs("c1", entity.StatusSent, 3, 1, "", 1).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := repo.MarkOutcome(context.Background(), "c1", 1, entity.Outcome{
			Status:         entity.StatusSent,
			RecipientCount: 3,
			FailedCount:    1,
		})
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rejects when no longer processing", func(t *testing.T) {
		repo, mock := newMockRepo(t)

		mock.ExpectExec(regexp.QuoteMeta("UPDATE campaigns")).
			WithArgs("c1", entity.StatusSent, 3, 0, "", 1).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(regexp.QuoteMeta("SELECT status FROM campaigns")).
			WithArgs("c1").
			WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("sent"))

		err := repo.MarkOutcome(context.Background(), "c1", 1, entity.Outcome{
			Status:         entity.StatusSent,
			RecipientCount: 3,
		})

		var te *entity.TransitionError
		require.True(t, errors.As(err, &te))
		assert.Equal(t, entity.StatusSent, te.From)
		assert.ErrorIs(t, err, entity.ErrInvalidTransition)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("refuses non-terminal status without touching the db", func(t *testing.T) {
		repo, mock := newMockRepo(t)

		err := repo.MarkOutcome(context.Background(), "c1", 1, entity.Outcome{Status: entity.StatusScheduled})
		assert.ErrorIs(t, err, entity.ErrInvalidTransition)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestMarkOutcome_FencedByClaimAttempt(t *testing.T) {
	repo, mock := newMockRepo(t)

	// Reclaimed by the watchdog and claimed again as attempt 2.
	mock.ExpectExec(regexp.QuoteMeta("WHERE id = $1 AND status = 'processing' AND attempts = $6")).
		WithArgs("c1", entity.StatusSent, 5, 0, "", 1).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT status FROM campaigns")).
		WithArgs("c1").
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("processing"))

	err := repo.MarkOutcome(context.Background(), "c1", 1, entity.Outcome{
		Status:         entity.StatusSent,
		RecipientCount: 5,
	})

	var te *entity.TransitionError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, entity.StatusProcessing, te.From)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHeartbeat(t *testing.T) {
	at := time.Date(2026, 3, 2, 10, 15, 0, 0, time.UTC)

	t.Run("renews a held claim", func(t *testing.T) {
		repo, mock := newMockRepo(t)

		mock.ExpectExec(regexp.QuoteMeta("SET processing_started_at = $3")).
			WithArgs("c1", 2, at).
			WillReturnResult(sqlmock.NewResult(0, 1))

		assert.NoError(t, repo.Heartbeat(context.Background(), "c1", 2, at))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("reports a lost claim", func(t *testing.T) {
		repo, mock := newMockRepo(t)

		mock.ExpectExec(regexp.QuoteMeta("SET processing_started_at = $3")).
			WithArgs("c1", 1, at).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(regexp.QuoteMeta("SELECT status FROM campaigns")).
			WithArgs("c1").
			WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("scheduled"))

		err := repo.Heartbeat(context.Background(), "c1", 1, at)
		assert.ErrorIs(t, err, entity.ErrInvalidTransition)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestClaim_OnlyScheduledRowsAreEligible(t *testing.T) {
	now := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

	t.Run("due sweep", func(t *testing.T) {
		repo, mock := newMockRepo(t)

		mock.ExpectQuery(regexp.QuoteMeta("WHERE status = 'scheduled' AND id IN")).
			WithArgs(now, 10).
			WillReturnRows(sqlmock.NewRows(campaignRowColumns))

		claimed, err := repo.ClaimDue(context.Background(), now, 10)
		require.NoError(t, err)
		assert.Empty(t, claimed)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("by id", func(t *testing.T) {
		repo, mock := newMockRepo(t)

		// A sent campaign does not match the guard, so nothing is returned.
		mock.ExpectQuery(regexp.QuoteMeta("WHERE id = $1 AND status = 'scheduled'")).
			WithArgs("sent-campaign", now).
			WillReturnRows(sqlmock.NewRows(campaignRowColumns))

		c, err := repo.ClaimByID(context.Background(), "sent-campaign", now)
		require.NoError(t, err)
		assert.Nil(t, c)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestSchedule_MissingCampaign(t *testing.T) {
	repo, mock := newMockRepo(t)
	at := time.Now()

	mock.ExpectExec(regexp.QuoteMeta("UPDATE campaigns")).
		WithArgs("nope", at).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT status FROM campaigns")).
		WithArgs("nope").
		WillReturnRows(sqlmock.NewRows([]string{"status"}))

	err := repo.Schedule(context.Background(), "nope", at)
	assert.ErrorIs(t, err, entity.ErrCampaignNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReclaimStale(t *testing.T) {
	repo, mock := newMockRepo(t)
	cutoff := time.Now().Add(-30 * time.Minute)

	mock.ExpectQuery(regexp.QuoteMeta("UPDATE campaigns")).
		WithArgs(cutoff, 3).
		WillReturnRows(sqlmock.NewRows([]string{"id", "status", "attempts"}).
			AddRow("c1", "scheduled", 1).
			AddRow("c2", "error", 3))

	out, err := repo.ReclaimStale(context.Background(), cutoff, 3)
	require.NoError(t, err)
	assert.Equal(t, []entity.Reclaimed{
		{ID: "c1", Status: entity.StatusScheduled, Attempts: 1},
		{ID: "c2", Status: entity.StatusError, Attempts: 3},
	}, out)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordDeliveries_EmptyBatchIsNoop(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewDeliveryRepository(db)
	assert.NoError(t, repo.RecordDeliveries(context.Background(), "c1", nil))
	assert.NoError(t, mock.ExpectationsWereMet())
}
