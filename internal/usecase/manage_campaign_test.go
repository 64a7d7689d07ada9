package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/matcreates/tribe-sub001/internal/entity"
	"github.com/matcreates/tribe-sub001/internal/usecase"
)

var manageNow = time.Date(2026, 3, 6, 10, 0, 0, 0, time.UTC)

func newManage() (*usecase.ManageCampaignUseCase, *MockCampaignRepository, *MockReplyRepository) {
	campaigns := new(MockCampaignRepository)
	replies := new(MockReplyRepository)
	uc := usecase.NewManageCampaignUseCase(campaigns, replies, 3, zerolog.Nop())
	uc.Now = func() time.Time { return manageNow }
	return uc, campaigns, replies
}

func TestManageCampaign_Get(t *testing.T) {
	uc, campaigns, _ := newManage()
	campaigns.On("FindByID", mock.Anything, "t1", "c1").Return(sentCampaign("c1", true), nil)
	campaigns.On("FindByID", mock.Anything, "t2", "c1").Return(nil, entity.ErrCampaignNotFound)

	got, err := uc.Get(context.Background(), "t1", "c1")
	require.NoError(t, err)
	assert.Equal(t, "c1", got.ID)

	_, err = uc.Get(context.Background(), "t2", "c1")
	assertDomainCode(t, err, usecase.CodeCampaignNotFound)
}

func TestManageCampaign_RepliesNeverNil(t *testing.T) {
	uc, campaigns, replies := newManage()
	campaigns.On("FindByID", mock.Anything, "t1", "c1").Return(sentCampaign("c1", true), nil)
	replies.On("ListByCampaign", mock.Anything, "t1", "c1").Return(nil, nil)

	got, err := uc.Replies(context.Background(), "t1", "c1")

	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestManageCampaign_RepliesOfForeignCampaign(t *testing.T) {
	uc, campaigns, replies := newManage()
	campaigns.On("FindByID", mock.Anything, "t2", "c1").Return(nil, entity.ErrCampaignNotFound)

	_, err := uc.Replies(context.Background(), "t2", "c1")

	assertDomainCode(t, err, usecase.CodeCampaignNotFound)
	replies.AssertNotCalled(t, "ListByCampaign", mock.Anything, mock.Anything, mock.Anything)
}

func TestManageCampaign_Retry(t *testing.T) {
	uc, campaigns, _ := newManage()
	rescheduled := sentCampaign("c1", true)
	rescheduled.Status = entity.StatusScheduled
	campaigns.On("Retry", mock.Anything, "t1", "c1", manageNow, 3).Return(nil)
	campaigns.On("FindByID", mock.Anything, "t1", "c1").Return(rescheduled, nil)

	got, err := uc.Retry(context.Background(), "t1", "c1")

	require.NoError(t, err)
	assert.Equal(t, entity.StatusScheduled, got.Status)
}

func TestManageCampaign_RetryRejected(t *testing.T) {
	uc, campaigns, _ := newManage()
	campaigns.On("Retry", mock.Anything, "t1", "sent", manageNow, 3).
		Return(&entity.TransitionError{CampaignID: "sent", From: entity.StatusSent, To: entity.StatusScheduled})
	campaigns.On("Retry", mock.Anything, "t1", "gone", manageNow, 3).Return(entity.ErrCampaignNotFound)
	campaigns.On("Retry", mock.Anything, "t1", "broken", manageNow, 3).Return(errors.New("conn reset"))

	_, err := uc.Retry(context.Background(), "t1", "sent")
	assertDomainCode(t, err, usecase.CodeNotRetryable)

	_, err = uc.Retry(context.Background(), "t1", "gone")
	assertDomainCode(t, err, usecase.CodeCampaignNotFound)

	_, err = uc.Retry(context.Background(), "t1", "broken")
	assert.True(t, usecase.IsTechnicalError(err))
}

func TestManageCampaign_RecordOpen(t *testing.T) {
	uc, campaigns, _ := newManage()
	campaigns.On("IncrementOpenCount", mock.Anything, "c1").Return(nil)
	campaigns.On("IncrementOpenCount", mock.Anything, "c2").Return(errors.New("timeout"))

	assert.NoError(t, uc.RecordOpen(context.Background(), "c1"))
	assert.True(t, usecase.IsTechnicalError(uc.RecordOpen(context.Background(), "c2")))
}
