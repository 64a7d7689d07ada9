package usecase_test

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/matcreates/tribe-sub001/internal/entity"
	"github.com/matcreates/tribe-sub001/internal/infra/mail"
	"github.com/matcreates/tribe-sub001/internal/usecase"
)

type MockCampaignRepository struct {
	mock.Mock
}

func (m *MockCampaignRepository) Create(ctx context.Context, c *entity.Campaign) error {
	return m.Called(ctx, c).Error(0)
}

func (m *MockCampaignRepository) Delete(ctx context.Context, tenantID, id string) error {
	return m.Called(ctx, tenantID, id).Error(0)
}

func (m *MockCampaignRepository) Schedule(ctx context.Context, id string, at time.Time) error {
	return m.Called(ctx, id, at).Error(0)
}

func (m *MockCampaignRepository) Retry(ctx context.Context, tenantID, id string, at time.Time, maxAttempts int) error {
	return m.Called(ctx, tenantID, id, at, maxAttempts).Error(0)
}

func (m *MockCampaignRepository) ClaimDue(ctx context.Context, now time.Time, limit int) ([]*entity.Campaign, error) {
	args := m.Called(ctx, now, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entity.Campaign), args.Error(1)
}

func (m *MockCampaignRepository) ClaimByID(ctx context.Context, id string, now time.Time) (*entity.Campaign, error) {
	args := m.Called(ctx, id, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Campaign), args.Error(1)
}

func (m *MockCampaignRepository) Heartbeat(ctx context.Context, id string, attempts int, at time.Time) error {
	return m.Called(ctx, id, attempts, at).Error(0)
}

func (m *MockCampaignRepository) MarkOutcome(ctx context.Context, id string, attempts int, outcome entity.Outcome) error {
	return m.Called(ctx, id, attempts, outcome).Error(0)
}

func (m *MockCampaignRepository) ReclaimStale(ctx context.Context, startedBefore time.Time, maxAttempts int) ([]entity.Reclaimed, error) {
	args := m.Called(ctx, startedBefore, maxAttempts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.Reclaimed), args.Error(1)
}

func (m *MockCampaignRepository) FindByID(ctx context.Context, tenantID, id string) (*entity.Campaign, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Campaign), args.Error(1)
}

func (m *MockCampaignRepository) Get(ctx context.Context, id string) (*entity.Campaign, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Campaign), args.Error(1)
}

func (m *MockCampaignRepository) CountSentOrPendingSince(ctx context.Context, tenantID string, since time.Time) (int, error) {
	args := m.Called(ctx, tenantID, since)
	return args.Int(0), args.Error(1)
}

func (m *MockCampaignRepository) IncrementOpenCount(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

type MockTenantRepository struct {
	mock.Mock
}

func (m *MockTenantRepository) FindByID(ctx context.Context, id string) (*entity.Tenant, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Tenant), args.Error(1)
}

func (m *MockTenantRepository) FindBySlug(ctx context.Context, slug string) (*entity.Tenant, error) {
	args := m.Called(ctx, slug)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Tenant), args.Error(1)
}

type MockSubscriberRepository struct {
	mock.Mock
}

func (m *MockSubscriberRepository) Create(ctx context.Context, s *entity.Subscriber) error {
	return m.Called(ctx, s).Error(0)
}

func (m *MockSubscriberRepository) Delete(ctx context.Context, tenantID, id string) error {
	return m.Called(ctx, tenantID, id).Error(0)
}

func (m *MockSubscriberRepository) ListByTenant(ctx context.Context, tenantID string) ([]*entity.Subscriber, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entity.Subscriber), args.Error(1)
}

func (m *MockSubscriberRepository) CountVerified(ctx context.Context, tenantID string) (int, error) {
	args := m.Called(ctx, tenantID)
	return args.Int(0), args.Error(1)
}

func (m *MockSubscriberRepository) FindByVerificationToken(ctx context.Context, token string) (*entity.Subscriber, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Subscriber), args.Error(1)
}

func (m *MockSubscriberRepository) ConsumeVerificationToken(ctx context.Context, id, token string) error {
	return m.Called(ctx, id, token).Error(0)
}

func (m *MockSubscriberRepository) Unsubscribe(ctx context.Context, token string) (*entity.Subscriber, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Subscriber), args.Error(1)
}

type MockDeliveryRepository struct {
	mock.Mock
}

func (m *MockDeliveryRepository) DeliveredEmails(ctx context.Context, campaignID string) ([]string, error) {
	args := m.Called(ctx, campaignID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockDeliveryRepository) RecordDeliveries(ctx context.Context, campaignID string, deliveries []entity.Delivery) error {
	return m.Called(ctx, campaignID, deliveries).Error(0)
}

type MockReplyRepository struct {
	mock.Mock
}

func (m *MockReplyRepository) Append(ctx context.Context, r *entity.Reply) error {
	return m.Called(ctx, r).Error(0)
}

func (m *MockReplyRepository) RecordUnmatched(ctx context.Context, ev entity.InboundEvent, reason string) error {
	return m.Called(ctx, ev, reason).Error(0)
}

func (m *MockReplyRepository) ListByCampaign(ctx context.Context, tenantID, campaignID string) ([]*entity.Reply, error) {
	args := m.Called(ctx, tenantID, campaignID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entity.Reply), args.Error(1)
}

type MockBulkSender struct {
	mock.Mock
}

func (m *MockBulkSender) SendBulk(ctx context.Context, in mail.BulkInput) (*mail.BulkResult, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*mail.BulkResult), args.Error(1)
}

type MockVerificationSender struct {
	mock.Mock
}

func (m *MockVerificationSender) SendVerification(ctx context.Context, to, ownerName, verifyURL string) error {
	return m.Called(ctx, to, ownerName, verifyURL).Error(0)
}

type MockDispatcher struct {
	mock.Mock
}

func (m *MockDispatcher) DispatchNow(ctx context.Context, campaignID string) (*usecase.CampaignResult, error) {
	args := m.Called(ctx, campaignID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*usecase.CampaignResult), args.Error(1)
}
