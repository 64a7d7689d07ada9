package handlers_test

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/matcreates/tribe-sub001/internal/entity"
	"github.com/matcreates/tribe-sub001/internal/infra/integration/resend"
	"github.com/matcreates/tribe-sub001/internal/usecase"
)

type MockCampaignCreator struct {
	mock.Mock
}

func (m *MockCampaignCreator) Execute(ctx context.Context, input usecase.CreateCampaignInput) (*usecase.CreateCampaignOutput, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*usecase.CreateCampaignOutput), args.Error(1)
}

type MockCampaignManager struct {
	mock.Mock
}

func (m *MockCampaignManager) Get(ctx context.Context, tenantID, id string) (*entity.Campaign, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Campaign), args.Error(1)
}

func (m *MockCampaignManager) Replies(ctx context.Context, tenantID, id string) ([]*entity.Reply, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entity.Reply), args.Error(1)
}

func (m *MockCampaignManager) Retry(ctx context.Context, tenantID, id string) (*entity.Campaign, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Campaign), args.Error(1)
}

type MockTickRunner struct {
	mock.Mock
}

func (m *MockTickRunner) RunTick(ctx context.Context, now time.Time) (*usecase.TickResult, error) {
	args := m.Called(ctx, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*usecase.TickResult), args.Error(1)
}

type MockReclaimer struct {
	mock.Mock
}

func (m *MockReclaimer) Execute(ctx context.Context, now time.Time) ([]entity.Reclaimed, error) {
	args := m.Called(ctx, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.Reclaimed), args.Error(1)
}

type MockFetcher struct {
	mock.Mock
}

func (m *MockFetcher) FetchReceived(ctx context.Context, id string) (*resend.ReceivedEmail, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*resend.ReceivedEmail), args.Error(1)
}

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) PublishInbound(ctx context.Context, ev entity.InboundEvent) error {
	return m.Called(ctx, ev).Error(0)
}

type MockOpenRecorder struct {
	mock.Mock
}

func (m *MockOpenRecorder) RecordOpen(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

type MockJoiner struct {
	mock.Mock
}

func (m *MockJoiner) Execute(ctx context.Context, input usecase.JoinTribeInput) (*usecase.JoinTribeOutput, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*usecase.JoinTribeOutput), args.Error(1)
}

type MockSubscriberVerifier struct {
	mock.Mock
}

func (m *MockSubscriberVerifier) Execute(ctx context.Context, token string) (*usecase.VerifySubscriberOutput, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*usecase.VerifySubscriberOutput), args.Error(1)
}

type MockUnsubscriber struct {
	mock.Mock
}

func (m *MockUnsubscriber) Execute(ctx context.Context, token string) error {
	return m.Called(ctx, token).Error(0)
}
