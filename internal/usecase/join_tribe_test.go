package usecase_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/matcreates/tribe-sub001/internal/entity"
	"github.com/matcreates/tribe-sub001/internal/usecase"
)

type joinFixture struct {
	tenants *MockTenantRepository
	subs    *MockSubscriberRepository
	mailer  *MockVerificationSender
	uc      *usecase.JoinTribeUseCase
}

func newJoinFixture() *joinFixture {
	f := &joinFixture{
		tenants: new(MockTenantRepository),
		subs:    new(MockSubscriberRepository),
		mailer:  new(MockVerificationSender),
	}
	f.uc = usecase.NewJoinTribeUseCase(f.tenants, f.subs, f.mailer, entity.DefaultPolicy(), "https://tribe.test", zerolog.Nop())
	return f
}

func isVerifyLink(url string) bool {
	return strings.HasPrefix(url, "https://tribe.test/api/verify?token=")
}

func TestJoinTribe_Success(t *testing.T) {
	f := newJoinFixture()
	f.tenants.On("FindBySlug", mock.Anything, "ada").Return(tribe("t1"), nil)
	f.subs.On("CountVerified", mock.Anything, "t1").Return(10, nil)
	f.subs.On("Create", mock.Anything, mock.MatchedBy(func(s *entity.Subscriber) bool {
		return s.TenantID == "t1" && s.Email == "new@x.com" && !s.Verified && s.VerificationToken != ""
	})).Return(nil)
	f.mailer.On("SendVerification", mock.Anything, "new@x.com", "Ada", mock.MatchedBy(isVerifyLink)).Return(nil)

	out, err := f.uc.Execute(context.Background(), usecase.JoinTribeInput{Slug: "ada", Email: "  New@X.com "})

	require.NoError(t, err)
	assert.NotEmpty(t, out.SubscriberID)
	assert.Equal(t, "pending_verification", out.Status)
	f.subs.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything, mock.Anything)
	f.mailer.AssertExpectations(t)
}

func TestJoinTribe_Validation(t *testing.T) {
	f := newJoinFixture()

	_, err := f.uc.Execute(context.Background(), usecase.JoinTribeInput{Slug: "ada", Email: "not-an-email"})

	assertDomainCode(t, err, usecase.CodeValidation)
	f.tenants.AssertNotCalled(t, "FindBySlug", mock.Anything, mock.Anything)
}

func TestJoinTribe_UnknownTribe(t *testing.T) {
	f := newJoinFixture()
	f.tenants.On("FindBySlug", mock.Anything, "nope").Return(nil, entity.ErrTenantNotFound)

	_, err := f.uc.Execute(context.Background(), usecase.JoinTribeInput{Slug: "nope", Email: "a@x.com"})

	assertDomainCode(t, err, usecase.CodeTenantNotFound)
}

func TestJoinTribe_FullTribe(t *testing.T) {
	f := newJoinFixture()
	f.tenants.On("FindBySlug", mock.Anything, "ada").Return(tribe("t1"), nil)
	f.subs.On("CountVerified", mock.Anything, "t1").Return(500, nil)

	_, err := f.uc.Execute(context.Background(), usecase.JoinTribeInput{Slug: "ada", Email: "a@x.com"})

	assertDomainCode(t, err, usecase.CodeTribeFull)
	f.subs.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestJoinTribe_AlreadySubscribed(t *testing.T) {
	f := newJoinFixture()
	f.tenants.On("FindBySlug", mock.Anything, "ada").Return(tribe("t1"), nil)
	f.subs.On("CountVerified", mock.Anything, "t1").Return(1, nil)
	f.subs.On("Create", mock.Anything, mock.Anything).
		Return(fmt.Errorf("insert subscriber: %w", entity.ErrEmailAlreadyExists))

	_, err := f.uc.Execute(context.Background(), usecase.JoinTribeInput{Slug: "ada", Email: "a@x.com"})

	assertDomainCode(t, err, usecase.CodeAlreadySubscribed)
	f.mailer.AssertNotCalled(t, "SendVerification", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	f.subs.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything, mock.Anything)
}

func TestJoinTribe_MailFailureRemovesSubscriber(t *testing.T) {
	f := newJoinFixture()
	var created *entity.Subscriber
	f.tenants.On("FindBySlug", mock.Anything, "ada").Return(tribe("t1"), nil)
	f.subs.On("CountVerified", mock.Anything, "t1").Return(1, nil)
	f.subs.On("Create", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { created = args.Get(1).(*entity.Subscriber) }).
		Return(nil)
	f.mailer.On("SendVerification", mock.Anything, "a@x.com", "Ada", mock.Anything).
		Return(errors.New("smtp: 421 try later"))
	f.subs.On("Delete", mock.Anything, "t1", mock.Anything).Return(nil)

	_, err := f.uc.Execute(context.Background(), usecase.JoinTribeInput{Slug: "ada", Email: "a@x.com"})

	require.Error(t, err)
	assert.True(t, usecase.IsTechnicalError(err))
	require.NotNil(t, created)
	f.subs.AssertCalled(t, "Delete", mock.Anything, "t1", created.ID)
}
