package service

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"social_publisher/internal/config"
	"social_publisher/internal/domain"
	"social_publisher/internal/service/mocks"
)

type PublishServiceTestSuite struct {
	suite.Suite
	ctrl *gomock.Controller

	creds    *mocks.MockCredentialStore
	queue    *mocks.MockDraftQueue
	platform *mocks.MockPlatform
	events   *mocks.MockEventPublisher
	delayer  *mocks.MockDelayer

	service *PublishService
	cfg     config.PublishConfig
	logger  *slog.Logger
}

func (s *PublishServiceTestSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())

	s.creds = mocks.NewMockCredentialStore(s.ctrl)
	s.queue = mocks.NewMockDraftQueue(s.ctrl)
	s.platform = mocks.NewMockPlatform(s.ctrl)
	s.events = mocks.NewMockEventPublisher(s.ctrl)
	s.delayer = mocks.NewMockDelayer(s.ctrl)

	s.cfg = config.PublishConfig{
		InterPostDelay: 30 * time.Second,
		StaleClaimAge:  15 * time.Minute,
	}

	s.logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	s.service = NewPublishService(
		s.creds,
		s.queue,
		s.platform,
		s.events,
		s.delayer,
		s.logger,
		s.cfg,
	)
}

func (s *PublishServiceTestSuite) TearDownTest() {
	s.ctrl.Finish()
}

func TestPublishServiceTestSuite(t *testing.T) {
	suite.Run(t, new(PublishServiceTestSuite))
}

func validCredential() *domain.Credential {
	return &domain.Credential{
		AccessToken: "token-abc",
		ExpiresAt:   time.Now().Add(1 * time.Hour),
	}
}

func eligibleDrafts(n int) []domain.Draft {
	drafts := make([]domain.Draft, n)
	base := time.Now().Add(-time.Duration(n) * time.Minute)
	for i := range drafts {
		drafts[i] = domain.Draft{
			ID:        string(rune('a' + i)),
			Content:   "content " + string(rune('a'+i)),
			Status:    domain.StatusDraft,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}
	}
	return drafts
}

func (s *PublishServiceTestSuite) TestPublishAll_AllSucceed() {
	ctx := context.Background()
	drafts := eligibleDrafts(3)

	s.creds.EXPECT().Load(ctx).Return(validCredential(), nil)
	s.queue.EXPECT().RequeueStale(ctx, s.cfg.StaleClaimAge).Return(int64(0), nil)
	s.queue.EXPECT().ListEligible(ctx).Return(drafts, nil)

	var prev *gomock.Call
	after := func(c *gomock.Call) {
		if prev != nil {
			c.After(prev)
		}
		prev = c
	}
	for i := range drafts {
		id := drafts[i].ID
		after(s.queue.EXPECT().Claim(ctx, id).Return(nil))
		after(s.platform.EXPECT().Post(ctx, "token-abc", drafts[i].Content).Return("post-"+id, nil))
		after(s.queue.EXPECT().MarkPublished(ctx, id, "post-"+id, gomock.Any()).Return(nil))
		after(s.events.EXPECT().PublishResult(ctx, gomock.Any()).Return(nil))
		if i < len(drafts)-1 {
			after(s.delayer.EXPECT().Wait(ctx, s.cfg.InterPostDelay).Return(nil))
		}
	}

	stats, err := s.service.PublishAll(ctx)

	s.NoError(err)
	s.Equal(3, stats.Attempted)
	s.Equal(3, stats.Published)
	s.Equal(0, stats.Failed)
	s.Equal(0, stats.Skipped)
}

func (s *PublishServiceTestSuite) TestPublishAll_FirstFailsBatchContinues() {
	ctx := context.Background()
	drafts := eligibleDrafts(2)

	s.creds.EXPECT().Load(ctx).Return(validCredential(), nil)
	s.queue.EXPECT().RequeueStale(ctx, s.cfg.StaleClaimAge).Return(int64(0), nil)
	s.queue.EXPECT().ListEligible(ctx).Return(drafts, nil)

	gomock.InOrder(
		s.queue.EXPECT().Claim(ctx, drafts[0].ID).Return(nil),
		s.platform.EXPECT().Post(ctx, "token-abc", drafts[0].Content).
			Return("", errors.New("linkedin api: throttled (status 429, code 0)")),
		s.queue.EXPECT().MarkFailed(ctx, drafts[0].ID, "linkedin api: throttled (status 429, code 0)").Return(nil),
		s.events.EXPECT().PublishResult(ctx, gomock.Any()).Return(nil),
		s.delayer.EXPECT().Wait(ctx, s.cfg.InterPostDelay).Return(nil),
		s.queue.EXPECT().Claim(ctx, drafts[1].ID).Return(nil),
		s.platform.EXPECT().Post(ctx, "token-abc", drafts[1].Content).Return("post-b", nil),
		s.queue.EXPECT().MarkPublished(ctx, drafts[1].ID, "post-b", gomock.Any()).Return(nil),
		s.events.EXPECT().PublishResult(ctx, gomock.Any()).Return(nil),
	)

	stats, err := s.service.PublishAll(ctx)

	s.NoError(err)
	s.Equal(2, stats.Attempted)
	s.Equal(1, stats.Published)
	s.Equal(1, stats.Failed)
}

func (s *PublishServiceTestSuite) TestPublishAll_NoCredential() {
	ctx := context.Background()

	s.creds.EXPECT().Load(ctx).Return(nil, nil)

	stats, err := s.service.PublishAll(ctx)

	s.ErrorIs(err, domain.ErrAuthRequired)
	s.Nil(stats)
}

func (s *PublishServiceTestSuite) TestPublishAll_ExpiredCredential() {
	ctx := context.Background()

	s.creds.EXPECT().Load(ctx).Return(&domain.Credential{
		AccessToken: "stale",
		ExpiresAt:   time.Now().Add(-1 * time.Minute),
	}, nil)

	stats, err := s.service.PublishAll(ctx)

	s.ErrorIs(err, domain.ErrAuthRequired)
	s.Nil(stats)
}

func (s *PublishServiceTestSuite) TestPublishAll_UnreadableStore() {
	ctx := context.Background()

	s.creds.EXPECT().Load(ctx).Return(nil, domain.ErrCredentialUnavailable)

	stats, err := s.service.PublishAll(ctx)

	s.ErrorIs(err, domain.ErrAuthRequired)
	s.ErrorIs(err, domain.ErrCredentialUnavailable)
	s.Nil(stats)
}

func (s *PublishServiceTestSuite) TestPublishAll_ClaimLostSkipsItem() {
	ctx := context.Background()
	drafts := eligibleDrafts(2)

	s.creds.EXPECT().Load(ctx).Return(validCredential(), nil)
	s.queue.EXPECT().RequeueStale(ctx, s.cfg.StaleClaimAge).Return(int64(0), nil)
	s.queue.EXPECT().ListEligible(ctx).Return(drafts, nil)

	gomock.InOrder(
		s.queue.EXPECT().Claim(ctx, drafts[0].ID).Return(domain.ErrDraftNotEligible),
		s.queue.EXPECT().Claim(ctx, drafts[1].ID).Return(nil),
		s.platform.EXPECT().Post(ctx, "token-abc", drafts[1].Content).Return("post-b", nil),
		s.queue.EXPECT().MarkPublished(ctx, drafts[1].ID, "post-b", gomock.Any()).Return(nil),
		s.events.EXPECT().PublishResult(ctx, gomock.Any()).Return(nil),
	)

	stats, err := s.service.PublishAll(ctx)

	s.NoError(err)
	s.Equal(1, stats.Attempted)
	s.Equal(1, stats.Published)
	s.Equal(1, stats.Skipped)
}

func (s *PublishServiceTestSuite) TestPublishAll_QueueWriteFailureAborts() {
	ctx := context.Background()
	drafts := eligibleDrafts(2)

	s.creds.EXPECT().Load(ctx).Return(validCredential(), nil)
	s.queue.EXPECT().RequeueStale(ctx, s.cfg.StaleClaimAge).Return(int64(0), nil)
	s.queue.EXPECT().ListEligible(ctx).Return(drafts, nil)

	s.queue.EXPECT().Claim(ctx, drafts[0].ID).Return(nil)
	s.platform.EXPECT().Post(ctx, "token-abc", drafts[0].Content).Return("post-a", nil)
	s.queue.EXPECT().MarkPublished(ctx, drafts[0].ID, "post-a", gomock.Any()).
		Return(errors.New("connection reset"))

	stats, err := s.service.PublishAll(ctx)

	s.Error(err)
	s.Contains(err.Error(), "mark draft published")
	s.Equal(0, stats.Attempted)
}

func (s *PublishServiceTestSuite) TestPublishAll_EventFailureIgnored() {
	ctx := context.Background()
	drafts := eligibleDrafts(1)

	s.creds.EXPECT().Load(ctx).Return(validCredential(), nil)
	s.queue.EXPECT().RequeueStale(ctx, s.cfg.StaleClaimAge).Return(int64(0), nil)
	s.queue.EXPECT().ListEligible(ctx).Return(drafts, nil)

	s.queue.EXPECT().Claim(ctx, drafts[0].ID).Return(nil)
	s.platform.EXPECT().Post(ctx, "token-abc", drafts[0].Content).Return("post-a", nil)
	s.queue.EXPECT().MarkPublished(ctx, drafts[0].ID, "post-a", gomock.Any()).Return(nil)
	s.events.EXPECT().PublishResult(ctx, gomock.Any()).Return(errors.New("broker gone"))

	stats, err := s.service.PublishAll(ctx)

	s.NoError(err)
	s.Equal(1, stats.Published)
}

func (s *PublishServiceTestSuite) TestPublishAll_NilEventPublisher() {
	ctx := context.Background()
	drafts := eligibleDrafts(1)

	service := NewPublishService(s.creds, s.queue, s.platform, nil, s.delayer, s.logger, s.cfg)

	s.creds.EXPECT().Load(ctx).Return(validCredential(), nil)
	s.queue.EXPECT().RequeueStale(ctx, s.cfg.StaleClaimAge).Return(int64(0), nil)
	s.queue.EXPECT().ListEligible(ctx).Return(drafts, nil)

	s.queue.EXPECT().Claim(ctx, drafts[0].ID).Return(nil)
	s.platform.EXPECT().Post(ctx, "token-abc", drafts[0].Content).Return("post-a", nil)
	s.queue.EXPECT().MarkPublished(ctx, drafts[0].ID, "post-a", gomock.Any()).Return(nil)

	stats, err := service.PublishAll(ctx)

	s.NoError(err)
	s.Equal(1, stats.Published)
}

func (s *PublishServiceTestSuite) TestPublishNext_Success() {
	ctx := context.Background()
	drafts := eligibleDrafts(2)

	s.creds.EXPECT().Load(ctx).Return(validCredential(), nil)
	s.queue.EXPECT().RequeueStale(ctx, s.cfg.StaleClaimAge).Return(int64(0), nil)
	s.queue.EXPECT().ListEligible(ctx).Return(drafts, nil)

	s.queue.EXPECT().Claim(ctx, drafts[0].ID).Return(nil)
	s.platform.EXPECT().Post(ctx, "token-abc", drafts[0].Content).Return("post-a", nil)
	s.queue.EXPECT().MarkPublished(ctx, drafts[0].ID, "post-a", gomock.Any()).Return(nil)
	s.events.EXPECT().PublishResult(ctx, gomock.Any()).Return(nil)

	draft, err := s.service.PublishNext(ctx)

	s.NoError(err)
	s.Equal(drafts[0].ID, draft.ID)
	s.Equal(domain.StatusPublished, draft.Status)
	s.Require().NotNil(draft.ExternalPostID)
	s.Equal("post-a", *draft.ExternalPostID)
	s.NotNil(draft.PublishedAt)
	s.Nil(draft.Error)
}

func (s *PublishServiceTestSuite) TestPublishNext_FailureRecordedOnDraft() {
	ctx := context.Background()
	drafts := eligibleDrafts(1)

	s.creds.EXPECT().Load(ctx).Return(validCredential(), nil)
	s.queue.EXPECT().RequeueStale(ctx, s.cfg.StaleClaimAge).Return(int64(0), nil)
	s.queue.EXPECT().ListEligible(ctx).Return(drafts, nil)

	s.queue.EXPECT().Claim(ctx, drafts[0].ID).Return(nil)
	s.platform.EXPECT().Post(ctx, "token-abc", drafts[0].Content).
		Return("", errors.New("linkedin api: duplicate (status 422, code 100)"))
	s.queue.EXPECT().MarkFailed(ctx, drafts[0].ID, "linkedin api: duplicate (status 422, code 100)").Return(nil)
	s.events.EXPECT().PublishResult(ctx, gomock.Any()).Return(nil)

	draft, err := s.service.PublishNext(ctx)

	s.NoError(err)
	s.Equal(domain.StatusFailed, draft.Status)
	s.Require().NotNil(draft.Error)
	s.Contains(*draft.Error, "duplicate")
	s.Nil(draft.ExternalPostID)
	s.Nil(draft.PublishedAt)
}

func (s *PublishServiceTestSuite) TestPublishNext_EmptyQueue() {
	ctx := context.Background()

	s.creds.EXPECT().Load(ctx).Return(validCredential(), nil)
	s.queue.EXPECT().RequeueStale(ctx, s.cfg.StaleClaimAge).Return(int64(0), nil)
	s.queue.EXPECT().ListEligible(ctx).Return(nil, nil)

	draft, err := s.service.PublishNext(ctx)

	s.ErrorIs(err, domain.ErrNoEligibleDrafts)
	s.Nil(draft)
}

func (s *PublishServiceTestSuite) TestPublishNext_NoCredentialNoCalls() {
	ctx := context.Background()

	s.creds.EXPECT().Load(ctx).Return(nil, nil)

	draft, err := s.service.PublishNext(ctx)

	s.ErrorIs(err, domain.ErrAuthRequired)
	s.Nil(draft)
}

func (s *PublishServiceTestSuite) TestPublishNext_AllClaimsLost() {
	ctx := context.Background()
	drafts := eligibleDrafts(2)

	s.creds.EXPECT().Load(ctx).Return(validCredential(), nil)
	s.queue.EXPECT().RequeueStale(ctx, s.cfg.StaleClaimAge).Return(int64(0), nil)
	s.queue.EXPECT().ListEligible(ctx).Return(drafts, nil)

	s.queue.EXPECT().Claim(ctx, drafts[0].ID).Return(domain.ErrDraftNotEligible)
	s.queue.EXPECT().Claim(ctx, drafts[1].ID).Return(domain.ErrDraftNotEligible)

	draft, err := s.service.PublishNext(ctx)

	s.ErrorIs(err, domain.ErrNoEligibleDrafts)
	s.Nil(draft)
}

func (s *PublishServiceTestSuite) TestPublishAll_StaleClaimsRequeued() {
	ctx := context.Background()

	s.creds.EXPECT().Load(ctx).Return(validCredential(), nil)
	s.queue.EXPECT().RequeueStale(ctx, s.cfg.StaleClaimAge).Return(int64(2), nil)
	s.queue.EXPECT().ListEligible(ctx).Return(nil, nil)

	stats, err := s.service.PublishAll(ctx)

	s.NoError(err)
	s.Equal(0, stats.Attempted)
}

func (s *PublishServiceTestSuite) TestPublishAll_DelayCancellationStopsBatch() {
	ctx := context.Background()
	drafts := eligibleDrafts(2)

	s.creds.EXPECT().Load(ctx).Return(validCredential(), nil)
	s.queue.EXPECT().RequeueStale(ctx, s.cfg.StaleClaimAge).Return(int64(0), nil)
	s.queue.EXPECT().ListEligible(ctx).Return(drafts, nil)

	s.queue.EXPECT().Claim(ctx, drafts[0].ID).Return(nil)
	s.platform.EXPECT().Post(ctx, "token-abc", drafts[0].Content).Return("post-a", nil)
	s.queue.EXPECT().MarkPublished(ctx, drafts[0].ID, "post-a", gomock.Any()).Return(nil)
	s.events.EXPECT().PublishResult(ctx, gomock.Any()).Return(nil)
	s.delayer.EXPECT().Wait(ctx, s.cfg.InterPostDelay).Return(context.Canceled)

	stats, err := s.service.PublishAll(ctx)

	s.ErrorIs(err, context.Canceled)
	s.Equal(1, stats.Published)
}
