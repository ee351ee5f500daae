package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"social_publisher/internal/config"
	"social_publisher/internal/domain"
)

// SleepDelayer is the production Delayer; it honors ctx cancellation.
type SleepDelayer struct{}

func (SleepDelayer) Wait(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

// PublishService drains eligible drafts to the external platform one at a
// time, recording each outcome durably before touching the next item.
type PublishService struct {
	creds    CredentialStore
	queue    DraftQueue
	platform Platform
	events   EventPublisher
	delayer  Delayer
	logger   *slog.Logger
	config   config.PublishConfig
}

func NewPublishService(
	creds CredentialStore,
	queue DraftQueue,
	platform Platform,
	events EventPublisher,
	delayer Delayer,
	logger *slog.Logger,
	cfg config.PublishConfig,
) *PublishService {
	return &PublishService{
		creds:    creds,
		queue:    queue,
		platform: platform,
		events:   events,
		delayer:  delayer,
		logger:   logger,
		config:   cfg,
	}
}

// PublishAll processes every eligible draft in queue order. A single
// publish failure is recorded on that draft and does not abort the batch;
// a missing or expired credential aborts before any draft is touched.
func (s *PublishService) PublishAll(ctx context.Context) (*domain.PublishStats, error) {
	startTime := time.Now()

	cred, err := s.loadCredential(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.recoverStale(ctx); err != nil {
		return nil, err
	}

	drafts, err := s.queue.ListEligible(ctx)
	if err != nil {
		return nil, fmt.Errorf("list eligible drafts: %w", err)
	}

	s.logger.Info("starting publish run", "eligible", len(drafts))

	stats := &domain.PublishStats{}

	for i := range drafts {
		draft := &drafts[i]

		if err := s.queue.Claim(ctx, draft.ID); err != nil {
			if errors.Is(err, domain.ErrDraftNotEligible) {
				s.logger.Warn("draft claimed elsewhere, skipping", "draft_id", draft.ID)
				stats.Skipped++
				continue
			}
			return stats, fmt.Errorf("claim draft: %w", err)
		}

		if err := s.publishOne(ctx, cred, draft); err != nil {
			return stats, err
		}

		stats.Attempted++
		if draft.Status == domain.StatusPublished {
			stats.Published++
		} else {
			stats.Failed++
		}

		if i < len(drafts)-1 {
			if err := s.delayer.Wait(ctx, s.config.InterPostDelay); err != nil {
				return stats, fmt.Errorf("inter-post delay: %w", err)
			}
		}
	}

	stats.Duration = time.Since(startTime)

	s.logger.Info("publish run completed",
		"attempted", stats.Attempted,
		"published", stats.Published,
		"failed", stats.Failed,
		"skipped", stats.Skipped,
		"duration", stats.Duration,
	)

	return stats, nil
}

// PublishNext processes a single draft, the oldest eligible one. Returns
// domain.ErrNoEligibleDrafts when the queue holds nothing in draft status.
func (s *PublishService) PublishNext(ctx context.Context) (*domain.Draft, error) {
	cred, err := s.loadCredential(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.recoverStale(ctx); err != nil {
		return nil, err
	}

	drafts, err := s.queue.ListEligible(ctx)
	if err != nil {
		return nil, fmt.Errorf("list eligible drafts: %w", err)
	}

	for i := range drafts {
		draft := &drafts[i]

		if err := s.queue.Claim(ctx, draft.ID); err != nil {
			if errors.Is(err, domain.ErrDraftNotEligible) {
				s.logger.Warn("draft claimed elsewhere, skipping", "draft_id", draft.ID)
				continue
			}
			return nil, fmt.Errorf("claim draft: %w", err)
		}

		if err := s.publishOne(ctx, cred, draft); err != nil {
			return nil, err
		}
		return draft, nil
	}

	return nil, domain.ErrNoEligibleDrafts
}

// publishOne runs a single attempt for a claimed draft. The outcome is
// persisted before returning; only queue failures propagate.
func (s *PublishService) publishOne(ctx context.Context, cred *domain.Credential, draft *domain.Draft) error {
	postID, err := s.platform.Post(ctx, cred.AccessToken, draft.Content)
	if err != nil {
		message := err.Error()
		s.logger.Warn("publish failed", "draft_id", draft.ID, "error", message)

		if err := s.queue.MarkFailed(ctx, draft.ID, message); err != nil {
			return fmt.Errorf("mark draft failed: %w", err)
		}

		draft.Status = domain.StatusFailed
		draft.Error = &message
		draft.ExternalPostID = nil
		draft.PublishedAt = nil
	} else {
		publishedAt := time.Now().UTC()

		if err := s.queue.MarkPublished(ctx, draft.ID, postID, publishedAt); err != nil {
			return fmt.Errorf("mark draft published: %w", err)
		}

		draft.Status = domain.StatusPublished
		draft.ExternalPostID = &postID
		draft.PublishedAt = &publishedAt
		draft.Error = nil

		s.logger.Info("published draft", "draft_id", draft.ID, "post_id", postID)
	}

	s.emitResult(ctx, draft)

	return nil
}

func (s *PublishService) loadCredential(ctx context.Context) (*domain.Credential, error) {
	cred, err := s.creds.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrAuthRequired, err)
	}
	if !cred.Valid() {
		return nil, domain.ErrAuthRequired
	}
	return cred, nil
}

func (s *PublishService) recoverStale(ctx context.Context) error {
	requeued, err := s.queue.RequeueStale(ctx, s.config.StaleClaimAge)
	if err != nil {
		return fmt.Errorf("requeue stale drafts: %w", err)
	}
	if requeued > 0 {
		s.logger.Warn("requeued stale in-flight drafts", "count", requeued)
	}
	return nil
}

// emitResult is best-effort: the draft's durable state is already
// recorded, so an event failure is logged and swallowed.
func (s *PublishService) emitResult(ctx context.Context, draft *domain.Draft) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishResult(ctx, draft); err != nil {
		s.logger.Warn("emit draft event failed", "draft_id", draft.ID, "error", err)
	}
}
