// Package report pulls aggregate performance numbers for published
// drafts. It is read-only: nothing here mutates the queue.
package report

import (
	"context"
	"fmt"
	"log/slog"

	"social_publisher/internal/domain"
)

type PublishedLister interface {
	ListPublished(ctx context.Context) ([]domain.Draft, error)
}

type StatsFetcher interface {
	SocialActions(ctx context.Context, accessToken, postID string) (*domain.SocialCounts, error)
}

type CredentialLoader interface {
	Load(ctx context.Context) (*domain.Credential, error)
}

type Reporter struct {
	creds    CredentialLoader
	drafts   PublishedLister
	platform StatsFetcher
	logger   *slog.Logger
}

func New(creds CredentialLoader, drafts PublishedLister, platform StatsFetcher, logger *slog.Logger) *Reporter {
	return &Reporter{
		creds:    creds,
		drafts:   drafts,
		platform: platform,
		logger:   logger,
	}
}

// Run fetches engagement counts for every published draft and logs them.
// A fetch failure for one post is logged and does not stop the rest.
func (r *Reporter) Run(ctx context.Context) error {
	cred, err := r.creds.Load(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrAuthRequired, err)
	}
	if !cred.Valid() {
		return domain.ErrAuthRequired
	}

	drafts, err := r.drafts.ListPublished(ctx)
	if err != nil {
		return fmt.Errorf("list published drafts: %w", err)
	}

	r.logger.Info("reporting on published drafts", "count", len(drafts))

	for i := range drafts {
		draft := &drafts[i]
		if draft.ExternalPostID == nil {
			continue
		}

		counts, err := r.platform.SocialActions(ctx, cred.AccessToken, *draft.ExternalPostID)
		if err != nil {
			r.logger.Warn("fetch social actions failed",
				"draft_id", draft.ID,
				"post_id", *draft.ExternalPostID,
				"error", err,
			)
			continue
		}

		r.logger.Info("post performance",
			"draft_id", draft.ID,
			"post_id", counts.PostID,
			"likes", counts.Likes,
			"comments", counts.Comments,
			"published_at", draft.PublishedAt,
		)
	}

	return nil
}
