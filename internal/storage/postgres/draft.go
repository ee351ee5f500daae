package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"social_publisher/internal/domain"
)

type DraftStore struct {
	db *sqlx.DB
}

func NewDraftStore(db *sqlx.DB) *DraftStore {
	return &DraftStore{db: db}
}

func (s *DraftStore) Insert(ctx context.Context, draft *domain.Draft) error {
	query := `
		INSERT INTO drafts (id, content, status, created_at, updated_at)
		VALUES ($1, $2, $3, NOW(), NOW())`

	_, err := GetExecutor(ctx, s.db).ExecContext(ctx, query, draft.ID, draft.Content, domain.StatusDraft)
	if err != nil {
		return fmt.Errorf("insert draft: %w", err)
	}
	return nil
}

// ListEligible returns all drafts still in draft status, in insertion order.
func (s *DraftStore) ListEligible(ctx context.Context) ([]domain.Draft, error) {
	query := `
		SELECT id, content, status, published_at, external_post_id, error, created_at, updated_at
		FROM drafts
		WHERE status = $1
		ORDER BY created_at, id`

	var drafts []domain.Draft
	err := s.db.SelectContext(ctx, &drafts, query, domain.StatusDraft)
	return drafts, err
}

// List returns every draft regardless of status, in insertion order.
func (s *DraftStore) List(ctx context.Context) ([]domain.Draft, error) {
	query := `
		SELECT id, content, status, published_at, external_post_id, error, created_at, updated_at
		FROM drafts
		ORDER BY created_at, id`

	var drafts []domain.Draft
	err := s.db.SelectContext(ctx, &drafts, query)
	return drafts, err
}

// ListPublished returns terminally published drafts, oldest first.
func (s *DraftStore) ListPublished(ctx context.Context) ([]domain.Draft, error) {
	query := `
		SELECT id, content, status, published_at, external_post_id, error, created_at, updated_at
		FROM drafts
		WHERE status = $1
		ORDER BY published_at, id`

	var drafts []domain.Draft
	err := s.db.SelectContext(ctx, &drafts, query, domain.StatusPublished)
	return drafts, err
}

// Claim atomically moves a draft into publishing status. The WHERE guard
// makes the claim exclusive: a concurrent run that already took the draft
// leaves zero rows affected and the caller gets domain.ErrDraftNotEligible.
func (s *DraftStore) Claim(ctx context.Context, id string) error {
	query := `
		UPDATE drafts
		SET status = $1, updated_at = NOW()
		WHERE id = $2 AND status = $3`

	res, err := GetExecutor(ctx, s.db).ExecContext(ctx, query, domain.StatusPublishing, id, domain.StatusDraft)
	if err != nil {
		return fmt.Errorf("claim draft: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("claim draft: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("claim draft %s: %w", id, domain.ErrDraftNotEligible)
	}
	return nil
}

// MarkPublished records the terminal published outcome for a claimed draft.
func (s *DraftStore) MarkPublished(ctx context.Context, id, externalPostID string, publishedAt time.Time) error {
	query := `
		UPDATE drafts
		SET status = $1, external_post_id = $2, published_at = $3, error = NULL, updated_at = NOW()
		WHERE id = $4 AND status = $5`

	res, err := GetExecutor(ctx, s.db).ExecContext(ctx, query,
		domain.StatusPublished, externalPostID, publishedAt, id, domain.StatusPublishing,
	)
	if err != nil {
		return fmt.Errorf("mark published: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark published: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("mark published %s: %w", id, domain.ErrDraftNotEligible)
	}
	return nil
}

// MarkFailed records the terminal failed outcome for a claimed draft.
func (s *DraftStore) MarkFailed(ctx context.Context, id, message string) error {
	query := `
		UPDATE drafts
		SET status = $1, error = $2, external_post_id = NULL, published_at = NULL, updated_at = NOW()
		WHERE id = $3 AND status = $4`

	res, err := GetExecutor(ctx, s.db).ExecContext(ctx, query,
		domain.StatusFailed, message, id, domain.StatusPublishing,
	)
	if err != nil {
		return fmt.Errorf("mark failed: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark failed: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("mark failed %s: %w", id, domain.ErrDraftNotEligible)
	}
	return nil
}

// RequeueStale returns publishing drafts older than the cutoff to draft
// status. Covers claims left behind by a run that crashed mid-publish.
func (s *DraftStore) RequeueStale(ctx context.Context, olderThan time.Duration) (int64, error) {
	query := `
		UPDATE drafts
		SET status = $1, updated_at = NOW()
		WHERE status = $2 AND updated_at < $3`

	cutoff := time.Now().Add(-olderThan)
	res, err := s.db.ExecContext(ctx, query, domain.StatusDraft, domain.StatusPublishing, cutoff)
	if err != nil {
		return 0, fmt.Errorf("requeue stale drafts: %w", err)
	}
	return res.RowsAffected()
}
