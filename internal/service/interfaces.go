package service

//go:generate mockgen -source=interfaces.go -destination=mocks/mocks.go -package=mocks

import (
	"context"
	"time"

	"social_publisher/internal/domain"
)

type CredentialStore interface {
	Load(ctx context.Context) (*domain.Credential, error)
	Save(ctx context.Context, cred *domain.Credential) error
}

type DraftQueue interface {
	ListEligible(ctx context.Context) ([]domain.Draft, error)
	Claim(ctx context.Context, id string) error
	MarkPublished(ctx context.Context, id, externalPostID string, publishedAt time.Time) error
	MarkFailed(ctx context.Context, id, message string) error
	RequeueStale(ctx context.Context, olderThan time.Duration) (int64, error)
}

type Platform interface {
	Post(ctx context.Context, accessToken, content string) (string, error)
}

type EventPublisher interface {
	PublishResult(ctx context.Context, draft *domain.Draft) error
	Close() error
}

// Delayer paces multi-item batches to respect platform rate limits.
type Delayer interface {
	Wait(ctx context.Context, d time.Duration) error
}
