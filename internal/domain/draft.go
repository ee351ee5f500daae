package domain

import "time"

// DraftStatus is the lifecycle status of a draft.
type DraftStatus string

const (
	// StatusDraft marks a draft that has not been attempted yet.
	StatusDraft DraftStatus = "draft"
	// StatusPublishing marks a draft claimed by a running publisher.
	StatusPublishing DraftStatus = "publishing"
	// StatusPublished and StatusFailed are terminal.
	StatusPublished DraftStatus = "published"
	StatusFailed    DraftStatus = "failed"
)

// Draft is a content item awaiting publication. Terminal drafts carry
// exactly one of {PublishedAt+ExternalPostID, Error}, matching Status.
type Draft struct {
	ID             string      `db:"id"`
	Content        string      `db:"content"`
	Status         DraftStatus `db:"status"`
	PublishedAt    *time.Time  `db:"published_at"`
	ExternalPostID *string     `db:"external_post_id"`
	Error          *string     `db:"error"`
	CreatedAt      time.Time   `db:"created_at"`
	UpdatedAt      time.Time   `db:"updated_at"`
}

// Terminal reports whether the draft can never be reprocessed.
func (d *Draft) Terminal() bool {
	return d.Status == StatusPublished || d.Status == StatusFailed
}
