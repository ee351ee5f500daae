package domain

// SocialCounts holds aggregate engagement numbers for a published post.
type SocialCounts struct {
	PostID   string
	Likes    int
	Comments int
}
