package domain

import "errors"

var (
	// ErrAuthRequired aborts a publisher run before any draft mutation:
	// no credential is present, or the stored one is expired or unreadable.
	ErrAuthRequired = errors.New("authentication required")

	// ErrNoEligibleDrafts means the queue holds nothing in draft status.
	ErrNoEligibleDrafts = errors.New("no eligible drafts")

	// ErrCredentialUnavailable wraps an unreadable or corrupt credential
	// store. Callers treat it as "must re-authenticate".
	ErrCredentialUnavailable = errors.New("credential store unavailable")

	// ErrDraftNotEligible is returned when a claim races another run or
	// targets a draft that already reached a terminal status.
	ErrDraftNotEligible = errors.New("draft not eligible")
)
