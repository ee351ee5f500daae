package domain

import "time"

// PublishStats holds statistics about a publisher run.
type PublishStats struct {
	Attempted int
	Published int
	Failed    int
	Skipped   int
	Duration  time.Duration
}
