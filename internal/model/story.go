package model

import "time"

// StoryStatus indicates the lifecycle state of a story cluster
type StoryStatus string

const (
	StoryActive StoryStatus = "active" // Still receiving coverage
	StoryStale  StoryStatus = "stale"  // No new members within the trailing window
)

// TimelineEntry is one article's appearance on a story timeline,
// ordered by publication timestamp (ingestion timestamp breaks ties).
type TimelineEntry struct {
	ArticleID   string    `json:"article_id"`
	Source      string    `json:"source"`
	PublishedAt time.Time `json:"published_at"`
	RetrievedAt time.Time `json:"retrieved_at"`
	ClaimDelta  []string  `json:"claim_delta,omitempty"` // Claims this article adds over earlier coverage
}

// Story is a cluster of articles believed to cover the same real-world
// event. Membership only grows; merge/split is an administrative
// operation outside the core engine.
type Story struct {
	ID        string          `json:"id"`
	CreatedAt time.Time       `json:"created_at"`
	Status    StoryStatus     `json:"status"`
	Members   []string        `json:"members"`  // Article identifiers, join order
	Timeline  []TimelineEntry `json:"timeline"` // Publication order

	ConsensusLabel      Label   `json:"consensus_label"`
	ConsensusConfidence float64 `json:"consensus_confidence"` // Credibility-weighted aggregate
	Velocity            float64 `json:"velocity"`             // Members per hour since creation
}

// FirstPublished returns the earliest publication timestamp on the
// timeline, or the zero time for an empty story.
func (s *Story) FirstPublished() time.Time {
	if len(s.Timeline) == 0 {
		return time.Time{}
	}
	return s.Timeline[0].PublishedAt
}

// LastPublished returns the latest publication timestamp on the timeline.
func (s *Story) LastPublished() time.Time {
	if len(s.Timeline) == 0 {
		return time.Time{}
	}
	return s.Timeline[len(s.Timeline)-1].PublishedAt
}
