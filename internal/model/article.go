package model

import "time"

// ArticleState tracks where an article is in the processing pipeline
type ArticleState string

const (
	StatePending          ArticleState = "pending"           // Ingested, not yet verified
	StateExtractionFailed ArticleState = "extraction_failed" // Claim extraction unavailable; correlation only
	StateVerified         ArticleState = "verified"          // Verification pass completed
	StateUnverifiable     ArticleState = "unverifiable"      // Verification completed with no usable verdicts
)

// Article is a crawled news article as delivered by the ingestion
// collaborator. Identity fields (ID, Source, URL, RetrievedAt) are
// immutable; State, Claims and Fingerprint are written by the engine.
type Article struct {
	ID          string       `json:"id"`           // Stable unique identifier from the crawler
	Source      string       `json:"source"`       // News source identity (e.g., "reuters.com")
	URL         string       `json:"url"`          // Source URL
	Title       string       `json:"title,omitempty"`
	Body        string       `json:"body"`         // Raw article text (may contain HTML)
	PublishedAt time.Time    `json:"published_at"` // Publication timestamp from the source
	RetrievedAt time.Time    `json:"retrieved_at"` // When the crawler fetched it

	State       ArticleState `json:"state,omitempty"`
	Claims      []Claim      `json:"claims,omitempty"`
	Fingerprint *Fingerprint `json:"fingerprint,omitempty"`
}

// Fingerprint is a compact content signature computed once at ingestion.
// SimHash catches syndicated/near-duplicate copies cheaply; Keywords
// drive topical similarity for non-duplicates.
type Fingerprint struct {
	SimHash  uint64   `json:"simhash"`
	Keywords []string `json:"keywords"`
}
