package model

import "time"

// SourceCredibility is the running trust score for a news source,
// an exponentially-weighted agreement rate with story consensus.
// Score stays in [0,1]; updates are incremental so memory is bounded
// regardless of history length.
type SourceCredibility struct {
	Source    string    `json:"source"`
	Score     float64   `json:"score"`   // Agreement with consensus, EWMA
	Samples   int       `json:"samples"` // Number of consensus comparisons observed
	UpdatedAt time.Time `json:"updated_at"`
}
