package model

import "time"

// Label is a verification judgment on a claim or an article
type Label string

const (
	LabelSupported    Label = "supported"
	LabelContradicted Label = "contradicted"
	LabelUnverifiable Label = "unverifiable"
)

// Rating bands an aggregate label and confidence into a human-facing
// overall rating
type Rating string

const (
	RatingTrue        Rating = "true"
	RatingMostlyTrue  Rating = "mostly_true"
	RatingMixed       Rating = "mixed"
	RatingMostlyFalse Rating = "mostly_false"
	RatingFalse       Rating = "false"
)

// VerificationVerdict is one provider's judgment on one claim.
// Created per provider call and never mutated; retained for audit.
type VerificationVerdict struct {
	ClaimKey   string        `json:"claim_key"`  // model.Claim.Key() of the claim judged
	ClaimIndex int           `json:"claim_index"`
	Provider   string        `json:"provider"`
	Label      Label         `json:"label"`
	Confidence float64       `json:"confidence"` // Raw provider confidence in [0,1]
	Latency    time.Duration `json:"latency_ms"`
	Retried    bool          `json:"retried,omitempty"`    // Verdict came from the timeout retry
	Failed     bool          `json:"failed"`               // Provider call failed; verdict is a non-vote
	Error      string        `json:"error,omitempty"`
	CreatedAt  time.Time     `json:"created_at"`
}

// ClaimVerdict is the reconciled per-claim outcome after the weighted vote
type ClaimVerdict struct {
	Claim        Claim                 `json:"claim"`
	Label        Label                 `json:"label"`
	Confidence   float64               `json:"confidence"`
	Disagreement bool                  `json:"disagreement"` // Providers split between supported and contradicted
	Verdicts     []VerificationVerdict `json:"verdicts"`     // All contributing provider verdicts, failures included
}

// FactCheckResult is the reconciled, article-level verification outcome.
// A re-run creates a new result; prior results are retained for audit.
type FactCheckResult struct {
	ID           string         `json:"id"`
	ArticleID    string         `json:"article_id"`
	Label        Label          `json:"label"`
	Confidence   float64        `json:"confidence"` // Aggregate confidence in [0,1]
	Rating       Rating         `json:"rating"`
	Disagreement bool           `json:"disagreement"`
	Claims       []ClaimVerdict `json:"claims"`

	ModelsUsed       []string      `json:"models_used,omitempty"` // Provider names that contributed votes
	Flags            []string      `json:"flags,omitempty"`       // Operational flags raised during the pass
	NeedsHumanReview bool          `json:"needs_human_review"`
	Retries          int           `json:"retries,omitempty"` // Timeout retries spent across all provider calls
	ProcessingTime   time.Duration `json:"processing_time_ms"`
	CreatedAt        time.Time     `json:"created_at"`
}

// RatingFor maps an aggregate label and confidence to a rating band.
func RatingFor(label Label, confidence float64) Rating {
	switch label {
	case LabelSupported:
		if confidence >= 0.75 {
			return RatingTrue
		}
		return RatingMostlyTrue
	case LabelContradicted:
		if confidence >= 0.75 {
			return RatingFalse
		}
		return RatingMostlyFalse
	default:
		return RatingMixed
	}
}
