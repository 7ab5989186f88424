package extract

import (
	"context"
	"strings"

	"github.com/veracitylab/veracity/internal/model"
)

// HeuristicExtractor extracts claims by keyword matching over
// sentences. It never fails, which makes it the fallback when no LLM
// extractor is configured.
type HeuristicExtractor struct {
	keywords    []string
	maxClaims   int
	minSentence int
	maxSentence int
}

// NewHeuristicExtractor creates a heuristic extractor bounded by the
// extraction configuration.
func NewHeuristicExtractor(cfg model.ExtractionConfig) *HeuristicExtractor {
	maxClaims := cfg.MaxClaims
	if maxClaims <= 0 {
		maxClaims = 10
	}
	minSentence := cfg.MinSentence
	if minSentence <= 0 {
		minSentence = 30
	}
	maxSentence := cfg.MaxSentence
	if maxSentence <= 0 {
		maxSentence = 500
	}

	return &HeuristicExtractor{
		keywords: []string{
			"raised", "acquired", "announced", "launched", "reported",
			"according to", "confirmed", "denied", "said", "estimates",
			"first", "founded", "created", "discovered", "introduced",
			"killed", "injured", "elected", "signed", "approved",
			"percent", "million", "billion",
		},
		maxClaims:   maxClaims,
		minSentence: minSentence,
		maxSentence: maxSentence,
	}
}

// Extract extracts claims from plain article text
func (e *HeuristicExtractor) Extract(_ context.Context, text string) ([]model.Claim, error) {
	sentences := splitSentences(text, e.minSentence, e.maxSentence)

	var claims []model.Claim
	for _, s := range sentences {
		if len(claims) >= e.maxClaims {
			break
		}
		lower := strings.ToLower(s.text)
		for _, keyword := range e.keywords {
			if strings.Contains(lower, keyword) {
				claims = append(claims, model.Claim{
					Text:      s.text,
					Start:     s.start,
					End:       s.end,
					Index:     len(claims),
					Heuristic: "keyword:" + keyword,
				})
				break // Only match once per sentence
			}
		}
	}

	return dedupeClaims(claims), nil
}

// dedupeClaims removes duplicate claims by text
func dedupeClaims(claims []model.Claim) []model.Claim {
	seen := make(map[string]bool)
	var unique []model.Claim

	for _, claim := range claims {
		key := strings.ToLower(claim.Text)
		if !seen[key] {
			seen[key] = true
			claim.Index = len(unique)
			unique = append(unique, claim)
		}
	}

	return unique
}
