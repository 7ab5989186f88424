// Package similarity scores article pairs by content fingerprint:
// cheap locality-sensitive hashing for near-duplicates, keyword overlap
// for topical similarity.
package similarity

import (
	"math/bits"

	"github.com/veracitylab/veracity/internal/model"
)

// Engine computes pairwise similarity scores in [0,1]
type Engine struct {
	cfg model.SimilarityConfig
}

// NewEngine creates a similarity engine
func NewEngine(cfg model.SimilarityConfig) *Engine {
	if cfg.DuplicateThreshold <= 0 {
		cfg.DuplicateThreshold = 0.9
	}
	if cfg.HashWeight <= 0 && cfg.KeywordWeight <= 0 {
		cfg.HashWeight = 0.4
		cfg.KeywordWeight = 0.6
	}
	return &Engine{cfg: cfg}
}

// Score compares two fingerprints. A hash similarity at or above the
// duplicate threshold short-circuits: syndicated copies do not need a
// topical comparison.
func (e *Engine) Score(a, b *model.Fingerprint) float64 {
	if a == nil || b == nil {
		return 0
	}

	hs := hashSimilarity(a.SimHash, b.SimHash)
	if hs >= e.cfg.DuplicateThreshold {
		return hs
	}

	ks := jaccard(a.Keywords, b.Keywords)
	total := e.cfg.HashWeight + e.cfg.KeywordWeight
	return (e.cfg.HashWeight*hs + e.cfg.KeywordWeight*ks) / total
}

// IsDuplicate reports whether two fingerprints are near-duplicates
func (e *Engine) IsDuplicate(a, b *model.Fingerprint) bool {
	if a == nil || b == nil {
		return false
	}
	return hashSimilarity(a.SimHash, b.SimHash) >= e.cfg.DuplicateThreshold
}

// hashSimilarity is the fraction of matching bits between two simhashes
func hashSimilarity(h1, h2 uint64) float64 {
	return float64(64-bits.OnesCount64(h1^h2)) / 64.0
}

// jaccard computes keyword set overlap
func jaccard(a, b []string) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	set := make(map[string]bool, len(a))
	for _, w := range a {
		set[w] = true
	}

	var intersection int
	for _, w := range b {
		if set[w] {
			intersection++
		}
	}

	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}
