package similarity

import (
	"sort"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/veracitylab/veracity/internal/model"
)

// candidateEntry is the slice of an article the index needs for scoring
type candidateEntry struct {
	id          string
	source      string
	fingerprint *model.Fingerprint
	publishedAt time.Time
	retrievedAt time.Time
}

// Candidate is a recent article scored against a new arrival
type Candidate struct {
	ArticleID   string
	Source      string
	Score       float64
	PublishedAt time.Time
	RetrievedAt time.Time
}

// CandidateIndex keeps fingerprints of recently ingested articles in a
// TTL cache so a new article is compared against a bounded trailing
// window rather than the full corpus.
type CandidateIndex struct {
	cache *gocache.Cache

	mu     sync.RWMutex
	window time.Duration
}

// NewCandidateIndex creates an index with the given trailing window
func NewCandidateIndex(window time.Duration) *CandidateIndex {
	if window <= 0 {
		window = 72 * time.Hour
	}
	return &CandidateIndex{
		cache:  gocache.New(window, 10*time.Minute),
		window: window,
	}
}

// SetWindow changes the trailing window for subsequent additions.
// Entries already in the index keep the expiry they were added with.
func (ix *CandidateIndex) SetWindow(window time.Duration) {
	if window <= 0 {
		window = 72 * time.Hour
	}
	ix.mu.Lock()
	ix.window = window
	ix.mu.Unlock()
}

// Add registers an article in the candidate window. Re-adding the same
// identifier refreshes its expiry.
func (ix *CandidateIndex) Add(article *model.Article) {
	if article.Fingerprint == nil {
		return
	}
	ix.mu.RLock()
	window := ix.window
	ix.mu.RUnlock()
	ix.cache.Set(article.ID, candidateEntry{
		id:          article.ID,
		source:      article.Source,
		fingerprint: article.Fingerprint,
		publishedAt: article.PublishedAt,
		retrievedAt: article.RetrievedAt,
	}, window)
}

// CandidatesFor scores an article against the current window, returning
// matches at or above minScore sorted by descending score. A failed
// comparison against any single candidate is isolated, not fatal: a nil
// fingerprint simply scores zero.
func (ix *CandidateIndex) CandidatesFor(article *model.Article, engine *Engine, minScore float64) []Candidate {
	if article.Fingerprint == nil {
		return nil
	}

	var out []Candidate
	for id, item := range ix.cache.Items() {
		if id == article.ID {
			continue
		}
		entry, ok := item.Object.(candidateEntry)
		if !ok {
			continue
		}
		score := engine.Score(article.Fingerprint, entry.fingerprint)
		if score < minScore {
			continue
		}
		out = append(out, Candidate{
			ArticleID:   entry.id,
			Source:      entry.source,
			Score:       score,
			PublishedAt: entry.publishedAt,
			RetrievedAt: entry.retrievedAt,
		})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].ArticleID < out[j].ArticleID
	})
	return out
}

// Len returns the current candidate count
func (ix *CandidateIndex) Len() int {
	return ix.cache.ItemCount()
}
