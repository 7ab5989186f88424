// Package ledger keeps running credibility statistics per news source:
// an exponentially-weighted agreement score with story consensus.
// Process-wide, shared by both the verification and correlation
// pipelines; neither caches a copy across passes.
package ledger

import (
	"sort"
	"sync"
	"time"

	"github.com/veracitylab/veracity/internal/model"
)

// Ledger is a thread-safe store of SourceCredibility keyed by source
// identity. Updates to one source are atomic read-modify-write under a
// per-source lock; there are no cross-source transactions.
type Ledger struct {
	mu      sync.RWMutex // Guards the map, not entry contents
	entries map[string]*lockedEntry

	decay float64
	prior *prior
	now   func() time.Time
}

type lockedEntry struct {
	mu   sync.Mutex
	cred model.SourceCredibility
}

// New creates a ledger from configuration
func New(cfg model.LedgerConfig) *Ledger {
	l := &Ledger{
		entries: make(map[string]*lockedEntry),
		now:     time.Now,
	}
	l.SetConfig(cfg)
	return l
}

// SetConfig re-applies decay and tier priors. The new decay governs
// the next agreement update; priors apply to sources seen afterwards,
// already-materialized entries keep their accumulated scores.
func (l *Ledger) SetConfig(cfg model.LedgerConfig) {
	decay := cfg.Decay
	if decay <= 0 || decay >= 1 {
		decay = 0.95
	}
	defaultScore := cfg.DefaultScore
	if defaultScore <= 0 || defaultScore > 1 {
		defaultScore = 0.5
	}
	primaryPrior := cfg.PrimaryPrior
	if primaryPrior <= 0 || primaryPrior > 1 {
		primaryPrior = defaultScore
	}
	secondaryPrior := cfg.SecondaryPrior
	if secondaryPrior <= 0 || secondaryPrior > 1 {
		secondaryPrior = defaultScore
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.decay = decay
	l.prior = newPrior(cfg.PrimarySources, cfg.SecondarySources, defaultScore, primaryPrior, secondaryPrior)
}

// entry returns the locked entry for a source, creating it at its
// prior score on first sight.
func (l *Ledger) entry(source string) *lockedEntry {
	l.mu.RLock()
	e, ok := l.entries[source]
	l.mu.RUnlock()
	if ok {
		return e
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if e, ok := l.entries[source]; ok {
		return e
	}
	e = &lockedEntry{
		cred: model.SourceCredibility{
			Source: source,
			Score:  l.prior.score(source),
		},
	}
	l.entries[source] = e
	return e
}

// Get returns the current credibility for a source. Unknown sources
// report their prior without being materialized.
func (l *Ledger) Get(source string) model.SourceCredibility {
	l.mu.RLock()
	e, ok := l.entries[source]
	pr := l.prior
	l.mu.RUnlock()
	if !ok {
		return model.SourceCredibility{Source: source, Score: pr.score(source)}
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cred
}

// RecordAgreement folds one consensus comparison into a source's score
// with an exponential moving average, so recent behavior dominates old
// behavior without unbounded history.
func (l *Ledger) RecordAgreement(source string, agreed bool) model.SourceCredibility {
	obs := 0.0
	if agreed {
		obs = 1.0
	}

	l.mu.RLock()
	decay := l.decay
	l.mu.RUnlock()

	e := l.entry(source)
	e.mu.Lock()
	defer e.mu.Unlock()

	e.cred.Score = decay*e.cred.Score + (1-decay)*obs
	if e.cred.Score < 0 {
		e.cred.Score = 0
	}
	if e.cred.Score > 1 {
		e.cred.Score = 1
	}
	e.cred.Samples++
	e.cred.UpdatedAt = l.now().UTC()
	return e.cred
}

// Update applies an arbitrary atomic read-modify-write to one source
func (l *Ledger) Update(source string, fn func(*model.SourceCredibility)) model.SourceCredibility {
	e := l.entry(source)
	e.mu.Lock()
	defer e.mu.Unlock()
	fn(&e.cred)
	return e.cred
}

// Snapshot returns all tracked sources, sorted by identity, for
// persistence.
func (l *Ledger) Snapshot() []model.SourceCredibility {
	l.mu.RLock()
	entries := make([]*lockedEntry, 0, len(l.entries))
	for _, e := range l.entries {
		entries = append(entries, e)
	}
	l.mu.RUnlock()

	out := make([]model.SourceCredibility, 0, len(entries))
	for _, e := range entries {
		e.mu.Lock()
		out = append(out, e.cred)
		e.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Source < out[j].Source })
	return out
}

// Restore loads persisted credibility entries, replacing any existing
// state for the same sources.
func (l *Ledger) Restore(creds []model.SourceCredibility) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, c := range creds {
		l.entries[c.Source] = &lockedEntry{cred: c}
	}
}
