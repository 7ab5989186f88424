// Package correlate clusters articles into stories, maintains per-story
// timelines, and feeds source credibility from consensus agreement.
package correlate

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/veracitylab/veracity/internal/ledger"
	"github.com/veracitylab/veracity/internal/logging"
	"github.com/veracitylab/veracity/internal/model"
	"github.com/veracitylab/veracity/internal/similarity"
)

// ErrInconsistency indicates an article was claimed by two stories due
// to a race. The join to the younger story is rolled back; the story
// with the earlier creation timestamp wins.
var ErrInconsistency = errors.New("correlation inconsistency")

// ResultLookup returns the latest finalized FactCheckResult for an
// article, or nil if none exists yet. Correlation tolerates articles
// verified later or not at all.
type ResultLookup func(articleID string) *model.FactCheckResult

// AlertFunc receives operator-visible alert conditions
type AlertFunc func(condition string, articleID string)

// SaveFunc persists a story after mutation. Called outside the
// engine-wide lock but inside the story's own lock, so persisted
// snapshots are internally consistent.
type SaveFunc func(story *model.Story)

type storyState struct {
	mu         sync.Mutex // Single writer per story
	story      model.Story
	seenClaims map[string]bool // Normalized claim texts already on the timeline
}

// Engine assigns articles to story clusters. Assignment (which story
// an article belongs to) is guarded by the engine lock; mutation of a
// story's timeline and consensus is serialized by that story's own
// lock, so joins to different stories proceed concurrently.
type Engine struct {
	mu        sync.RWMutex
	stories   map[string]*storyState
	byArticle map[string]string // Article ID -> story ID

	cfg     model.CorrelationConfig
	ledger  *ledger.Ledger
	results ResultLookup
	save    SaveFunc
	alert   AlertFunc

	now func() time.Time
}

// NewEngine creates a correlation engine
func NewEngine(cfg model.CorrelationConfig, led *ledger.Ledger, results ResultLookup, save SaveFunc, alert AlertFunc) *Engine {
	if cfg.JoinThreshold <= 0 {
		cfg.JoinThreshold = 0.7
	}
	if cfg.StaleAfter <= 0 {
		cfg.StaleAfter = 72 * time.Hour
	}
	if results == nil {
		results = func(string) *model.FactCheckResult { return nil }
	}
	if save == nil {
		save = func(*model.Story) {}
	}
	if alert == nil {
		alert = func(condition, articleID string) {
			logging.Error("alert", "condition", condition, "article", articleID)
		}
	}

	return &Engine{
		stories:   make(map[string]*storyState),
		byArticle: make(map[string]string),
		cfg:       cfg,
		ledger:    led,
		results:   results,
		save:      save,
		alert:     alert,
		now:       time.Now,
	}
}

// SetConfig re-applies clustering thresholds. The join threshold takes
// effect on the next assignment and the stale window on the next sweep.
func (e *Engine) SetConfig(cfg model.CorrelationConfig) {
	if cfg.JoinThreshold <= 0 {
		cfg.JoinThreshold = 0.7
	}
	if cfg.StaleAfter <= 0 {
		cfg.StaleAfter = 72 * time.Hour
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.cfg = cfg
}

// Correlate attaches an article to the story of its best-scoring
// candidate above the join threshold, or creates a singleton story.
// Returns the story and whether a new story was created. Re-delivery
// of an already-assigned article is a no-op.
func (e *Engine) Correlate(article *model.Article, candidates []similarity.Candidate) (*model.Story, bool, error) {
	e.mu.Lock()

	if sid, ok := e.byArticle[article.ID]; ok {
		st := e.stories[sid]
		e.mu.Unlock()
		return e.snapshot(st), false, nil
	}

	target := e.pickTargetLocked(candidates)
	if target == nil {
		st := e.createStoryLocked(article)
		e.mu.Unlock()
		st.mu.Lock()
		e.save(&st.story)
		st.mu.Unlock()
		return e.snapshot(st), true, nil
	}

	e.byArticle[article.ID] = target.story.ID
	e.mu.Unlock()

	if err := e.attach(target, article); err != nil {
		return nil, false, err
	}
	return e.snapshot(target), false, nil
}

// pickTargetLocked finds the highest-similarity candidate already
// assigned to a story. Candidates arrive sorted by descending score.
func (e *Engine) pickTargetLocked(candidates []similarity.Candidate) *storyState {
	for _, c := range candidates {
		if c.Score < e.cfg.JoinThreshold {
			break // Sorted: nothing below this passes either
		}
		if sid, ok := e.byArticle[c.ArticleID]; ok {
			return e.stories[sid]
		}
	}
	return nil
}

func (e *Engine) createStoryLocked(article *model.Article) *storyState {
	st := &storyState{
		story: model.Story{
			ID:        uuid.NewString(),
			CreatedAt: e.now().UTC(),
			Status:    model.StoryActive,
		},
		seenClaims: make(map[string]bool),
	}
	e.insertMember(st, article)
	e.stories[st.story.ID] = st
	e.byArticle[article.ID] = st.story.ID

	logging.Debug("story created", "story", st.story.ID, "article", article.ID)
	return st
}

// attach performs the join under the story's own lock: timeline
// insertion, consensus recompute, and the credibility update for the
// joining article's source.
func (e *Engine) attach(st *storyState, article *model.Article) error {
	st.mu.Lock()
	defer st.mu.Unlock()

	for _, id := range st.story.Members {
		if id == article.ID {
			return nil // Duplicate delivery raced the assignment check
		}
	}

	if err := e.checkAssignment(st, article); err != nil {
		return err
	}

	// Consensus of prior coverage, before the newcomer can vote.
	priorLabel, priorOK := e.consensusLocked(st)

	e.insertMember(st, article)
	e.recomputeConsensusLocked(st)

	if priorOK {
		if res := e.results(article.ID); res != nil && res.Label != model.LabelUnverifiable {
			agreed := res.Label == priorLabel
			cred := e.ledger.RecordAgreement(article.Source, agreed)
			logging.Debug("credibility updated", "source", article.Source,
				"agreed", agreed, "score", fmt.Sprintf("%.3f", cred.Score))
		}
	}

	e.save(&st.story)
	return nil
}

// checkAssignment re-validates the assignment under the story lock. If
// a racing join claimed the article for another story, the story with
// the earlier creation timestamp wins and the other join rolls back.
func (e *Engine) checkAssignment(st *storyState, article *model.Article) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	sid, ok := e.byArticle[article.ID]
	if !ok || sid == st.story.ID {
		e.byArticle[article.ID] = st.story.ID
		return nil
	}

	other, exists := e.stories[sid]
	if !exists {
		e.byArticle[article.ID] = st.story.ID
		return nil
	}

	if other.story.CreatedAt.Before(st.story.CreatedAt) ||
		(other.story.CreatedAt.Equal(st.story.CreatedAt) && other.story.ID < st.story.ID) {
		// The other story wins; this join rolls back.
		e.alert("correlation_inconsistency", article.ID)
		logging.Warn("article claimed by two stories, earlier story wins",
			"article", article.ID, "kept", other.story.ID, "rolled_back", st.story.ID)
		return fmt.Errorf("%w: article %s kept by story %s", ErrInconsistency, article.ID, other.story.ID)
	}

	e.byArticle[article.ID] = st.story.ID
	return nil
}

// insertMember places the article on the timeline in publication order.
// Exact timestamp ties break on the earlier ingestion timestamp.
func (e *Engine) insertMember(st *storyState, article *model.Article) {
	entry := model.TimelineEntry{
		ArticleID:   article.ID,
		Source:      article.Source,
		PublishedAt: article.PublishedAt,
		RetrievedAt: article.RetrievedAt,
		ClaimDelta:  e.claimDelta(st, article),
	}

	idx := sort.Search(len(st.story.Timeline), func(i int) bool {
		t := st.story.Timeline[i]
		if !t.PublishedAt.Equal(entry.PublishedAt) {
			return t.PublishedAt.After(entry.PublishedAt)
		}
		return t.RetrievedAt.After(entry.RetrievedAt)
	})
	st.story.Timeline = append(st.story.Timeline, model.TimelineEntry{})
	copy(st.story.Timeline[idx+1:], st.story.Timeline[idx:])
	st.story.Timeline[idx] = entry

	st.story.Members = append(st.story.Members, article.ID)
	st.story.Status = model.StoryActive
	st.story.Velocity = e.velocity(&st.story)
}

// claimDelta returns the claims this article adds over what earlier
// coverage already asserted.
func (e *Engine) claimDelta(st *storyState, article *model.Article) []string {
	var delta []string
	for _, c := range article.Claims {
		key := strings.ToLower(strings.TrimSpace(c.Text))
		if key == "" || st.seenClaims[key] {
			continue
		}
		st.seenClaims[key] = true
		delta = append(delta, c.Text)
	}
	return delta
}

// consensusLocked computes the credibility-weighted consensus label of
// current members. ok is false when no member has a usable result.
func (e *Engine) consensusLocked(st *storyState) (label model.Label, ok bool) {
	votes := make(map[model.Label]float64)
	for _, id := range st.story.Members {
		res := e.results(id)
		if res == nil || res.Label == model.LabelUnverifiable {
			continue
		}
		src := e.memberSource(st, id)
		votes[res.Label] += e.ledger.Get(src).Score
	}

	if votes[model.LabelSupported] == 0 && votes[model.LabelContradicted] == 0 {
		return model.LabelUnverifiable, false
	}
	if votes[model.LabelSupported] >= votes[model.LabelContradicted] {
		return model.LabelSupported, true
	}
	return model.LabelContradicted, true
}

// recomputeConsensusLocked updates the story's stored consensus label
// and confidence: a credibility-weighted aggregate of member results,
// each member weighted by its source's current credibility score.
func (e *Engine) recomputeConsensusLocked(st *storyState) {
	votes := make(map[model.Label]float64)
	var confSum, weightSum float64
	for _, id := range st.story.Members {
		res := e.results(id)
		if res == nil {
			continue
		}
		w := e.ledger.Get(e.memberSource(st, id)).Score
		votes[res.Label] += w
		confSum += w * res.Confidence
		weightSum += w
	}

	switch {
	case weightSum == 0:
		st.story.ConsensusLabel = model.LabelUnverifiable
		st.story.ConsensusConfidence = 0
	default:
		st.story.ConsensusLabel = maxVote(votes)
		st.story.ConsensusConfidence = confSum / weightSum
	}
}

func (e *Engine) memberSource(st *storyState, articleID string) string {
	for _, t := range st.story.Timeline {
		if t.ArticleID == articleID {
			return t.Source
		}
	}
	return ""
}

func maxVote(votes map[model.Label]float64) model.Label {
	supported := votes[model.LabelSupported]
	contradicted := votes[model.LabelContradicted]
	switch {
	case supported == 0 && contradicted == 0:
		return model.LabelUnverifiable
	case supported >= contradicted:
		return model.LabelSupported
	default:
		return model.LabelContradicted
	}
}

// velocity is members per hour since story creation, floored at one
// hour so young stories do not report absurd rates.
func (e *Engine) velocity(story *model.Story) float64 {
	age := e.now().Sub(story.CreatedAt)
	if age < time.Hour {
		age = time.Hour
	}
	return float64(len(story.Members)) / age.Hours()
}
