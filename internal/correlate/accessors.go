package correlate

import (
	"sort"
	"strings"

	"github.com/veracitylab/veracity/internal/model"
)

// snapshot copies a story under its lock so callers never see a story
// mid-mutation.
func (e *Engine) snapshot(st *storyState) *model.Story {
	st.mu.Lock()
	defer st.mu.Unlock()

	out := st.story
	out.Members = append([]string(nil), st.story.Members...)
	out.Timeline = append([]model.TimelineEntry(nil), st.story.Timeline...)
	return &out
}

// Story returns a story by identifier
func (e *Engine) Story(id string) (*model.Story, bool) {
	e.mu.RLock()
	st, ok := e.stories[id]
	e.mu.RUnlock()
	if !ok {
		return nil, false
	}
	return e.snapshot(st), true
}

// StoryByArticle returns the story a member article belongs to
func (e *Engine) StoryByArticle(articleID string) (*model.Story, bool) {
	e.mu.RLock()
	sid, ok := e.byArticle[articleID]
	if !ok {
		e.mu.RUnlock()
		return nil, false
	}
	st := e.stories[sid]
	e.mu.RUnlock()
	return e.snapshot(st), true
}

// Stories returns all stories, newest first
func (e *Engine) Stories() []*model.Story {
	e.mu.RLock()
	states := make([]*storyState, 0, len(e.stories))
	for _, st := range e.stories {
		states = append(states, st)
	}
	e.mu.RUnlock()

	out := make([]*model.Story, 0, len(states))
	for _, st := range states {
		out = append(out, e.snapshot(st))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// SweepStale marks stories with no coverage inside the stale window.
// Returns how many stories changed status.
func (e *Engine) SweepStale() int {
	e.mu.RLock()
	cutoff := e.now().Add(-e.cfg.StaleAfter)
	states := make([]*storyState, 0, len(e.stories))
	for _, st := range e.stories {
		states = append(states, st)
	}
	e.mu.RUnlock()

	var changed int
	for _, st := range states {
		st.mu.Lock()
		if st.story.Status == model.StoryActive && st.story.LastPublished().Before(cutoff) {
			st.story.Status = model.StoryStale
			e.save(&st.story)
			changed++
		}
		st.mu.Unlock()
	}
	return changed
}

// Restore loads persisted stories at startup so the engine resumes
// without losing in-progress story state. An article listed by two
// stories keeps its membership in the earlier-created one.
func (e *Engine) Restore(stories []*model.Story) {
	sorted := append([]*model.Story(nil), stories...)
	sort.Slice(sorted, func(i, j int) bool {
		if !sorted[i].CreatedAt.Equal(sorted[j].CreatedAt) {
			return sorted[i].CreatedAt.Before(sorted[j].CreatedAt)
		}
		return sorted[i].ID < sorted[j].ID
	})

	e.mu.Lock()
	defer e.mu.Unlock()

	for _, story := range sorted {
		st := &storyState{
			story:      *story,
			seenClaims: make(map[string]bool),
		}
		members := st.story.Members[:0]
		timeline := st.story.Timeline[:0]
		for _, t := range story.Timeline {
			if owner, taken := e.byArticle[t.ArticleID]; taken && owner != story.ID {
				continue // Earlier-created story already owns it
			}
			e.byArticle[t.ArticleID] = story.ID
			timeline = append(timeline, t)
			members = append(members, t.ArticleID)
			for _, c := range t.ClaimDelta {
				st.seenClaims[strings.ToLower(strings.TrimSpace(c))] = true
			}
		}
		if len(members) == 0 {
			continue // Every member was claimed elsewhere
		}
		st.story.Members = members
		st.story.Timeline = timeline
		e.stories[story.ID] = st
	}
}
