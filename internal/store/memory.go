package store

import (
	"sync"

	"github.com/veracitylab/veracity/internal/model"
)

// MemoryStore keeps all state in process memory. Used when no database
// path is configured, and by tests.
type MemoryStore struct {
	mu       sync.RWMutex
	articles map[string]*model.Article
	results  map[string][]*model.FactCheckResult // Article ID -> append order
	stories  map[string]*model.Story
	creds    map[string]model.SourceCredibility
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		articles: make(map[string]*model.Article),
		results:  make(map[string][]*model.FactCheckResult),
		stories:  make(map[string]*model.Story),
		creds:    make(map[string]model.SourceCredibility),
	}
}

// SaveArticle stores or replaces an article record
func (s *MemoryStore) SaveArticle(article *model.Article) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *article
	s.articles[article.ID] = &copied
	return nil
}

// GetArticle returns an article by identifier
func (s *MemoryStore) GetArticle(id string) (*model.Article, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.articles[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *a
	return &copied, nil
}

// SaveResult appends a verification result
func (s *MemoryStore) SaveResult(result *model.FactCheckResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *result
	s.results[result.ArticleID] = append(s.results[result.ArticleID], &copied)
	return nil
}

// LatestResult returns the most recent result for an article
func (s *MemoryStore) LatestResult(articleID string) (*model.FactCheckResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	history := s.results[articleID]
	if len(history) == 0 {
		return nil, ErrNotFound
	}
	copied := *history[len(history)-1]
	return &copied, nil
}

// ResultHistory returns all results for an article, oldest first
func (s *MemoryStore) ResultHistory(articleID string) ([]*model.FactCheckResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	history := s.results[articleID]
	out := make([]*model.FactCheckResult, 0, len(history))
	for _, r := range history {
		copied := *r
		out = append(out, &copied)
	}
	return out, nil
}

// SaveStory stores or replaces a story's current state
func (s *MemoryStore) SaveStory(story *model.Story) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *story
	copied.Members = append([]string(nil), story.Members...)
	copied.Timeline = append([]model.TimelineEntry(nil), story.Timeline...)
	s.stories[story.ID] = &copied
	return nil
}

// LoadStories returns all stored stories
func (s *MemoryStore) LoadStories() ([]*model.Story, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*model.Story, 0, len(s.stories))
	for _, st := range s.stories {
		copied := *st
		out = append(out, &copied)
	}
	return out, nil
}

// SaveCredibility replaces the stored credibility snapshot
func (s *MemoryStore) SaveCredibility(creds []model.SourceCredibility) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range creds {
		s.creds[c.Source] = c
	}
	return nil
}

// LoadCredibility returns the stored credibility snapshot
func (s *MemoryStore) LoadCredibility() ([]model.SourceCredibility, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.SourceCredibility, 0, len(s.creds))
	for _, c := range s.creds {
		out = append(out, c)
	}
	return out, nil
}

// Close is a no-op for the memory store
func (s *MemoryStore) Close() error {
	return nil
}
