// Package store persists engine state: articles, append-only
// verification results, story membership, and the credibility ledger
// snapshot, all keyed by stable identifiers so the engine can resume
// after a restart.
package store

import (
	"errors"

	"github.com/veracitylab/veracity/internal/model"
)

// ErrNotFound indicates the requested record does not exist
var ErrNotFound = errors.New("not found")

// Store is the persistence boundary. Results are append-only: a re-run
// adds a new record, prior results stay readable for audit.
type Store interface {
	SaveArticle(article *model.Article) error
	GetArticle(id string) (*model.Article, error)

	SaveResult(result *model.FactCheckResult) error
	LatestResult(articleID string) (*model.FactCheckResult, error)
	ResultHistory(articleID string) ([]*model.FactCheckResult, error)

	SaveStory(story *model.Story) error
	LoadStories() ([]*model.Story, error)

	SaveCredibility(creds []model.SourceCredibility) error
	LoadCredibility() ([]model.SourceCredibility, error)

	Close() error
}
