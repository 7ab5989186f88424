package store

import (
	"database/sql"
	"encoding/json"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/veracitylab/veracity/internal/model"
)

// SQLiteStore persists engine state in a single SQLite database
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (and migrates) a SQLite database at path
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// The sqlite driver does not tolerate concurrent writers on one
	// connection pool well; serialize at the pool level.
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS articles (
		id TEXT PRIMARY KEY,
		source TEXT NOT NULL,
		url TEXT,
		title TEXT,
		body TEXT,
		published_at DATETIME NOT NULL,
		retrieved_at DATETIME NOT NULL,
		state TEXT,
		payload TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_articles_source ON articles(source);

	CREATE TABLE IF NOT EXISTS results (
		id TEXT PRIMARY KEY,
		article_id TEXT NOT NULL,
		label TEXT NOT NULL,
		confidence REAL NOT NULL,
		disagreement INTEGER NOT NULL,
		created_at DATETIME NOT NULL,
		payload TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_results_article ON results(article_id, created_at);

	CREATE TABLE IF NOT EXISTS stories (
		id TEXT PRIMARY KEY,
		created_at DATETIME NOT NULL,
		status TEXT NOT NULL,
		consensus_label TEXT,
		consensus_confidence REAL,
		payload TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS credibility (
		source TEXT PRIMARY KEY,
		score REAL NOT NULL,
		samples INTEGER NOT NULL,
		updated_at DATETIME
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// SaveArticle stores or replaces an article record
func (s *SQLiteStore) SaveArticle(article *model.Article) error {
	payload, err := json.Marshal(article)
	if err != nil {
		return fmt.Errorf("marshal article: %w", err)
	}

	_, err = s.db.Exec(`
		INSERT INTO articles (id, source, url, title, body, published_at, retrieved_at, state, payload)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET state = excluded.state, payload = excluded.payload`,
		article.ID, article.Source, article.URL, article.Title, article.Body,
		article.PublishedAt, article.RetrievedAt, string(article.State), string(payload))
	if err != nil {
		return fmt.Errorf("save article: %w", err)
	}
	return nil
}

// GetArticle returns an article by identifier
func (s *SQLiteStore) GetArticle(id string) (*model.Article, error) {
	var payload string
	err := s.db.QueryRow(`SELECT payload FROM articles WHERE id = ?`, id).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get article: %w", err)
	}

	var article model.Article
	if err := json.Unmarshal([]byte(payload), &article); err != nil {
		return nil, fmt.Errorf("unmarshal article: %w", err)
	}
	return &article, nil
}

// SaveResult appends a verification result. Append-only: existing rows
// are never updated.
func (s *SQLiteStore) SaveResult(result *model.FactCheckResult) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}

	_, err = s.db.Exec(`
		INSERT INTO results (id, article_id, label, confidence, disagreement, created_at, payload)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		result.ID, result.ArticleID, string(result.Label), result.Confidence,
		boolToInt(result.Disagreement), result.CreatedAt, string(payload))
	if err != nil {
		return fmt.Errorf("save result: %w", err)
	}
	return nil
}

// LatestResult returns the most recent result for an article
func (s *SQLiteStore) LatestResult(articleID string) (*model.FactCheckResult, error) {
	var payload string
	err := s.db.QueryRow(`
		SELECT payload FROM results WHERE article_id = ?
		ORDER BY created_at DESC, id DESC LIMIT 1`, articleID).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("latest result: %w", err)
	}
	return unmarshalResult(payload)
}

// ResultHistory returns all results for an article, oldest first
func (s *SQLiteStore) ResultHistory(articleID string) ([]*model.FactCheckResult, error) {
	rows, err := s.db.Query(`
		SELECT payload FROM results WHERE article_id = ?
		ORDER BY created_at ASC, id ASC`, articleID)
	if err != nil {
		return nil, fmt.Errorf("result history: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*model.FactCheckResult
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		result, err := unmarshalResult(payload)
		if err != nil {
			return nil, err
		}
		out = append(out, result)
	}
	return out, rows.Err()
}

// SaveStory stores or replaces a story's current state
func (s *SQLiteStore) SaveStory(story *model.Story) error {
	payload, err := json.Marshal(story)
	if err != nil {
		return fmt.Errorf("marshal story: %w", err)
	}

	_, err = s.db.Exec(`
		INSERT INTO stories (id, created_at, status, consensus_label, consensus_confidence, payload)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			consensus_label = excluded.consensus_label,
			consensus_confidence = excluded.consensus_confidence,
			payload = excluded.payload`,
		story.ID, story.CreatedAt, string(story.Status),
		string(story.ConsensusLabel), story.ConsensusConfidence, string(payload))
	if err != nil {
		return fmt.Errorf("save story: %w", err)
	}
	return nil
}

// LoadStories returns all stored stories
func (s *SQLiteStore) LoadStories() ([]*model.Story, error) {
	rows, err := s.db.Query(`SELECT payload FROM stories ORDER BY created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("load stories: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*model.Story
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan story: %w", err)
		}
		var story model.Story
		if err := json.Unmarshal([]byte(payload), &story); err != nil {
			return nil, fmt.Errorf("unmarshal story: %w", err)
		}
		out = append(out, &story)
	}
	return out, rows.Err()
}

// SaveCredibility upserts the credibility snapshot
func (s *SQLiteStore) SaveCredibility(creds []model.SourceCredibility) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin credibility save: %w", err)
	}
	for _, c := range creds {
		if _, err := tx.Exec(`
			INSERT INTO credibility (source, score, samples, updated_at)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(source) DO UPDATE SET
				score = excluded.score,
				samples = excluded.samples,
				updated_at = excluded.updated_at`,
			c.Source, c.Score, c.Samples, c.UpdatedAt); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("save credibility %s: %w", c.Source, err)
		}
	}
	return tx.Commit()
}

// LoadCredibility returns the stored credibility snapshot
func (s *SQLiteStore) LoadCredibility() ([]model.SourceCredibility, error) {
	rows, err := s.db.Query(`SELECT source, score, samples, updated_at FROM credibility`)
	if err != nil {
		return nil, fmt.Errorf("load credibility: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []model.SourceCredibility
	for rows.Next() {
		var c model.SourceCredibility
		var updated sql.NullTime
		if err := rows.Scan(&c.Source, &c.Score, &c.Samples, &updated); err != nil {
			return nil, fmt.Errorf("scan credibility: %w", err)
		}
		if updated.Valid {
			c.UpdatedAt = updated.Time
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Close closes the database
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func unmarshalResult(payload string) (*model.FactCheckResult, error) {
	var result model.FactCheckResult
	if err := json.Unmarshal([]byte(payload), &result); err != nil {
		return nil, fmt.Errorf("unmarshal result: %w", err)
	}
	return &result, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// Open returns a SQLite store when path is set, otherwise the
// in-memory store.
func Open(path string) (Store, error) {
	if path == "" {
		return NewMemoryStore(), nil
	}
	return NewSQLiteStore(path)
}

var _ Store = (*SQLiteStore)(nil)
var _ Store = (*MemoryStore)(nil)
