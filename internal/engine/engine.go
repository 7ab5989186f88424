// Package engine wires extraction, verification, correlation and the
// credibility ledger into a single processing facade.
package engine

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/veracitylab/veracity/internal/cache"
	"github.com/veracitylab/veracity/internal/correlate"
	"github.com/veracitylab/veracity/internal/extract"
	"github.com/veracitylab/veracity/internal/ledger"
	"github.com/veracitylab/veracity/internal/logging"
	"github.com/veracitylab/veracity/internal/model"
	"github.com/veracitylab/veracity/internal/provider"
	"github.com/veracitylab/veracity/internal/similarity"
	"github.com/veracitylab/veracity/internal/store"
	"github.com/veracitylab/veracity/internal/verify"
)

// ConfigLoader returns the current configuration. It is called at the
// start of every pass, so edits take effect without a restart.
type ConfigLoader func() *model.Config

// AlertFunc receives operator-visible alert conditions
type AlertFunc func(condition string, articleID string)

// Engine is the top-level processing facade. One Engine instance owns
// the provider registry, the candidate index, the story graph and the
// credibility ledger; stores are shared through the Store interface.
type Engine struct {
	loadConfig ConfigLoader
	st         store.Store

	registry   *provider.Registry
	ledger     *ledger.Ledger
	correlator *correlate.Engine
	candidates *similarity.CandidateIndex
	verdicts   cache.Cache
	alert      AlertFunc

	mu        sync.Mutex // Guards provider sync state below
	providers map[string]model.ProviderConfig
}

// New builds an engine from the loader's current configuration and
// restores prior state (stories, credibility, candidate fingerprints)
// from the store.
func New(loader ConfigLoader, st store.Store, alert AlertFunc) (*Engine, error) {
	cfg := loader()
	logging.SetLevel(cfg.Logging.Level)

	if alert == nil {
		alert = func(condition, articleID string) {
			logging.Warn("alert", "condition", condition, "article", articleID)
		}
	}

	e := &Engine{
		loadConfig: loader,
		st:         st,
		registry:   provider.NewRegistry(cfg.Verify),
		ledger:     ledger.New(cfg.Ledger),
		candidates: similarity.NewCandidateIndex(cfg.Similarity.CandidateWindow),
		verdicts:   cache.NewMemoryCache(cfg.Similarity.CandidateWindow, 10*time.Minute),
		alert:      alert,
		providers:  map[string]model.ProviderConfig{},
	}

	e.correlator = correlate.NewEngine(cfg.Correlation, e.ledger,
		func(articleID string) *model.FactCheckResult {
			result, err := st.LatestResult(articleID)
			if err != nil {
				return nil
			}
			return result
		},
		func(story *model.Story) {
			if err := st.SaveStory(story); err != nil {
				logging.Error("persist story", "story", story.ID, "error", err)
			}
		},
		correlate.AlertFunc(alert))

	if err := e.syncProviders(cfg); err != nil {
		return nil, err
	}
	if err := e.restore(); err != nil {
		return nil, fmt.Errorf("restore state: %w", err)
	}
	return e, nil
}

// restore reloads persisted state so a restarted engine resumes where
// it left off.
func (e *Engine) restore() error {
	creds, err := e.st.LoadCredibility()
	if err != nil {
		return err
	}
	e.ledger.Restore(creds)

	stories, err := e.st.LoadStories()
	if err != nil {
		return err
	}
	e.correlator.Restore(stories)

	// Member fingerprints re-enter the candidate window so new
	// arrivals can still join restored stories.
	for _, story := range stories {
		for _, id := range story.Members {
			article, err := e.st.GetArticle(id)
			if err != nil {
				continue
			}
			if article.Fingerprint != nil {
				e.candidates.Add(article)
			}
		}
	}

	if len(stories) > 0 {
		logging.Info("restored state", "stories", len(stories), "sources", len(creds))
	}
	return nil
}

// syncProviders reconciles the registry with the configured provider
// list. Existing entries keep their call history and breaker state:
// weight, timeout and rate changes are applied in place, and only a
// changed backend identity (type, model, key, endpoint) rebuilds the
// verifier and resets its counters.
func (e *Engine) syncProviders(cfg *model.Config) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	configured := map[string]bool{}
	for _, pc := range cfg.Providers {
		if pc.Name == "" {
			return fmt.Errorf("provider with empty name in configuration")
		}
		configured[pc.Name] = true

		last, known := e.providers[pc.Name]
		if known && last == pc {
			continue
		}

		if !known || identityChanged(last, pc) {
			v, err := provider.NewVerifier(pc, cfg.Proxy)
			if err != nil {
				return fmt.Errorf("provider %s: %w", pc.Name, err)
			}
			e.registry.Add(v, pc)
			if !pc.Enabled {
				e.registry.Disable(pc.Name)
			}
			e.providers[pc.Name] = pc
			continue
		}

		e.registry.Update(pc.Name, pc)
		if last.Enabled != pc.Enabled {
			if pc.Enabled {
				e.registry.Enable(pc.Name)
			} else {
				e.registry.Disable(pc.Name)
			}
		}
		e.providers[pc.Name] = pc
	}

	for name := range e.providers {
		if !configured[name] {
			e.registry.Remove(name)
			delete(e.providers, name)
		}
	}
	return nil
}

// identityChanged reports whether a provider config points at a
// different backend than before, requiring a rebuilt verifier.
func identityChanged(a, b model.ProviderConfig) bool {
	return a.Type != b.Type || a.Model != b.Model || a.APIKey != b.APIKey || a.BaseURL != b.BaseURL
}

// applyConfig pushes the freshly loaded configuration into long-lived
// components, so threshold and policy edits take effect on the pass
// that read them.
func (e *Engine) applyConfig(cfg *model.Config) {
	e.registry.Reconfigure(cfg.Verify)
	e.correlator.SetConfig(cfg.Correlation)
	e.ledger.SetConfig(cfg.Ledger)
	e.candidates.SetWindow(cfg.Similarity.CandidateWindow)
}

// Process satisfies the batch worker's Processor interface
func (e *Engine) Process(ctx context.Context, article *model.Article) (*model.FactCheckResult, error) {
	return e.Ingest(ctx, article, false)
}

// Ingest runs the full pass for one article: fingerprint, extract,
// verify, persist, correlate. Re-delivery of an already finalized
// article returns the stored result without re-verifying; force
// re-runs the pass and appends a new result.
func (e *Engine) Ingest(ctx context.Context, article *model.Article, force bool) (*model.FactCheckResult, error) {
	cfg := e.loadConfig()
	logging.SetLevel(cfg.Logging.Level)
	if err := e.syncProviders(cfg); err != nil {
		return nil, err
	}
	e.applyConfig(cfg)

	if !force {
		if prior, ok := e.finalizedResult(article.ID); ok {
			logging.Debug("duplicate delivery", "article", article.ID)
			return prior, nil
		}
	}

	article.Body = extract.NormalizeBody(article.Body)
	article.Fingerprint = extract.Fingerprint(article.Body, cfg.Similarity.KeywordCount)
	article.State = model.StatePending

	claims, extractErr := e.extractClaims(ctx, cfg.Extraction, article.Body)
	if extractErr != nil {
		// The article still enters correlation on its fingerprint;
		// only verification is skipped.
		article.State = model.StateExtractionFailed
		if err := e.st.SaveArticle(article); err != nil {
			return nil, fmt.Errorf("save article: %w", err)
		}
		e.correlate(article, cfg)
		return nil, fmt.Errorf("article %s: %w", article.ID, extractErr)
	}
	article.Claims = claims
	if err := e.st.SaveArticle(article); err != nil {
		return nil, fmt.Errorf("save article: %w", err)
	}

	result, verifyErr := e.verifyPass(ctx, cfg, article, force)
	if result == nil {
		// Cancelled mid-pass; nothing is recorded.
		return nil, verifyErr
	}

	if err := e.st.SaveResult(result); err != nil {
		return nil, fmt.Errorf("save result: %w", err)
	}

	if result.Label == model.LabelUnverifiable && result.Confidence == 0 {
		article.State = model.StateUnverifiable
	} else {
		article.State = model.StateVerified
	}
	if err := e.st.SaveArticle(article); err != nil {
		return nil, fmt.Errorf("save article: %w", err)
	}

	e.correlate(article, cfg)

	if err := e.st.SaveCredibility(e.ledger.Snapshot()); err != nil {
		logging.Error("persist credibility", "error", err)
	}

	return result, verifyErr
}

// finalizedResult returns the latest stored result when the article
// has already completed a verification pass.
func (e *Engine) finalizedResult(articleID string) (*model.FactCheckResult, bool) {
	existing, err := e.st.GetArticle(articleID)
	if err != nil {
		return nil, false
	}
	if existing.State != model.StateVerified && existing.State != model.StateUnverifiable {
		return nil, false
	}
	result, err := e.st.LatestResult(articleID)
	if err != nil {
		return nil, false
	}
	return result, true
}

func (e *Engine) extractClaims(ctx context.Context, cfg model.ExtractionConfig, body string) ([]model.Claim, error) {
	var ex extract.Extractor
	if cfg.UseLLM {
		llm, err := extract.NewLLMExtractor(cfg)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", extract.ErrExtractionFailed, err)
		}
		ex = llm
	} else {
		ex = extract.NewHeuristicExtractor(cfg)
	}
	return ex.Extract(ctx, body)
}

// verifyPass runs the orchestrator, memoizing results by content
// fingerprint so identical bodies delivered under different IDs do not
// re-spend provider quota.
func (e *Engine) verifyPass(ctx context.Context, cfg *model.Config, article *model.Article, force bool) (*model.FactCheckResult, error) {
	key := verdictKey(article)
	if !force {
		if raw, ok := e.verdicts.Get(key); ok {
			var cached model.FactCheckResult
			if err := json.Unmarshal(raw, &cached); err == nil {
				cached.ID = uuid.New().String()
				cached.ArticleID = article.ID
				cached.CreatedAt = time.Now().UTC()
				logging.Debug("verdict cache hit", "article", article.ID)
				return &cached, nil
			}
		}
	}

	orch := verify.NewOrchestrator(e.registry, cfg.Verify, verify.AlertFunc(e.alert))
	result, err := orch.Verify(ctx, article)
	if result == nil {
		return nil, err
	}

	// Degraded results are not memoized; the next delivery should
	// retry providers rather than replay the failure.
	if err == nil {
		if raw, merr := json.Marshal(result); merr == nil {
			_ = e.verdicts.Set(key, raw, cfg.Similarity.CandidateWindow)
		}
	}
	return result, err
}

// verdictKey identifies an article's normalized body exactly, so the
// memoized verdicts of one article are never served for another that
// merely fingerprints alike.
func verdictKey(article *model.Article) string {
	sum := sha256.Sum256([]byte(article.Body))
	return fmt.Sprintf("verdict:%x", sum)
}

// correlate joins the article to the story graph. Correlation errors
// are surfaced as alerts, never as pass failures.
func (e *Engine) correlate(article *model.Article, cfg *model.Config) {
	cands := e.candidates.CandidatesFor(article, similarity.NewEngine(cfg.Similarity), cfg.Correlation.JoinThreshold)
	e.candidates.Add(article)

	story, created, err := e.correlator.Correlate(article, cands)
	if err != nil {
		logging.Warn("correlation conflict", "article", article.ID, "error", err)
		return
	}
	if created {
		logging.Debug("new story", "story", story.ID, "article", article.ID)
	} else {
		logging.Debug("joined story", "story", story.ID, "article", article.ID, "members", len(story.Members))
	}
}

// CorrelateArticle re-runs correlation for a stored article. Useful
// when an article landed before its peers and missed its story, or
// after a restore. Articles already assigned to a story are left alone.
func (e *Engine) CorrelateArticle(articleID string) (*model.Story, error) {
	article, err := e.st.GetArticle(articleID)
	if err != nil {
		return nil, fmt.Errorf("article %s: %w", articleID, err)
	}
	if story, ok := e.correlator.StoryByArticle(articleID); ok {
		return story, nil
	}
	cfg := e.loadConfig()
	e.applyConfig(cfg)
	e.correlate(article, cfg)
	story, _ := e.correlator.StoryByArticle(articleID)
	return story, nil
}

// VerifyArticle re-runs verification for a stored article
func (e *Engine) VerifyArticle(ctx context.Context, articleID string, force bool) (*model.FactCheckResult, error) {
	article, err := e.st.GetArticle(articleID)
	if err != nil {
		return nil, fmt.Errorf("article %s: %w", articleID, err)
	}
	return e.Ingest(ctx, article, force)
}

// Article returns a stored article
func (e *Engine) Article(id string) (*model.Article, error) {
	return e.st.GetArticle(id)
}

// LatestResult returns the most recent verification result for an article
func (e *Engine) LatestResult(articleID string) (*model.FactCheckResult, error) {
	return e.st.LatestResult(articleID)
}

// ResultHistory returns all verification results for an article, oldest first
func (e *Engine) ResultHistory(articleID string) ([]*model.FactCheckResult, error) {
	return e.st.ResultHistory(articleID)
}

// Story returns a story snapshot by ID
func (e *Engine) Story(id string) (*model.Story, bool) {
	return e.correlator.Story(id)
}

// StoryByArticle returns the story containing the given article
func (e *Engine) StoryByArticle(articleID string) (*model.Story, bool) {
	return e.correlator.StoryByArticle(articleID)
}

// Stories returns all story snapshots, newest first
func (e *Engine) Stories() []*model.Story {
	return e.correlator.Stories()
}

// Credibility returns the ledger entry for a source
func (e *Engine) Credibility(source string) model.SourceCredibility {
	return e.ledger.Get(source)
}

// CredibilitySnapshot returns all ledger entries, sorted by source
func (e *Engine) CredibilitySnapshot() []model.SourceCredibility {
	return e.ledger.Snapshot()
}

// ProviderStats returns call statistics for a provider
func (e *Engine) ProviderStats(name string) (provider.Stats, bool) {
	return e.registry.Stats(name)
}

// EnabledProviders returns the names of providers currently accepting calls
func (e *Engine) EnabledProviders() []string {
	return e.registry.Enabled()
}

// SweepStale marks stories with no recent activity as stale and
// returns how many were transitioned.
func (e *Engine) SweepStale() int {
	return e.correlator.SweepStale()
}

// Close flushes the credibility snapshot and closes the store
func (e *Engine) Close() error {
	if err := e.st.SaveCredibility(e.ledger.Snapshot()); err != nil {
		logging.Error("persist credibility", "error", err)
	}
	return e.st.Close()
}
