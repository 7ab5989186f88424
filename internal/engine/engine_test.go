package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/veracitylab/veracity/internal/extract"
	"github.com/veracitylab/veracity/internal/model"
	"github.com/veracitylab/veracity/internal/store"
)

func staticConfig() *model.Config {
	cfg := model.DefaultConfig()
	cfg.Providers = []model.ProviderConfig{
		{Name: "static-a", Type: "static", Enabled: true, Model: "supported:0.9"},
		{Name: "static-b", Type: "static", Enabled: true, Model: "supported:0.8"},
	}
	return cfg
}

func newTestEngine(t *testing.T, cfg *model.Config, st store.Store) *Engine {
	t.Helper()
	if st == nil {
		st = store.NewMemoryStore()
	}
	eng, err := New(func() *model.Config { return cfg }, st, func(string, string) {})
	if err != nil {
		t.Fatalf("build engine: %v", err)
	}
	return eng
}

func newsArticle(id, source, body string, published time.Time) *model.Article {
	return &model.Article{
		ID:          id,
		Source:      source,
		Body:        body,
		PublishedAt: published,
		RetrievedAt: published.Add(5 * time.Minute),
	}
}

const factualBody = "The company announced a merger with its largest rival on Monday. " +
	"The deal was approved by regulators after a six month review process."

var pubTime = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func TestIngestFullPass(t *testing.T) {
	st := store.NewMemoryStore()
	eng := newTestEngine(t, staticConfig(), st)
	defer func() { _ = eng.Close() }()

	result, err := eng.Ingest(context.Background(), newsArticle("a1", "one.example", factualBody, pubTime), false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Label != model.LabelSupported {
		t.Errorf("expected supported, got %s", result.Label)
	}
	if len(result.Claims) == 0 {
		t.Error("expected extracted claims on the result")
	}

	article, err := st.GetArticle("a1")
	if err != nil {
		t.Fatalf("article not persisted: %v", err)
	}
	if article.State != model.StateVerified {
		t.Errorf("expected verified state, got %s", article.State)
	}
	if article.Fingerprint == nil {
		t.Error("fingerprint not computed")
	}

	stored, err := st.LatestResult("a1")
	if err != nil || stored.ID != result.ID {
		t.Errorf("result not persisted: %v %+v", err, stored)
	}

	if _, ok := eng.StoryByArticle("a1"); !ok {
		t.Error("article not correlated into a story")
	}
}

func TestIngestDuplicateDelivery(t *testing.T) {
	eng := newTestEngine(t, staticConfig(), nil)
	defer func() { _ = eng.Close() }()

	first, err := eng.Ingest(context.Background(), newsArticle("a1", "one.example", factualBody, pubTime), false)
	if err != nil {
		t.Fatalf("first pass: %v", err)
	}

	second, err := eng.Ingest(context.Background(), newsArticle("a1", "one.example", factualBody, pubTime), false)
	if err != nil {
		t.Fatalf("second pass: %v", err)
	}
	if second.ID != first.ID {
		t.Errorf("duplicate delivery should return the stored result, got %s vs %s", second.ID, first.ID)
	}

	history, _ := eng.ResultHistory("a1")
	if len(history) != 1 {
		t.Errorf("duplicate delivery must not append results, got %d", len(history))
	}
}

func TestIngestForceAppendsResult(t *testing.T) {
	eng := newTestEngine(t, staticConfig(), nil)
	defer func() { _ = eng.Close() }()

	first, _ := eng.Ingest(context.Background(), newsArticle("a1", "one.example", factualBody, pubTime), false)
	second, err := eng.Ingest(context.Background(), newsArticle("a1", "one.example", factualBody, pubTime), true)
	if err != nil {
		t.Fatalf("forced pass: %v", err)
	}
	if second.ID == first.ID {
		t.Error("forced pass should create a fresh result")
	}

	history, _ := eng.ResultHistory("a1")
	if len(history) != 2 {
		t.Errorf("expected 2 results after force, got %d", len(history))
	}

	latest, _ := eng.LatestResult("a1")
	if latest.ID != second.ID {
		t.Errorf("latest should be the forced result, got %s", latest.ID)
	}
}

func TestIngestCorrelatesSimilarArticles(t *testing.T) {
	eng := newTestEngine(t, staticConfig(), nil)
	defer func() { _ = eng.Close() }()

	ctx := context.Background()
	if _, err := eng.Ingest(ctx, newsArticle("a1", "one.example", factualBody, pubTime), false); err != nil {
		t.Fatalf("first: %v", err)
	}
	if _, err := eng.Ingest(ctx, newsArticle("a2", "two.example", factualBody, pubTime.Add(time.Hour)), false); err != nil {
		t.Fatalf("second: %v", err)
	}

	s1, ok1 := eng.StoryByArticle("a1")
	s2, ok2 := eng.StoryByArticle("a2")
	if !ok1 || !ok2 {
		t.Fatal("articles not correlated")
	}
	if s1.ID != s2.ID {
		t.Errorf("identical bodies should share a story: %s vs %s", s1.ID, s2.ID)
	}
	if len(s2.Members) != 2 {
		t.Errorf("expected 2 members, got %v", s2.Members)
	}
}

func TestIngestNoClaims(t *testing.T) {
	eng := newTestEngine(t, staticConfig(), nil)
	defer func() { _ = eng.Close() }()

	body := "A short note about nothing much at all, with no checkable facts inside it whatsoever."
	result, err := eng.Ingest(context.Background(), newsArticle("a1", "one.example", body, pubTime), false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Label != model.LabelUnverifiable {
		t.Errorf("claimless article should be unverifiable, got %s", result.Label)
	}

	article, _ := eng.Article("a1")
	if article.State != model.StateUnverifiable {
		t.Errorf("expected unverifiable state, got %s", article.State)
	}
}

func TestIngestExtractionFailure(t *testing.T) {
	cfg := staticConfig()
	cfg.Extraction.UseLLM = true // No API key configured: extraction fails

	eng := newTestEngine(t, cfg, nil)
	defer func() { _ = eng.Close() }()

	_, err := eng.Ingest(context.Background(), newsArticle("a1", "one.example", factualBody, pubTime), false)
	if !errors.Is(err, extract.ErrExtractionFailed) {
		t.Fatalf("expected ErrExtractionFailed, got %v", err)
	}

	article, gerr := eng.Article("a1")
	if gerr != nil {
		t.Fatalf("failed article should still be persisted: %v", gerr)
	}
	if article.State != model.StateExtractionFailed {
		t.Errorf("expected extraction_failed state, got %s", article.State)
	}
	// Correlation still runs on the fingerprint alone.
	if _, ok := eng.StoryByArticle("a1"); !ok {
		t.Error("failed-extraction article should still correlate")
	}
}

func TestEngineRestoresFromStore(t *testing.T) {
	st := store.NewMemoryStore()

	first := newTestEngine(t, staticConfig(), st)
	ctx := context.Background()
	if _, err := first.Ingest(ctx, newsArticle("a1", "one.example", factualBody, pubTime), false); err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if _, err := first.Ingest(ctx, newsArticle("a2", "two.example", factualBody, pubTime.Add(time.Hour)), false); err != nil {
		t.Fatalf("ingest: %v", err)
	}
	story, _ := first.StoryByArticle("a1")
	if err := first.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	second := newTestEngine(t, staticConfig(), st)
	defer func() { _ = second.Close() }()

	restored, ok := second.StoryByArticle("a1")
	if !ok {
		t.Fatal("story lost across restart")
	}
	if restored.ID != story.ID || len(restored.Members) != len(story.Members) {
		t.Errorf("restored story differs: %+v vs %+v", restored, story)
	}

	// A third similar article should still join the restored story.
	if _, err := second.Ingest(ctx, newsArticle("a3", "three.example", factualBody, pubTime.Add(2*time.Hour)), false); err != nil {
		t.Fatalf("ingest after restore: %v", err)
	}
	joined, _ := second.StoryByArticle("a3")
	if joined.ID != story.ID {
		t.Errorf("new coverage should join the restored story, got %s want %s", joined.ID, story.ID)
	}
}

func TestSyncProvidersReactsToConfig(t *testing.T) {
	cfg := staticConfig()
	eng := newTestEngine(t, cfg, nil)
	defer func() { _ = eng.Close() }()

	if got := len(eng.EnabledProviders()); got != 2 {
		t.Fatalf("expected 2 providers, got %d", got)
	}

	// Disabling a provider in config takes effect on the next pass.
	cfg.Providers[1].Enabled = false
	if _, err := eng.Ingest(context.Background(), newsArticle("a1", "one.example", factualBody, pubTime), false); err != nil {
		t.Fatalf("ingest: %v", err)
	}
	enabled := eng.EnabledProviders()
	if len(enabled) != 1 || enabled[0] != "static-a" {
		t.Errorf("expected only static-a enabled, got %v", enabled)
	}

	// Removing it entirely drops it from the registry.
	cfg.Providers = cfg.Providers[:1]
	if _, err := eng.Ingest(context.Background(), newsArticle("a2", "two.example", factualBody, pubTime), false); err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if _, ok := eng.ProviderStats("static-b"); ok {
		t.Error("removed provider still present in registry")
	}
}

func TestCorrelateArticleLateJoin(t *testing.T) {
	st := store.NewMemoryStore()
	eng := newTestEngine(t, staticConfig(), st)
	defer func() { _ = eng.Close() }()

	if _, err := eng.Ingest(context.Background(), newsArticle("a1", "one.example", factualBody, pubTime), false); err != nil {
		t.Fatalf("ingest: %v", err)
	}

	// An article written to the store outside the ingest path has no
	// story assignment until correlation is run for it.
	stray := newsArticle("a2", "two.example", factualBody, pubTime.Add(time.Hour))
	stray.Fingerprint = extract.Fingerprint(stray.Body, staticConfig().Similarity.KeywordCount)
	stray.State = model.StateVerified
	if err := st.SaveArticle(stray); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, ok := eng.StoryByArticle("a2"); ok {
		t.Fatal("stray article should not be assigned yet")
	}

	story, err := eng.CorrelateArticle("a2")
	if err != nil {
		t.Fatalf("correlate: %v", err)
	}
	if story == nil || len(story.Members) != 2 {
		t.Fatalf("expected a2 to join a1's story, got %+v", story)
	}

	// Re-running for an assigned article returns the same story.
	again, err := eng.CorrelateArticle("a2")
	if err != nil {
		t.Fatalf("correlate again: %v", err)
	}
	if again.ID != story.ID {
		t.Errorf("expected stable assignment, got %s then %s", story.ID, again.ID)
	}
}

func TestIngestReloadsProviderWeights(t *testing.T) {
	cfg := staticConfig()
	eng := newTestEngine(t, cfg, nil)
	defer func() { _ = eng.Close() }()

	if _, err := eng.Ingest(context.Background(), newsArticle("a1", "one.example", factualBody, pubTime), false); err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if w := eng.registry.Weight("static-a"); w != 1.0 {
		t.Fatalf("expected default weight 1.0, got %f", w)
	}

	cfg.Providers[0].Weight = 5.0
	if _, err := eng.Ingest(context.Background(), newsArticle("a2", "two.example", factualBody, pubTime), false); err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if w := eng.registry.Weight("static-a"); w != 5.0 {
		t.Errorf("edited weight must apply on the next pass, got %f", w)
	}
}

func TestIngestReloadsJoinThreshold(t *testing.T) {
	cfg := staticConfig()
	cfg.Correlation.JoinThreshold = 1.01 // Nothing can join

	eng := newTestEngine(t, cfg, nil)
	defer func() { _ = eng.Close() }()

	if _, err := eng.Ingest(context.Background(), newsArticle("a1", "one.example", factualBody, pubTime), false); err != nil {
		t.Fatalf("ingest a1: %v", err)
	}
	if _, err := eng.Ingest(context.Background(), newsArticle("a2", "two.example", factualBody, pubTime.Add(time.Hour)), false); err != nil {
		t.Fatalf("ingest a2: %v", err)
	}
	if len(eng.Stories()) != 2 {
		t.Fatalf("identical bodies must split under an unreachable threshold, got %d stories", len(eng.Stories()))
	}

	cfg.Correlation.JoinThreshold = 0.3
	if _, err := eng.Ingest(context.Background(), newsArticle("a3", "three.example", factualBody, pubTime.Add(2*time.Hour)), false); err != nil {
		t.Fatalf("ingest a3: %v", err)
	}
	story, ok := eng.StoryByArticle("a3")
	if !ok {
		t.Fatal("a3 not assigned to any story")
	}
	if len(story.Members) < 2 {
		t.Errorf("lowered threshold must take effect without a restart, a3 alone in %v", story.Members)
	}
}

func TestVerdictKeyExactBody(t *testing.T) {
	fp := extract.Fingerprint(factualBody, staticConfig().Similarity.KeywordCount)

	a := &model.Article{ID: "a1", Body: factualBody, Fingerprint: fp}
	b := &model.Article{ID: "a2", Body: factualBody + " Extra.", Fingerprint: fp}
	if verdictKey(a) == verdictKey(b) {
		t.Error("different bodies must never share a memoization key")
	}

	c := &model.Article{ID: "a3", Body: factualBody, Fingerprint: fp}
	if verdictKey(a) != verdictKey(c) {
		t.Error("identical bodies must share a memoization key")
	}
}
