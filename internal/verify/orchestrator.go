// Package verify fans article claims out to verification providers and
// reconciles their verdicts into one FactCheckResult.
package verify

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/veracitylab/veracity/internal/logging"
	"github.com/veracitylab/veracity/internal/model"
	"github.com/veracitylab/veracity/internal/provider"
)

// ErrAllProvidersUnavailable indicates no provider produced a single
// usable verdict for the article. The result is still written (degraded
// to unverifiable/0) and an operational alert is raised.
var ErrAllProvidersUnavailable = errors.New("all verification providers unavailable")

// AlertFunc receives operator-visible alert conditions
type AlertFunc func(condition string, articleID string)

// Flags attached to results by the orchestrator
const (
	FlagAllProvidersUnavailable = "all_providers_unavailable"
	FlagNoClaims                = "no_claims"
	FlagDisagreement            = "provider_disagreement"
)

// Orchestrator runs verification passes. Stateless between passes apart
// from the provider registry it consults, so config changes picked up
// by the caller apply to the next pass.
type Orchestrator struct {
	registry *provider.Registry
	cfg      model.VerifyConfig
	alert    AlertFunc

	sleep func(time.Duration) // Injectable for tests
	now   func() time.Time
}

// NewOrchestrator creates a verification orchestrator
func NewOrchestrator(registry *provider.Registry, cfg model.VerifyConfig, alert AlertFunc) *Orchestrator {
	if alert == nil {
		alert = func(condition, articleID string) {
			logging.Error("alert", "condition", condition, "article", articleID)
		}
	}
	return &Orchestrator{
		registry: registry,
		cfg:      cfg,
		alert:    alert,
		sleep:    time.Sleep,
		now:      time.Now,
	}
}

// Verify produces a FactCheckResult for an article with extracted
// claims. Every pass creates a new result; prior results are kept.
//
// A cancelled ctx abandons the pass: in-flight provider calls run to
// completion on their own goroutines but their verdicts are discarded,
// never awaited.
func (o *Orchestrator) Verify(ctx context.Context, article *model.Article) (*model.FactCheckResult, error) {
	start := o.now()

	result := &model.FactCheckResult{
		ID:        uuid.NewString(),
		ArticleID: article.ID,
		CreatedAt: start.UTC(),
	}

	if len(article.Claims) == 0 {
		result.Label = model.LabelUnverifiable
		result.Rating = model.RatingFor(result.Label, 0)
		result.Flags = append(result.Flags, FlagNoClaims)
		result.ProcessingTime = o.now().Sub(start)
		return result, nil
	}

	if len(o.registry.Enabled()) == 0 {
		return o.degraded(result, article, start)
	}

	claimVerdicts := make([]model.ClaimVerdict, 0, len(article.Claims))
	anySuccess := false
	for _, claim := range article.Claims {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		cv := o.verifyClaim(ctx, claim)
		for _, v := range cv.Verdicts {
			if !v.Failed {
				anySuccess = true
			}
			if v.Retried {
				result.Retries++
			}
		}
		claimVerdicts = append(claimVerdicts, cv)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if !anySuccess {
		return o.degraded(result, article, start)
	}

	aggregateArticle(result, claimVerdicts, o.cfg.ReviewThreshold)
	result.ProcessingTime = o.now().Sub(start)

	logging.Debug("verification pass complete", "article", article.ID,
		"label", result.Label, "confidence", result.Confidence,
		"disagreement", result.Disagreement)

	return result, nil
}

// verifyClaim fans one claim out to all currently-enabled providers
// concurrently and reconciles the verdicts. The enabled set is re-read
// per claim so mid-pass cooldowns take effect immediately.
func (o *Orchestrator) verifyClaim(ctx context.Context, claim model.Claim) model.ClaimVerdict {
	names := o.registry.Enabled()
	if len(names) == 0 {
		return model.ClaimVerdict{
			Claim: claim,
			Label: model.LabelUnverifiable,
		}
	}

	// Buffered so abandoned calls can still complete without blocking.
	results := make(chan model.VerificationVerdict, len(names))
	for _, name := range names {
		go func(name string) {
			results <- o.callWithRetry(ctx, name, claim)
		}(name)
	}

	verdicts := make([]model.VerificationVerdict, 0, len(names))
	for range names {
		select {
		case v := <-results:
			verdicts = append(verdicts, v)
		case <-ctx.Done():
			// Discard whatever is still in flight.
			return aggregateClaim(claim, verdicts, o.registry.Weight)
		}
	}

	return aggregateClaim(claim, verdicts, o.registry.Weight)
}

// callWithRetry performs one provider call, retrying exactly once with
// backoff on timeout. Rate-limited calls are never retried within a
// pass; the registry has already put the provider into cooldown.
func (o *Orchestrator) callWithRetry(ctx context.Context, name string, claim model.Claim) model.VerificationVerdict {
	verdict, err := o.registry.Verify(ctx, name, claim)
	if err == nil || !errors.Is(err, provider.ErrTimeout) || ctx.Err() != nil {
		return verdict
	}

	backoff := o.cfg.RetryBackoff
	if backoff <= 0 {
		backoff = 500 * time.Millisecond
	}
	o.sleep(backoff)

	if ctx.Err() != nil {
		return verdict
	}
	retried, err := o.registry.Verify(ctx, name, claim)
	if err != nil {
		logging.Debug("provider retry failed", "provider", name, "error", err)
	}
	retried.Retried = true
	return retried
}

// degraded finalizes an article result when no provider vote exists
func (o *Orchestrator) degraded(result *model.FactCheckResult, article *model.Article, start time.Time) (*model.FactCheckResult, error) {
	result.Label = model.LabelUnverifiable
	result.Confidence = 0
	result.Rating = model.RatingFor(result.Label, 0)
	result.Flags = append(result.Flags, FlagAllProvidersUnavailable)
	result.NeedsHumanReview = true
	result.ProcessingTime = o.now().Sub(start)

	o.alert(FlagAllProvidersUnavailable, article.ID)

	return result, ErrAllProvidersUnavailable
}
