package provider

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/veracitylab/veracity/internal/logging"
	"github.com/veracitylab/veracity/internal/model"
)

// State is a provider's lifecycle state in the registry
type State string

const (
	StateEnabled     State = "enabled"
	StateCoolingDown State = "cooling_down" // Temporarily excluded, re-enabled after the cooldown deadline
	StateDisabled    State = "disabled"     // Operator-disabled, stays out until re-enabled
)

// Stats is a point-in-time view of a provider's rolling counters
type Stats struct {
	State         State
	CooldownUntil time.Time
	Calls         int64
	Errors        int64
	ErrorRate     float64 // Over the rolling window
	AvgLatency    time.Duration
}

type entry struct {
	verifier Verifier
	weight   float64
	timeout  time.Duration
	limiter  *rate.Limiter

	state         State
	cooldownUntil time.Time
	window        *rollingWindow
	calls         int64
	errs          int64
	totalLatency  time.Duration
}

// Registry maintains the active provider set as explicit process-wide
// state: per-provider state machine, rolling error window for circuit
// breaking, and outbound rate limiting. All calls go through Verify so
// every outcome feeds the breaker.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*entry
	order   []string // Registration order, for stable fan-out

	breakerWindow     time.Duration
	breakerErrorRate  float64
	breakerMinSamples int
	cooldown          time.Duration

	now func() time.Time // Injectable clock for tests
}

// NewRegistry creates a provider registry with the given breaker policy
func NewRegistry(cfg model.VerifyConfig) *Registry {
	window := cfg.BreakerWindow
	if window <= 0 {
		window = time.Minute
	}
	errorRate := cfg.BreakerErrorRate
	if errorRate <= 0 {
		errorRate = 0.5
	}
	minSamples := cfg.BreakerMinSamples
	if minSamples <= 0 {
		minSamples = 5
	}
	cooldown := cfg.Cooldown
	if cooldown <= 0 {
		cooldown = 30 * time.Second
	}

	return &Registry{
		entries:           make(map[string]*entry),
		breakerWindow:     window,
		breakerErrorRate:  errorRate,
		breakerMinSamples: minSamples,
		cooldown:          cooldown,
		now:               time.Now,
	}
}

// Add registers a verifier. Re-adding an existing name replaces it and
// resets its counters.
func (r *Registry) Add(v Verifier, cfg model.ProviderConfig) {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := v.Name()
	if _, exists := r.entries[name]; !exists {
		r.order = append(r.order, name)
	}

	weight := cfg.Weight
	if weight <= 0 {
		weight = 1.0 // Default equal weight across providers
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	var limiter *rate.Limiter
	if cfg.RatePerSecond > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSecond), burst)
	}

	state := StateEnabled
	if !cfg.Enabled {
		state = StateDisabled
	}

	r.entries[name] = &entry{
		verifier: v,
		weight:   weight,
		timeout:  timeout,
		limiter:  limiter,
		state:    state,
		window:   newRollingWindow(r.breakerWindow),
	}
}

// Update re-applies weight, timeout and rate limit for a registered
// provider without touching its state machine, counters or rolling
// window. Rate changes adjust the existing limiter in place so accrued
// tokens survive a reload.
func (r *Registry) Update(name string, cfg model.ProviderConfig) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[name]
	if !ok {
		return
	}

	weight := cfg.Weight
	if weight <= 0 {
		weight = 1.0
	}
	e.weight = weight

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	e.timeout = timeout

	if cfg.RatePerSecond <= 0 {
		e.limiter = nil
		return
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	if e.limiter == nil {
		e.limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSecond), burst)
		return
	}
	e.limiter.SetLimit(rate.Limit(cfg.RatePerSecond))
	e.limiter.SetBurst(burst)
}

// Reconfigure re-applies the breaker policy. Window, error rate,
// minimum samples and cooldown all take effect on the next recorded
// outcome; a changed window duration restarts each provider's rolling
// history on fresh buckets.
func (r *Registry) Reconfigure(cfg model.VerifyConfig) {
	window := cfg.BreakerWindow
	if window <= 0 {
		window = time.Minute
	}
	errorRate := cfg.BreakerErrorRate
	if errorRate <= 0 {
		errorRate = 0.5
	}
	minSamples := cfg.BreakerMinSamples
	if minSamples <= 0 {
		minSamples = 5
	}
	cooldown := cfg.Cooldown
	if cooldown <= 0 {
		cooldown = 30 * time.Second
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if window != r.breakerWindow {
		r.breakerWindow = window
		for _, e := range r.entries {
			e.window = newRollingWindow(window)
		}
	}
	r.breakerErrorRate = errorRate
	r.breakerMinSamples = minSamples
	r.cooldown = cooldown
}

// Remove deletes a provider from the active set
func (r *Registry) Remove(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.entries, name)
	for i, n := range r.order {
		if n == name {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}

// Enable returns an operator-disabled or cooling provider to service
func (r *Registry) Enable(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.entries[name]; ok {
		e.state = StateEnabled
		e.cooldownUntil = time.Time{}
	}
}

// Disable removes a provider from fan-out until explicitly re-enabled
func (r *Registry) Disable(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.entries[name]; ok {
		e.state = StateDisabled
	}
}

// Enabled returns the names of providers currently eligible for
// fan-out, promoting any whose cooldown period has lapsed.
func (r *Registry) Enabled() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	var names []string
	for _, name := range r.order {
		e, ok := r.entries[name]
		if !ok {
			continue
		}
		if e.state == StateCoolingDown && now.After(e.cooldownUntil) {
			e.state = StateEnabled
			logging.Info("provider cooldown lapsed", "provider", name)
		}
		if e.state == StateEnabled {
			names = append(names, name)
		}
	}
	return names
}

// Weight returns a provider's static reliability weight (1.0 unknown)
func (r *Registry) Weight(name string) float64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if e, ok := r.entries[name]; ok {
		return e.weight
	}
	return 1.0
}

// Stats returns a provider's rolling counters
func (r *Registry) Stats(name string) (Stats, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.entries[name]
	if !ok {
		return Stats{}, false
	}

	var avg time.Duration
	if e.calls > 0 {
		avg = e.totalLatency / time.Duration(e.calls)
	}
	return Stats{
		State:         e.state,
		CooldownUntil: e.cooldownUntil,
		Calls:         e.calls,
		Errors:        e.errs,
		ErrorRate:     e.window.errorRate(r.now()),
		AvgLatency:    avg,
	}, true
}

// Verify performs one provider call bounded by the provider's timeout,
// records its outcome, and classifies any failure. It never retries:
// retry policy belongs to the orchestrator.
func (r *Registry) Verify(ctx context.Context, name string, claim model.Claim) (model.VerificationVerdict, error) {
	r.mu.RLock()
	e, ok := r.entries[name]
	var (
		verifier Verifier
		limiter  *rate.Limiter
		timeout  time.Duration
	)
	if ok {
		verifier = e.verifier
		limiter = e.limiter
		timeout = e.timeout
	}
	r.mu.RUnlock()
	if !ok {
		return model.VerificationVerdict{}, fmt.Errorf("%w: unknown provider %q", ErrProvider, name)
	}

	start := r.now()
	if limiter != nil {
		if err := limiter.Wait(ctx); err != nil {
			// A wait aborted by the deadline, or refused because it
			// cannot finish before one, counts as a timeout. Either
			// way the outcome feeds the breaker like any failed call.
			_, hasDeadline := ctx.Deadline()
			if ctx.Err() != context.Canceled && (ctx.Err() == context.DeadlineExceeded || hasDeadline) {
				err = fmt.Errorf("%w: %v", ErrTimeout, err)
			} else {
				err = fmt.Errorf("%w: %v", ErrProvider, err)
			}
			waited := r.now().Sub(start)
			r.recordOutcome(name, waited, err)
			return r.failedVerdict(name, claim, waited, err), err
		}
	}

	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	verdict, err := verifier.Verify(callCtx, claim)
	latency := r.now().Sub(start)

	if err != nil {
		// The verifier may surface the deadline as a bare context error.
		if callCtx.Err() == context.DeadlineExceeded && !errors.Is(err, ErrTimeout) {
			err = fmt.Errorf("%w: %v", ErrTimeout, err)
		}
		r.recordOutcome(name, latency, err)
		return r.failedVerdict(name, claim, latency, err), err
	}

	r.recordOutcome(name, latency, nil)

	return model.VerificationVerdict{
		ClaimKey:   claim.Key(),
		ClaimIndex: claim.Index,
		Provider:   name,
		Label:      verdict.Label,
		Confidence: clampConfidence(verdict.Confidence),
		Latency:    latency,
		CreatedAt:  r.now().UTC(),
	}, nil
}

// StartCooldown forces a provider into cooldown (e.g., after a
// rate-limit response observed by the orchestrator).
func (r *Registry) StartCooldown(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.startCooldownLocked(name)
}

func (r *Registry) startCooldownLocked(name string) {
	e, ok := r.entries[name]
	if !ok || e.state == StateDisabled {
		return
	}
	e.state = StateCoolingDown
	e.cooldownUntil = r.now().Add(r.cooldown)
	logging.Warn("provider entering cooldown", "provider", name, "until", e.cooldownUntil)
}

// recordOutcome updates rolling counters and trips the breaker when the
// windowed error rate crosses the threshold.
func (r *Registry) recordOutcome(name string, latency time.Duration, callErr error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[name]
	if !ok {
		return
	}

	now := r.now()
	e.calls++
	e.totalLatency += latency
	e.window.record(now, callErr != nil)
	if callErr == nil {
		return
	}
	e.errs++

	if errors.Is(callErr, ErrRateLimited) {
		r.startCooldownLocked(name)
		return
	}

	calls, errRate := e.window.sample(now)
	if calls >= r.breakerMinSamples && errRate >= r.breakerErrorRate {
		logging.Warn("provider error rate over threshold", "provider", name,
			"rate", fmt.Sprintf("%.2f", errRate), "calls", calls)
		r.startCooldownLocked(name)
	}
}

func (r *Registry) failedVerdict(name string, claim model.Claim, latency time.Duration, err error) model.VerificationVerdict {
	return model.VerificationVerdict{
		ClaimKey:   claim.Key(),
		ClaimIndex: claim.Index,
		Provider:   name,
		Label:      model.LabelUnverifiable,
		Latency:    latency,
		Failed:     true,
		Error:      err.Error(),
		CreatedAt:  r.now().UTC(),
	}
}
