package provider

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/veracitylab/veracity/internal/model"
)

type scriptedVerifier struct {
	name string
	fn   func(ctx context.Context, claim model.Claim) (Verdict, error)
}

func (s *scriptedVerifier) Name() string { return s.name }

func (s *scriptedVerifier) Verify(ctx context.Context, claim model.Claim) (Verdict, error) {
	return s.fn(ctx, claim)
}

func alwaysSupported(name string) *scriptedVerifier {
	return &scriptedVerifier{
		name: name,
		fn: func(ctx context.Context, claim model.Claim) (Verdict, error) {
			return Verdict{Label: model.LabelSupported, Confidence: 0.9}, nil
		},
	}
}

func alwaysFailing(name string) *scriptedVerifier {
	return &scriptedVerifier{
		name: name,
		fn: func(ctx context.Context, claim model.Claim) (Verdict, error) {
			return Verdict{}, fmt.Errorf("%w: backend down", ErrProvider)
		},
	}
}

func testClaim() model.Claim {
	return model.Claim{Text: "The company announced a merger", Index: 0}
}

func TestRegistryAddDefaults(t *testing.T) {
	r := NewRegistry(model.VerifyConfig{})
	r.Add(alwaysSupported("alpha"), model.ProviderConfig{Name: "alpha", Enabled: true})

	if w := r.Weight("alpha"); w != 1.0 {
		t.Errorf("expected default weight 1.0, got %f", w)
	}
	if w := r.Weight("unknown"); w != 1.0 {
		t.Errorf("unknown provider should weigh 1.0, got %f", w)
	}

	enabled := r.Enabled()
	if len(enabled) != 1 || enabled[0] != "alpha" {
		t.Errorf("expected [alpha], got %v", enabled)
	}
}

func TestRegistryEnableDisable(t *testing.T) {
	r := NewRegistry(model.VerifyConfig{})
	r.Add(alwaysSupported("alpha"), model.ProviderConfig{Name: "alpha", Enabled: true})
	r.Add(alwaysSupported("beta"), model.ProviderConfig{Name: "beta", Enabled: true})

	r.Disable("alpha")
	enabled := r.Enabled()
	if len(enabled) != 1 || enabled[0] != "beta" {
		t.Errorf("expected [beta] after disable, got %v", enabled)
	}

	r.Enable("alpha")
	if len(r.Enabled()) != 2 {
		t.Errorf("expected both providers after enable, got %v", r.Enabled())
	}

	r.Remove("beta")
	enabled = r.Enabled()
	if len(enabled) != 1 || enabled[0] != "alpha" {
		t.Errorf("expected [alpha] after remove, got %v", enabled)
	}
}

func TestRegistryVerifySuccess(t *testing.T) {
	r := NewRegistry(model.VerifyConfig{})
	r.Add(alwaysSupported("alpha"), model.ProviderConfig{Name: "alpha", Enabled: true, Weight: 1.5})

	v, err := r.Verify(context.Background(), "alpha", testClaim())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.Provider != "alpha" || v.Label != model.LabelSupported || v.Failed {
		t.Errorf("unexpected verdict: %+v", v)
	}
	if v.Confidence != 0.9 {
		t.Errorf("expected confidence 0.9, got %f", v.Confidence)
	}

	stats, ok := r.Stats("alpha")
	if !ok {
		t.Fatal("provider missing from registry")
	}
	if stats.Calls != 1 || stats.Errors != 0 {
		t.Errorf("expected 1 call 0 errors, got %d/%d", stats.Calls, stats.Errors)
	}
}

func TestRegistryVerifyUnknownProvider(t *testing.T) {
	r := NewRegistry(model.VerifyConfig{})
	_, err := r.Verify(context.Background(), "ghost", testClaim())
	if !errors.Is(err, ErrProvider) {
		t.Errorf("expected ErrProvider for unknown name, got %v", err)
	}
}

func TestRegistryBreakerTripsOnErrorRate(t *testing.T) {
	clock := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	r := NewRegistry(model.VerifyConfig{
		BreakerWindow:     time.Minute,
		BreakerErrorRate:  0.5,
		BreakerMinSamples: 3,
		Cooldown:          30 * time.Second,
	})
	r.now = func() time.Time { return clock }
	r.Add(alwaysFailing("alpha"), model.ProviderConfig{Name: "alpha", Enabled: true})

	for i := 0; i < 3; i++ {
		_, err := r.Verify(context.Background(), "alpha", testClaim())
		if err == nil {
			t.Fatal("expected provider error")
		}
	}

	stats, _ := r.Stats("alpha")
	if stats.State != StateCoolingDown {
		t.Fatalf("expected cooling_down after threshold, got %s", stats.State)
	}
	if len(r.Enabled()) != 0 {
		t.Errorf("cooling provider must be excluded from fan-out, got %v", r.Enabled())
	}

	// Cooldown lapse promotes the provider back to enabled.
	clock = clock.Add(31 * time.Second)
	enabled := r.Enabled()
	if len(enabled) != 1 || enabled[0] != "alpha" {
		t.Errorf("expected provider re-enabled after cooldown, got %v", enabled)
	}
	stats, _ = r.Stats("alpha")
	if stats.State != StateEnabled {
		t.Errorf("expected enabled after lapse, got %s", stats.State)
	}
}

func TestRegistryBreakerNeedsMinSamples(t *testing.T) {
	clock := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	r := NewRegistry(model.VerifyConfig{
		BreakerWindow:     time.Minute,
		BreakerErrorRate:  0.5,
		BreakerMinSamples: 5,
	})
	r.now = func() time.Time { return clock }
	r.Add(alwaysFailing("alpha"), model.ProviderConfig{Name: "alpha", Enabled: true})

	for i := 0; i < 4; i++ {
		_, _ = r.Verify(context.Background(), "alpha", testClaim())
	}

	stats, _ := r.Stats("alpha")
	if stats.State != StateEnabled {
		t.Errorf("4 errors under a 5-sample minimum must not trip the breaker, got %s", stats.State)
	}
}

func TestRegistryRateLimitImmediateCooldown(t *testing.T) {
	limited := &scriptedVerifier{
		name: "alpha",
		fn: func(ctx context.Context, claim model.Claim) (Verdict, error) {
			return Verdict{}, fmt.Errorf("%w: 429 too many requests", ErrRateLimited)
		},
	}

	r := NewRegistry(model.VerifyConfig{Cooldown: time.Minute})
	r.Add(limited, model.ProviderConfig{Name: "alpha", Enabled: true})

	v, err := r.Verify(context.Background(), "alpha", testClaim())
	if !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
	if !v.Failed {
		t.Error("rate limited call should yield a failed verdict")
	}

	stats, _ := r.Stats("alpha")
	if stats.State != StateCoolingDown {
		t.Errorf("single rate limit must start a cooldown, got %s", stats.State)
	}
}

func TestRegistryOperatorDisableSurvivesCooldown(t *testing.T) {
	r := NewRegistry(model.VerifyConfig{})
	r.Add(alwaysSupported("alpha"), model.ProviderConfig{Name: "alpha", Enabled: true})

	r.Disable("alpha")
	r.StartCooldown("alpha")

	stats, _ := r.Stats("alpha")
	if stats.State != StateDisabled {
		t.Errorf("cooldown must not override operator disable, got %s", stats.State)
	}
}

func TestRegistryTimeoutClassification(t *testing.T) {
	slow := &scriptedVerifier{
		name: "slow",
		fn: func(ctx context.Context, claim model.Claim) (Verdict, error) {
			<-ctx.Done()
			return Verdict{}, ctx.Err()
		},
	}

	r := NewRegistry(model.VerifyConfig{})
	r.Add(slow, model.ProviderConfig{Name: "slow", Enabled: true, Timeout: 10 * time.Millisecond})

	v, err := r.Verify(context.Background(), "slow", testClaim())
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("deadline exceeded should classify as ErrTimeout, got %v", err)
	}
	if !v.Failed || v.Label != model.LabelUnverifiable {
		t.Errorf("expected failed unverifiable verdict, got %+v", v)
	}
}

func TestRegistryConfidenceClamped(t *testing.T) {
	wild := &scriptedVerifier{
		name: "wild",
		fn: func(ctx context.Context, claim model.Claim) (Verdict, error) {
			return Verdict{Label: model.LabelSupported, Confidence: 1.7}, nil
		},
	}

	r := NewRegistry(model.VerifyConfig{})
	r.Add(wild, model.ProviderConfig{Name: "wild", Enabled: true})

	v, err := r.Verify(context.Background(), "wild", testClaim())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.Confidence != 1.0 {
		t.Errorf("confidence should clamp to 1.0, got %f", v.Confidence)
	}
}

func TestRegistryUpdateKeepsHistory(t *testing.T) {
	r := NewRegistry(model.VerifyConfig{})
	r.Add(alwaysSupported("alpha"), model.ProviderConfig{Name: "alpha", Enabled: true, Weight: 1.0})

	for i := 0; i < 3; i++ {
		if _, err := r.Verify(context.Background(), "alpha", testClaim()); err != nil {
			t.Fatalf("verify: %v", err)
		}
	}
	r.Disable("alpha")

	r.Update("alpha", model.ProviderConfig{Name: "alpha", Enabled: true, Weight: 5.0, Timeout: time.Second})

	if w := r.Weight("alpha"); w != 5.0 {
		t.Errorf("weight after update = %f, want 5.0", w)
	}
	stats, ok := r.Stats("alpha")
	if !ok {
		t.Fatal("provider vanished on update")
	}
	if stats.Calls != 3 {
		t.Errorf("call history lost on update: calls = %d, want 3", stats.Calls)
	}
	if stats.State != StateDisabled {
		t.Errorf("update must not touch the state machine, got %s", stats.State)
	}

	// Zero weight falls back to the default, same as Add.
	r.Update("alpha", model.ProviderConfig{Name: "alpha", Enabled: true})
	if w := r.Weight("alpha"); w != 1.0 {
		t.Errorf("weight after zero-weight update = %f, want 1.0", w)
	}

	r.Update("ghost", model.ProviderConfig{Name: "ghost", Weight: 3.0})
	if w := r.Weight("ghost"); w != 1.0 {
		t.Errorf("updating an unknown provider must not register it, weight = %f", w)
	}
}

func TestRegistryReconfigureBreakerPolicy(t *testing.T) {
	clock := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	r := NewRegistry(model.VerifyConfig{
		BreakerWindow:     time.Minute,
		BreakerErrorRate:  0.9,
		BreakerMinSamples: 50,
		Cooldown:          30 * time.Second,
	})
	r.now = func() time.Time { return clock }
	r.Add(alwaysFailing("alpha"), model.ProviderConfig{Name: "alpha", Enabled: true})

	for i := 0; i < 3; i++ {
		_, _ = r.Verify(context.Background(), "alpha", testClaim())
	}
	if stats, _ := r.Stats("alpha"); stats.State != StateEnabled {
		t.Fatalf("lenient policy must not trip on 3 errors, got %s", stats.State)
	}

	// A stricter policy applies to the next recorded outcome.
	r.Reconfigure(model.VerifyConfig{
		BreakerWindow:     time.Minute,
		BreakerErrorRate:  0.5,
		BreakerMinSamples: 3,
		Cooldown:          5 * time.Second,
	})
	_, _ = r.Verify(context.Background(), "alpha", testClaim())

	stats, _ := r.Stats("alpha")
	if stats.State != StateCoolingDown {
		t.Fatalf("expected cooling_down under the stricter policy, got %s", stats.State)
	}
	if want := clock.Add(5 * time.Second); !stats.CooldownUntil.Equal(want) {
		t.Errorf("cooldown until %v, want the reconfigured 5s (%v)", stats.CooldownUntil, want)
	}
}

func TestRegistryLimiterWaitFeedsBreaker(t *testing.T) {
	r := NewRegistry(model.VerifyConfig{})
	r.Add(alwaysSupported("alpha"), model.ProviderConfig{
		Name: "alpha", Enabled: true,
		RatePerSecond: 0.001, Burst: 1,
	})

	// First call consumes the burst token.
	if _, err := r.Verify(context.Background(), "alpha", testClaim()); err != nil {
		t.Fatalf("first call: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	verdict, err := r.Verify(ctx, "alpha", testClaim())
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("a wait cut short by the deadline must classify as timeout, got %v", err)
	}
	if !verdict.Failed {
		t.Error("expected a failed verdict from the aborted wait")
	}

	stats, _ := r.Stats("alpha")
	if stats.Calls != 2 {
		t.Errorf("aborted wait must count as a call, got %d", stats.Calls)
	}
	if stats.Errors != 1 {
		t.Errorf("aborted wait must count as an error, got %d", stats.Errors)
	}
	if stats.ErrorRate != 0.5 {
		t.Errorf("aborted wait must feed the rolling window, rate = %f", stats.ErrorRate)
	}
}
