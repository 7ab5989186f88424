// Package provider adapts heterogeneous external verification services
// behind one interface and manages their lifecycle: timeouts, rate
// limiting, rolling error statistics and circuit breaking.
package provider

import (
	"context"
	"errors"

	"github.com/veracitylab/veracity/internal/model"
)

// Call failure taxonomy. Retry policy belongs to the orchestrator; the
// adapter only classifies.
var (
	// ErrTimeout indicates the per-call timeout elapsed.
	ErrTimeout = errors.New("provider timeout")

	// ErrRateLimited indicates the provider refused the call for rate
	// reasons. Triggers a cool-down; never retried within a pass.
	ErrRateLimited = errors.New("provider rate limited")

	// ErrProvider covers all other provider-side failures.
	ErrProvider = errors.New("provider error")
)

// Verdict is a provider's raw judgment on a single claim
type Verdict struct {
	Label      model.Label
	Confidence float64 // Raw confidence in [0,1]
	Rationale  string  // Optional short justification, kept for audit
}

// Verifier is the polymorphic verification capability: one claim in,
// one verdict out. Implementations must respect ctx cancellation.
type Verifier interface {
	Name() string
	Verify(ctx context.Context, claim model.Claim) (Verdict, error)
}

// clampConfidence forces a provider-reported confidence into [0,1]
func clampConfidence(c float64) float64 {
	if c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}

// parseLabel normalizes a provider-reported label string
func parseLabel(s string) model.Label {
	switch s {
	case "supported", "true", "verified":
		return model.LabelSupported
	case "contradicted", "false", "disputed":
		return model.LabelContradicted
	default:
		return model.LabelUnverifiable
	}
}
