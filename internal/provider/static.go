package provider

import (
	"context"

	"github.com/veracitylab/veracity/internal/model"
)

// StaticVerifier returns a fixed verdict for every claim. Useful for
// offline runs and as a deterministic baseline provider.
type StaticVerifier struct {
	name       string
	label      model.Label
	confidence float64
}

// NewStaticVerifier creates a fixed-verdict verifier
func NewStaticVerifier(name string, label model.Label, confidence float64) *StaticVerifier {
	if name == "" {
		name = "static"
	}
	return &StaticVerifier{
		name:       name,
		label:      label,
		confidence: clampConfidence(confidence),
	}
}

// Name returns the provider name
func (v *StaticVerifier) Name() string {
	return v.name
}

// Verify returns the configured fixed verdict
func (v *StaticVerifier) Verify(ctx context.Context, _ model.Claim) (Verdict, error) {
	if err := ctx.Err(); err != nil {
		return Verdict{}, err
	}
	return Verdict{Label: v.label, Confidence: v.confidence}, nil
}
