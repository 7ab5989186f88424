package provider

import (
	"fmt"
	"strings"

	"github.com/veracitylab/veracity/internal/model"
)

// NewVerifier creates a verifier from provider configuration
func NewVerifier(cfg model.ProviderConfig, proxy model.ProxyConfig) (Verifier, error) {
	switch strings.ToLower(cfg.Type) {
	case "openai":
		return NewOpenAIVerifier(cfg, proxy)

	case "anthropic", "claude":
		return NewAnthropicVerifier(cfg, proxy)

	case "ollama":
		return NewOllamaVerifier(cfg, proxy)

	case "static":
		label, confidence := parseStaticVerdict(cfg.Model)
		return NewStaticVerifier(cfg.Name, label, confidence), nil

	default:
		return nil, fmt.Errorf("unknown provider type: %s (supported: openai, anthropic, ollama, static)", cfg.Type)
	}
}

// parseStaticVerdict reads a fixed verdict from the model field, in
// the form "label" or "label:confidence" (e.g. "supported:0.9").
// Anything unparsable falls back to unverifiable/0.
func parseStaticVerdict(spec string) (model.Label, float64) {
	label := model.LabelUnverifiable
	confidence := 0.0

	parts := strings.SplitN(strings.TrimSpace(spec), ":", 2)
	switch model.Label(strings.ToLower(parts[0])) {
	case model.LabelSupported:
		label = model.LabelSupported
	case model.LabelContradicted:
		label = model.LabelContradicted
	}
	if len(parts) == 2 {
		if _, err := fmt.Sscanf(parts[1], "%f", &confidence); err != nil {
			confidence = 0
		}
	}
	return label, confidence
}
