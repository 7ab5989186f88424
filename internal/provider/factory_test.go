package provider

import (
	"context"
	"testing"

	"github.com/veracitylab/veracity/internal/model"
)

func TestNewVerifierTypes(t *testing.T) {
	cases := []struct {
		cfg     model.ProviderConfig
		wantErr bool
	}{
		{model.ProviderConfig{Name: "o", Type: "openai", APIKey: "sk-test"}, false},
		{model.ProviderConfig{Name: "a", Type: "anthropic", APIKey: "sk-ant-test"}, false},
		{model.ProviderConfig{Name: "c", Type: "claude", APIKey: "sk-ant-test"}, false},
		{model.ProviderConfig{Name: "l", Type: "ollama"}, false},
		{model.ProviderConfig{Name: "s", Type: "static"}, false},
		{model.ProviderConfig{Name: "x", Type: "carrier-pigeon"}, true},
	}

	for _, tc := range cases {
		v, err := NewVerifier(tc.cfg, model.ProxyConfig{})
		if tc.wantErr {
			if err == nil {
				t.Errorf("type %q: expected error", tc.cfg.Type)
			}
			continue
		}
		if err != nil {
			t.Errorf("type %q: unexpected error: %v", tc.cfg.Type, err)
			continue
		}
		if v.Name() != tc.cfg.Name {
			t.Errorf("type %q: name %q, want %q", tc.cfg.Type, v.Name(), tc.cfg.Name)
		}
	}
}

func TestParseStaticVerdict(t *testing.T) {
	cases := []struct {
		spec       string
		label      model.Label
		confidence float64
	}{
		{"supported:0.9", model.LabelSupported, 0.9},
		{"contradicted:0.5", model.LabelContradicted, 0.5},
		{"supported", model.LabelSupported, 0},
		{"", model.LabelUnverifiable, 0},
		{"nonsense:abc", model.LabelUnverifiable, 0},
	}

	for _, tc := range cases {
		label, confidence := parseStaticVerdict(tc.spec)
		if label != tc.label || confidence != tc.confidence {
			t.Errorf("%q: got %s/%f, want %s/%f", tc.spec, label, confidence, tc.label, tc.confidence)
		}
	}
}

func TestStaticVerifier(t *testing.T) {
	v := NewStaticVerifier("s", model.LabelSupported, 0.8)

	verdict, err := v.Verify(context.Background(), model.Claim{Text: "claim"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if verdict.Label != model.LabelSupported || verdict.Confidence != 0.8 {
		t.Errorf("unexpected verdict: %+v", verdict)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := v.Verify(ctx, model.Claim{Text: "claim"}); err == nil {
		t.Error("cancelled context should fail")
	}
}
