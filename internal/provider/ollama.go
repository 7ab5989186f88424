package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/veracitylab/veracity/internal/model"
	"github.com/veracitylab/veracity/internal/util"
)

// OllamaVerifier verifies claims with a local Ollama model
type OllamaVerifier struct {
	name       string
	baseURL    string
	model      string
	httpClient *http.Client
}

// Ollama API structures
type ollamaRequest struct {
	Model   string        `json:"model"`
	Prompt  string        `json:"prompt"`
	System  string        `json:"system,omitempty"`
	Stream  bool          `json:"stream"`
	Options ollamaOptions `json:"options,omitempty"`
}

type ollamaOptions struct {
	Temperature float64 `json:"temperature,omitempty"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

type ollamaResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

// NewOllamaVerifier creates an Ollama-backed verifier
func NewOllamaVerifier(cfg model.ProviderConfig, proxy model.ProxyConfig) (*OllamaVerifier, error) {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}

	chatModel := cfg.Model
	if chatModel == "" {
		chatModel = "llama3.2"
	}

	name := cfg.Name
	if name == "" {
		name = "ollama"
	}

	return &OllamaVerifier{
		name:    name,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		model:   chatModel,
		httpClient: &http.Client{
			Transport: &http.Transport{
				Proxy: util.NewProxyFunc(proxy.HTTPProxy, proxy.HTTPSProxy, proxy.NoProxy),
			},
		},
	}, nil
}

// Name returns the provider name
func (v *OllamaVerifier) Name() string {
	return v.name
}

// Verify judges a single claim
func (v *OllamaVerifier) Verify(ctx context.Context, claim model.Claim) (Verdict, error) {
	reqBody := ollamaRequest{
		Model:  v.model,
		Prompt: buildVerifyPrompt(claim),
		System: verifySystemPrompt,
		Stream: false,
		Options: ollamaOptions{
			Temperature: 0.1,
			NumPredict:  300,
		},
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return Verdict{}, fmt.Errorf("%w: marshal request: %v", ErrProvider, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.baseURL+"/api/generate", bytes.NewReader(payload))
	if err != nil {
		return Verdict{}, fmt.Errorf("%w: create request: %v", ErrProvider, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := v.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil {
			return Verdict{}, fmt.Errorf("%w: %v", ErrTimeout, err)
		}
		return Verdict{}, fmt.Errorf("%w: %v", ErrProvider, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Verdict{}, fmt.Errorf("%w: read response: %v", ErrProvider, err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return Verdict{}, fmt.Errorf("%w: HTTP 429", ErrRateLimited)
	}
	if resp.StatusCode != http.StatusOK {
		return Verdict{}, fmt.Errorf("%w: HTTP %d", ErrProvider, resp.StatusCode)
	}

	var apiResp ollamaResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return Verdict{}, fmt.Errorf("%w: parse response: %v", ErrProvider, err)
	}

	verdict, err := parseVerdict(apiResp.Response)
	if err != nil {
		return Verdict{}, fmt.Errorf("%w: %v", ErrProvider, err)
	}
	return verdict, nil
}
