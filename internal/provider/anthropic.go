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

// AnthropicVerifier verifies claims with Anthropic Claude models
type AnthropicVerifier struct {
	name       string
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
}

// Anthropic API structures
type anthropicRequest struct {
	Model       string             `json:"model"`
	MaxTokens   int                `json:"max_tokens"`
	Messages    []anthropicMessage `json:"messages"`
	System      string             `json:"system,omitempty"`
	Temperature float64            `json:"temperature,omitempty"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
}

type anthropicError struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// NewAnthropicVerifier creates an Anthropic-backed verifier
func NewAnthropicVerifier(cfg model.ProviderConfig, proxy model.ProxyConfig) (*AnthropicVerifier, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("Anthropic API key is required")
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://api.anthropic.com"
	}

	chatModel := cfg.Model
	if chatModel == "" {
		chatModel = "claude-3-5-haiku-20241022"
	}

	name := cfg.Name
	if name == "" {
		name = "anthropic"
	}

	return &AnthropicVerifier{
		name:    name,
		apiKey:  cfg.APIKey,
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
func (v *AnthropicVerifier) Name() string {
	return v.name
}

// Verify judges a single claim
func (v *AnthropicVerifier) Verify(ctx context.Context, claim model.Claim) (Verdict, error) {
	reqBody := anthropicRequest{
		Model:     v.model,
		MaxTokens: 300,
		System:    verifySystemPrompt,
		Messages: []anthropicMessage{
			{Role: "user", Content: buildVerifyPrompt(claim)},
		},
		Temperature: 0.1,
	}

	content, err := v.makeRequest(ctx, reqBody)
	if err != nil {
		return Verdict{}, err
	}

	verdict, err := parseVerdict(content)
	if err != nil {
		return Verdict{}, fmt.Errorf("%w: %v", ErrProvider, err)
	}
	return verdict, nil
}

func (v *AnthropicVerifier) makeRequest(ctx context.Context, reqBody anthropicRequest) (string, error) {
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("%w: marshal request: %v", ErrProvider, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.baseURL+"/v1/messages", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("%w: create request: %v", ErrProvider, err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", v.apiKey)
	req.Header.Set("anthropic-version", "2023-06-01")

	resp, err := v.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil {
			return "", fmt.Errorf("%w: %v", ErrTimeout, err)
		}
		return "", fmt.Errorf("%w: %v", ErrProvider, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("%w: read response: %v", ErrProvider, err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return "", fmt.Errorf("%w: HTTP 429", ErrRateLimited)
	}
	if resp.StatusCode != http.StatusOK {
		var apiErr anthropicError
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Error.Message != "" {
			return "", fmt.Errorf("%w: %s (HTTP %d)", ErrProvider, apiErr.Error.Message, resp.StatusCode)
		}
		return "", fmt.Errorf("%w: HTTP %d", ErrProvider, resp.StatusCode)
	}

	var apiResp anthropicResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return "", fmt.Errorf("%w: parse response: %v", ErrProvider, err)
	}
	if len(apiResp.Content) == 0 {
		return "", fmt.Errorf("%w: empty response", ErrProvider)
	}

	return apiResp.Content[0].Text, nil
}
