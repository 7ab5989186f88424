package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/sashabaranov/go-openai"

	"github.com/veracitylab/veracity/internal/model"
	"github.com/veracitylab/veracity/internal/util"
)

// OpenAIVerifier verifies claims with OpenAI chat models
type OpenAIVerifier struct {
	name   string
	client *openai.Client
	model  string
}

// NewOpenAIVerifier creates an OpenAI-backed verifier
func NewOpenAIVerifier(cfg model.ProviderConfig, proxy model.ProxyConfig) (*OpenAIVerifier, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	clientConfig.HTTPClient = &http.Client{
		Transport: &http.Transport{
			Proxy: util.NewProxyFunc(proxy.HTTPProxy, proxy.HTTPSProxy, proxy.NoProxy),
		},
	}

	chatModel := cfg.Model
	if chatModel == "" {
		chatModel = openai.GPT4oMini
	}

	name := cfg.Name
	if name == "" {
		name = "openai"
	}

	return &OpenAIVerifier{
		name:   name,
		client: openai.NewClientWithConfig(clientConfig),
		model:  chatModel,
	}, nil
}

// Name returns the provider name
func (v *OpenAIVerifier) Name() string {
	return v.name
}

// Verify judges a single claim
func (v *OpenAIVerifier) Verify(ctx context.Context, claim model.Claim) (Verdict, error) {
	resp, err := v.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: v.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: verifySystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: buildVerifyPrompt(claim)},
		},
		Temperature: 0.1,
	})
	if err != nil {
		return Verdict{}, classifyOpenAIError(err)
	}

	if len(resp.Choices) == 0 {
		return Verdict{}, fmt.Errorf("%w: empty response", ErrProvider)
	}

	verdict, err := parseVerdict(resp.Choices[0].Message.Content)
	if err != nil {
		return Verdict{}, fmt.Errorf("%w: %v", ErrProvider, err)
	}
	return verdict, nil
}

// classifyOpenAIError maps client errors onto the call taxonomy
func classifyOpenAIError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode == http.StatusTooManyRequests {
		return fmt.Errorf("%w: %v", ErrRateLimited, err)
	}

	return fmt.Errorf("%w: %v", ErrProvider, err)
}
