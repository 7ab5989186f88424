package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/veracitylab/veracity/internal/model"
)

// LLMExtractor extracts claims with a chat-completion model. Unlike the
// heuristic extractor it can fail (service down, bad key); callers map
// that to the extraction_failed article state.
type LLMExtractor struct {
	client    *openai.Client
	model     string
	maxClaims int
}

// NewLLMExtractor creates an LLM-backed claim extractor
func NewLLMExtractor(cfg model.ExtractionConfig) (*LLMExtractor, error) {
	if cfg.LLMAPIKey == "" {
		return nil, fmt.Errorf("LLM extractor requires an API key")
	}

	clientConfig := openai.DefaultConfig(cfg.LLMAPIKey)
	if cfg.LLMBaseURL != "" {
		clientConfig.BaseURL = cfg.LLMBaseURL
	}

	chatModel := cfg.LLMModel
	if chatModel == "" {
		chatModel = openai.GPT4oMini
	}

	maxClaims := cfg.MaxClaims
	if maxClaims <= 0 {
		maxClaims = 10
	}

	return &LLMExtractor{
		client:    openai.NewClientWithConfig(clientConfig),
		model:     chatModel,
		maxClaims: maxClaims,
	}, nil
}

const extractPrompt = `Extract up to %d short, independently checkable factual claims from the article below. Return ONLY a JSON array of strings, each string one claim quoted or closely paraphrased from the text. Return [] if the article contains no checkable factual statement.

Article:
%s`

// Extract extracts claims from plain article text
func (e *LLMExtractor) Extract(ctx context.Context, text string) ([]model.Claim, error) {
	resp, err := e.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: e.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: "You extract factual claims from news articles. You respond with JSON only.",
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: fmt.Sprintf(extractPrompt, e.maxClaims, text),
			},
		},
		Temperature: 0.1,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExtractionFailed, err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: empty response", ErrExtractionFailed)
	}

	texts, err := parseClaimList(resp.Choices[0].Message.Content)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExtractionFailed, err)
	}

	var claims []model.Claim
	for _, t := range texts {
		if len(claims) >= e.maxClaims {
			break
		}
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		start, end := locate(text, t)
		claims = append(claims, model.Claim{
			Text:      t,
			Start:     start,
			End:       end,
			Index:     len(claims),
			Heuristic: "llm:" + e.model,
		})
	}

	return dedupeClaims(claims), nil
}

// parseClaimList tolerates fenced code blocks around the JSON array
func parseClaimList(content string) ([]string, error) {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	content = strings.TrimSpace(content)

	var texts []string
	if err := json.Unmarshal([]byte(content), &texts); err != nil {
		return nil, fmt.Errorf("parse claim list: %v", err)
	}
	return texts, nil
}

// locate finds a claim's span in the source text. Paraphrased claims
// that no longer appear verbatim get a zero span.
func locate(text, claim string) (start, end int) {
	idx := strings.Index(text, claim)
	if idx < 0 {
		return 0, 0
	}
	return idx, idx + len(claim)
}
