package provider

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/veracitylab/veracity/internal/model"
)

const verifySystemPrompt = "You are a fact-checking assistant. Judge whether a claim is supported by your knowledge. You respond with JSON only."

// buildVerifyPrompt constructs the claim verification prompt shared by
// the LLM-backed verifiers.
func buildVerifyPrompt(claim model.Claim) string {
	return fmt.Sprintf(`Judge the following claim. Respond with ONLY a JSON object:
{"label": "supported" | "contradicted" | "unverifiable", "confidence": <0.0-1.0>, "rationale": "<one sentence>"}

Use "unverifiable" when you cannot judge the claim either way.

Claim: %s`, claim.Text)
}

type verdictPayload struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
	Rationale  string  `json:"rationale"`
}

// parseVerdict parses an LLM verdict response, tolerating fenced code
// blocks around the JSON object.
func parseVerdict(content string) (Verdict, error) {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	content = strings.TrimSpace(content)

	var payload verdictPayload
	if err := json.Unmarshal([]byte(content), &payload); err != nil {
		return Verdict{}, fmt.Errorf("parse verdict: %v", err)
	}

	return Verdict{
		Label:      parseLabel(strings.ToLower(strings.TrimSpace(payload.Label))),
		Confidence: clampConfidence(payload.Confidence),
		Rationale:  payload.Rationale,
	}, nil
}
