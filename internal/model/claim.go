package model

// Claim represents a checkable factual assertion extracted from an article
type Claim struct {
	Text      string `json:"text"`                // The claim text itself
	Start     int    `json:"start"`               // Character offset of the claim in the article body
	End       int    `json:"end"`                 // Offset one past the claim's last character
	Index     int    `json:"index"`               // Claim ordinal within the article (0-based)
	Heuristic string `json:"heuristic,omitempty"` // Which extraction rule matched (e.g., "keyword:raised")
}

// Key returns a stable identity for the claim within its article.
// Verdicts reference claims by this key so audit records survive
// re-extraction as long as the text is unchanged.
func (c Claim) Key() string {
	return c.Text
}
