package extract

import (
	"strings"

	"golang.org/x/net/html"
)

// NormalizeBody reduces an article body to plain visible text. Crawled
// bodies frequently arrive with residual markup; anything that parses
// as HTML with element nodes is stripped, plain text passes through
// with whitespace collapsed.
func NormalizeBody(body string) string {
	if !strings.Contains(body, "<") {
		return collapseWhitespace(body)
	}

	doc, err := html.Parse(strings.NewReader(body))
	if err != nil {
		return collapseWhitespace(body)
	}

	return collapseWhitespace(visibleText(doc))
}

// visibleText extracts text nodes from HTML, skipping scripts/styles
func visibleText(n *html.Node) string {
	var buf strings.Builder

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript", "iframe":
				return
			}
		}

		if n.Type == html.TextNode {
			text := strings.TrimSpace(n.Data)
			if text != "" {
				buf.WriteString(text)
				buf.WriteString(" ")
			}
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}

	walk(n)
	return buf.String()
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// sentence is a sentence with its character span in the normalized text
type sentence struct {
	text  string
	start int
	end   int
}

// splitSentences splits text into sentences, keeping character offsets.
// Sentences outside [minLen, maxLen] are dropped: very short fragments
// are rarely checkable and very long ones are usually list debris.
func splitSentences(text string, minLen, maxLen int) []sentence {
	var sentences []sentence
	start := 0

	flush := func(end int) {
		raw := text[start:end]
		trimmed := strings.TrimSpace(raw)
		if len(trimmed) >= minLen && len(trimmed) <= maxLen {
			lead := strings.Index(raw, trimmed)
			sentences = append(sentences, sentence{
				text:  trimmed,
				start: start + lead,
				end:   start + lead + len(trimmed),
			})
		}
		start = end
	}

	for i := 0; i < len(text); i++ {
		c := text[i]
		if c != '.' && c != '!' && c != '?' {
			continue
		}
		// Split only on terminator followed by whitespace, to avoid
		// breaking on abbreviations and decimals.
		if i+1 < len(text) && text[i+1] != ' ' && text[i+1] != '\t' {
			continue
		}
		flush(i + 1)
	}

	if start < len(text) {
		flush(len(text))
	}

	return sentences
}
