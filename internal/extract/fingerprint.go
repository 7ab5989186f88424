package extract

import (
	"sort"
	"strings"

	"github.com/veracitylab/veracity/internal/model"
)

// Fingerprint computes an article's content fingerprint: a 64-bit
// locality-sensitive hash over word trigrams for near-duplicate
// detection, plus a bounded keyword signature for topical comparison.
// Computed once at ingestion; immutable afterwards.
func Fingerprint(body string, keywordCount int) *model.Fingerprint {
	if keywordCount <= 0 {
		keywordCount = 24
	}

	text := normalizeForHashing(NormalizeBody(body))

	return &model.Fingerprint{
		SimHash:  simHash(text),
		Keywords: topKeywords(text, keywordCount),
	}
}

// normalizeForHashing lowercases and strips everything but letters,
// digits and spaces so syndicated copies with formatting differences
// hash alike.
func normalizeForHashing(text string) string {
	text = strings.ToLower(text)
	return strings.Map(func(r rune) rune {
		if r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == ' ' {
			return r
		}
		return ' '
	}, text)
}

// simHash sets one bit per word trigram, giving a cheap
// locality-sensitive signature comparable by Hamming distance.
func simHash(text string) uint64 {
	words := strings.Fields(text)

	var hash uint64
	for i := 0; i+2 < len(words); i++ {
		trigram := words[i] + " " + words[i+1] + " " + words[i+2]
		var h uint64 = 5381
		for _, c := range trigram {
			h = ((h << 5) + h) + uint64(c)
		}
		hash |= 1 << (h % 64)
	}

	return hash
}

// stopwords excluded from keyword signatures
var stopwords = map[string]bool{
	"the": true, "a": true, "an": true, "and": true, "or": true,
	"but": true, "of": true, "to": true, "in": true, "on": true,
	"at": true, "for": true, "with": true, "by": true, "from": true,
	"is": true, "are": true, "was": true, "were": true, "be": true,
	"been": true, "has": true, "have": true, "had": true, "it": true,
	"its": true, "this": true, "that": true, "these": true, "those": true,
	"as": true, "will": true, "would": true, "said": true, "he": true,
	"she": true, "they": true, "we": true, "not": true, "their": true,
	"his": true, "her": true, "who": true, "which": true, "also": true,
	"more": true, "about": true, "after": true, "into": true, "than": true,
}

// topKeywords returns the k most frequent non-stopword terms, sorted
// by frequency then alphabetically for determinism.
func topKeywords(text string, k int) []string {
	counts := make(map[string]int)
	for _, w := range strings.Fields(text) {
		if len(w) < 3 || stopwords[w] {
			continue
		}
		counts[w]++
	}

	terms := make([]string, 0, len(counts))
	for w := range counts {
		terms = append(terms, w)
	}
	sort.Slice(terms, func(i, j int) bool {
		if counts[terms[i]] != counts[terms[j]] {
			return counts[terms[i]] > counts[terms[j]]
		}
		return terms[i] < terms[j]
	})

	if len(terms) > k {
		terms = terms[:k]
	}
	sort.Strings(terms)
	return terms
}
