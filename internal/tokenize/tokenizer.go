// Package tokenize normalizes headline text into token sets and builds the
// inverted index the clustering engine uses for candidate lookup.
package tokenize

import (
	"strings"
	"sync"
	"unicode"
)

// stopWords are dropped during tokenization. High-frequency connective words
// that carry no story identity.
var stopWords = map[string]struct{}{
	"the": {}, "and": {}, "for": {}, "with": {}, "from": {}, "after": {},
	"over": {}, "into": {}, "amid": {}, "says": {}, "say": {}, "said": {},
	"will": {}, "has": {}, "have": {}, "are": {}, "was": {}, "were": {},
	"this": {}, "that": {}, "its": {}, "his": {}, "her": {}, "their": {},
	"new": {}, "more": {}, "most": {}, "not": {}, "but": {},
	"out": {}, "about": {}, "against": {}, "could": {}, "would": {},
	"you": {}, "your": {}, "than": {}, "been": {}, "being": {}, "what": {},
}

// Tokenizer produces normalized token sets for titles. Results are memoized
// per distinct title; the cache is scoped to one refresh cycle — call Reset
// between cycles.
type Tokenizer struct {
	minTokenLength int

	mu    sync.Mutex
	cache map[string]map[string]struct{}
}

// NewTokenizer creates a tokenizer dropping tokens shorter than minTokenLength.
func NewTokenizer(minTokenLength int) *Tokenizer {
	if minTokenLength < 1 {
		minTokenLength = 3
	}
	return &Tokenizer{
		minTokenLength: minTokenLength,
		cache:          make(map[string]map[string]struct{}),
	}
}

// Tokenize lowercases the title, splits on non-word boundaries, drops short
// tokens and stop words. Pure apart from the memo cache.
func (t *Tokenizer) Tokenize(title string) map[string]struct{} {
	t.mu.Lock()
	if cached, ok := t.cache[title]; ok {
		t.mu.Unlock()
		return cached
	}
	t.mu.Unlock()

	tokens := tokenizeString(title, t.minTokenLength)

	t.mu.Lock()
	t.cache[title] = tokens
	t.mu.Unlock()

	return tokens
}

// Reset clears the per-cycle memo cache.
func (t *Tokenizer) Reset() {
	t.mu.Lock()
	t.cache = make(map[string]map[string]struct{})
	t.mu.Unlock()
}

func tokenizeString(title string, minLength int) map[string]struct{} {
	lower := strings.ToLower(title)

	tokens := make(map[string]struct{})
	var b strings.Builder
	flush := func() {
		if b.Len() == 0 {
			return
		}
		word := b.String()
		b.Reset()
		if len(word) < minLength {
			return
		}
		if _, stop := stopWords[word]; stop {
			return
		}
		tokens[word] = struct{}{}
	}

	for _, r := range lower {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		} else {
			flush()
		}
	}
	flush()

	return tokens
}

// Jaccard returns |A∩B| / |A∪B| over two token sets. Symmetric; 0 for
// disjoint sets, 1 for identical. Two empty sets are treated as disjoint.
func Jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	small, large := a, b
	if len(b) < len(a) {
		small, large = b, a
	}

	intersection := 0
	for token := range small {
		if _, ok := large[token]; ok {
			intersection++
		}
	}

	union := len(a) + len(b) - intersection
	return float64(intersection) / float64(union)
}

// Overlap returns |A∩B| / min(|A|,|B|), the overlap coefficient. This is the
// similarity the clustering threshold is calibrated against: it keeps a short
// headline that is fully contained in a longer one from scoring low just
// because the longer title has more words. Symmetric like Jaccard.
func Overlap(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	small, large := a, b
	if len(b) < len(a) {
		small, large = b, a
	}

	intersection := 0
	for token := range small {
		if _, ok := large[token]; ok {
			intersection++
		}
	}

	return float64(intersection) / float64(len(small))
}
