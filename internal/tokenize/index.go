package tokenize

// InvertedIndex maps token to the indices of the items containing it.
// Candidate lookup through the index is a superset guarantee, not just a
// performance trick: two items with zero shared tokens have Jaccard 0 and are
// never compared.
type InvertedIndex struct {
	postings map[string][]int
	tokens   []map[string]struct{} // per item, same order as input
}

// BuildIndex tokenizes every title and builds the inverted index.
// The item order of titles is preserved in the postings.
func BuildIndex(t *Tokenizer, titles []string) *InvertedIndex {
	idx := &InvertedIndex{
		postings: make(map[string][]int),
		tokens:   make([]map[string]struct{}, len(titles)),
	}

	for i, title := range titles {
		tokens := t.Tokenize(title)
		idx.tokens[i] = tokens
		for token := range tokens {
			idx.postings[token] = append(idx.postings[token], i)
		}
	}

	return idx
}

// Tokens returns the token set of item i.
func (idx *InvertedIndex) Tokens(i int) map[string]struct{} {
	return idx.tokens[i]
}

// Candidates returns the indices of all items sharing at least one token with
// item i, excluding i itself. The result is a superset of any item actually
// similar to i.
func (idx *InvertedIndex) Candidates(i int) []int {
	seen := make(map[int]struct{})
	for token := range idx.tokens[i] {
		for _, j := range idx.postings[token] {
			if j != i {
				seen[j] = struct{}{}
			}
		}
	}

	out := make([]int, 0, len(seen))
	for j := range seen {
		out = append(out, j)
	}
	return out
}
