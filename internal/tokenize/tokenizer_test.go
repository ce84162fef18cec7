package tokenize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenizer_Tokenize(t *testing.T) {
	tok := NewTokenizer(3)

	tests := []struct {
		name  string
		title string
		want  []string
	}{
		{
			name:  "lowercase and split on non-word",
			title: "Broadcom AI-Revenue Beats Estimates!",
			want:  []string{"broadcom", "revenue", "beats", "estimates"},
		},
		{
			name:  "short tokens dropped",
			title: "US to EU on G7",
			want:  nil,
		},
		{
			name:  "stop words dropped",
			title: "The Fed says rates will hold",
			want:  []string{"fed", "rates", "hold"},
		},
		{
			name:  "digits kept",
			title: "Magnitude 6.4 earthquake strikes",
			want:  []string{"magnitude", "earthquake", "strikes"},
		},
		{
			name:  "empty title",
			title: "",
			want:  nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tok.Tokenize(tt.title)
			assert.Len(t, got, len(tt.want))
			for _, w := range tt.want {
				_, ok := got[w]
				assert.True(t, ok, "missing token %q", w)
			}
		})
	}
}

func TestTokenizer_CacheReturnsSameSet(t *testing.T) {
	tok := NewTokenizer(3)

	first := tok.Tokenize("Broadcom Posts Strong Revenue")
	second := tok.Tokenize("Broadcom Posts Strong Revenue")
	assert.Equal(t, first, second)

	tok.Reset()
	third := tok.Tokenize("Broadcom Posts Strong Revenue")
	assert.Equal(t, first, third)
}

func TestJaccard_Symmetric(t *testing.T) {
	tok := NewTokenizer(3)

	titles := []string{
		"Broadcom AI Revenue Beats Estimates",
		"Broadcom Posts Strong AI Chip Revenue",
		"Fed Holds Interest Rates Steady",
		"Earthquake Strikes Off Taiwan Coast",
	}

	for _, a := range titles {
		for _, b := range titles {
			simAB := Jaccard(tok.Tokenize(a), tok.Tokenize(b))
			simBA := Jaccard(tok.Tokenize(b), tok.Tokenize(a))
			assert.Equal(t, simAB, simBA, "sim(%q,%q) not symmetric", a, b)
		}
	}
}

func TestJaccard_Bounds(t *testing.T) {
	tok := NewTokenizer(3)

	identical := tok.Tokenize("Broadcom Revenue Beats")
	assert.Equal(t, 1.0, Jaccard(identical, identical))

	disjoint := tok.Tokenize("Earthquake Strikes Taiwan")
	assert.Equal(t, 0.0, Jaccard(identical, disjoint))

	assert.Equal(t, 0.0, Jaccard(nil, identical))
	assert.Equal(t, 0.0, Jaccard(nil, nil))
}

func TestOverlap_Threshold(t *testing.T) {
	tok := NewTokenizer(3)

	// Two headlines about the same story share "broadcom" and "revenue";
	// the smaller set has four tokens, so the pair sits exactly on the 0.5
	// clustering cutoff.
	a := tok.Tokenize("Broadcom AI Revenue Beats Estimates")
	b := tok.Tokenize("Broadcom Posts Strong AI Chip Revenue")
	require.Len(t, a, 4)
	require.Len(t, b, 5)
	assert.InDelta(t, 0.5, Overlap(a, b), 0.001)
	assert.Equal(t, Overlap(a, b), Overlap(b, a))

	c := tok.Tokenize("Fed Holds Interest Rates Steady")
	assert.Equal(t, 0.0, Overlap(a, c))
}

func TestInvertedIndex_CandidatesSupersetContract(t *testing.T) {
	tok := NewTokenizer(3)

	titles := []string{
		"Broadcom AI Revenue Beats Estimates",
		"Broadcom Posts Strong AI Chip Revenue",
		"Fed Holds Interest Rates Steady",
		"Oil Prices Surge After Pipeline Outage",
	}

	idx := BuildIndex(tok, titles)

	// Every pair with nonzero similarity must appear in each other's
	// candidate sets.
	for i := range titles {
		candidates := make(map[int]bool)
		for _, j := range idx.Candidates(i) {
			candidates[j] = true
		}
		for j := range titles {
			if i == j {
				continue
			}
			if Jaccard(idx.Tokens(i), idx.Tokens(j)) > 0 {
				require.True(t, candidates[j],
					"item %d similar to %d but not in candidate set", j, i)
			}
		}
	}

	// Items 0 and 1 share tokens; item 2 shares none with them.
	cands := idx.Candidates(0)
	assert.Contains(t, cands, 1)
	assert.NotContains(t, cands, 2)
}
