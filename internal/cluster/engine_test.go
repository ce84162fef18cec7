package cluster

import (
	"fmt"
	"math/rand"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/halcyonlabs/meridian/internal/models"
	"github.com/halcyonlabs/meridian/internal/tokenize"
)

func newTestEngine() *Engine {
	return NewEngine(tokenize.NewTokenizer(3), 0.5)
}

func item(id, title string, tier int, published time.Time) models.NewsItem {
	return models.NewsItem{
		ID:          id,
		SourceID:    "src-" + id,
		Title:       title,
		PublishedAt: published,
		SourceTier:  tier,
		SourceType:  models.SourceTypeWire,
	}
}

func TestEngine_Cluster_Scenario(t *testing.T) {
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	items := []models.NewsItem{
		item("a", "Broadcom AI Revenue Beats Estimates", 2, now),
		item("b", "Broadcom Posts Strong AI Chip Revenue", 2, now),
		item("c", "Fed Holds Interest Rates Steady", 1, now),
	}

	clusters := newTestEngine().Cluster(items)
	require.Len(t, clusters, 2)

	// Largest cluster first.
	assert.ElementsMatch(t, []string{"a", "b"}, clusters[0].MemberIDs)
	assert.ElementsMatch(t, []string{"c"}, clusters[1].MemberIDs)
}

func TestEngine_Cluster_OrderIndependent(t *testing.T) {
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	items := []models.NewsItem{
		item("a", "Broadcom AI Revenue Beats Estimates", 2, now),
		item("b", "Broadcom Posts Strong AI Chip Revenue", 2, now.Add(10*time.Minute)),
		item("c", "Fed Holds Interest Rates Steady", 1, now),
		item("d", "Fed Keeps Interest Rates Steady For Now", 3, now.Add(5*time.Minute)),
		item("e", "Earthquake Strikes Off Taiwan Coast", 1, now),
		item("f", "Magnitude 6 Earthquake Strikes Taiwan Coast", 2, now.Add(time.Hour)),
	}

	reference := partitionOf(t, newTestEngine().Cluster(items))

	rng := rand.New(rand.NewSource(42))
	for trial := 0; trial < 20; trial++ {
		shuffled := make([]models.NewsItem, len(items))
		copy(shuffled, items)
		rng.Shuffle(len(shuffled), func(i, j int) {
			shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
		})

		got := partitionOf(t, newTestEngine().Cluster(shuffled))
		require.Equal(t, reference, got, "partition changed under shuffle (trial %d)", trial)
	}
}

// partitionOf renders a partition as a canonical string for comparison.
func partitionOf(t *testing.T, clusters []models.NewsCluster) string {
	t.Helper()
	groups := make([]string, 0, len(clusters))
	for _, c := range clusters {
		ids := append([]string(nil), c.MemberIDs...)
		sort.Strings(ids)
		groups = append(groups, strings.Join(ids, ","))
	}
	sort.Strings(groups)
	return strings.Join(groups, "|")
}

func TestEngine_Cluster_Idempotent(t *testing.T) {
	// Re-clustering the union of two disjoint clusters must not merge them
	// unless their titles actually cross the threshold.
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	items := []models.NewsItem{
		item("a", "Broadcom AI Revenue Beats Estimates", 2, now),
		item("b", "Broadcom Posts Strong AI Chip Revenue", 2, now),
		item("c", "Fed Holds Interest Rates Steady", 1, now),
		item("d", "Fed Keeps Interest Rates Steady For Now", 3, now),
	}

	first := newTestEngine().Cluster(items)
	require.Len(t, first, 2)

	var union []models.NewsItem
	for _, c := range first {
		union = append(union, c.Members...)
	}

	second := newTestEngine().Cluster(union)
	assert.Equal(t, partitionOf(t, first), partitionOf(t, second))
}

func TestEngine_Cluster_EmptyInput(t *testing.T) {
	assert.Nil(t, newTestEngine().Cluster(nil))
	assert.Nil(t, newTestEngine().Cluster([]models.NewsItem{}))
}

func TestEngine_Cluster_NoPairwiseComparisonOfDisjointItems(t *testing.T) {
	// Items sharing no tokens always end up in distinct singleton clusters.
	now := time.Now().UTC()
	items := []models.NewsItem{
		item("a", "Broadcom Revenue Beats", 2, now),
		item("b", "Earthquake Strikes Taiwan", 2, now),
		item("c", "Oil Pipeline Outage Reported", 2, now),
	}

	clusters := newTestEngine().Cluster(items)
	assert.Len(t, clusters, 3)
}

func TestSelectPrimary(t *testing.T) {
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		members []models.NewsItem
		wantID  string
	}{
		{
			name: "lowest tier wins",
			members: []models.NewsItem{
				item("a", "t", 3, now),
				item("b", "t", 1, now.Add(-time.Hour)),
				item("c", "t", 2, now),
			},
			wantID: "b",
		},
		{
			name: "tier tie broken by recency",
			members: []models.NewsItem{
				item("a", "t", 1, now.Add(-time.Hour)),
				item("b", "t", 1, now),
			},
			wantID: "b",
		},
		{
			name: "full tie broken by id",
			members: []models.NewsItem{
				item("b", "t", 1, now),
				item("a", "t", 1, now),
			},
			wantID: "a",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantID, selectPrimary(tt.members).ID)
		})
	}
}

func TestVelocity(t *testing.T) {
	base := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

	// 6 members over 2 hours = 3 sources/hour.
	assert.InDelta(t, 3.0, velocity(6, base, base.Add(2*time.Hour)), 0.001)

	// Span below one minute is clamped: 5 members over 1 minute = 300/hr,
	// not infinity.
	v := velocity(5, base, base.Add(10*time.Second))
	assert.InDelta(t, 300.0, v, 0.001)
}

func TestTrend(t *testing.T) {
	base := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

	mk := func(offsets ...time.Duration) []models.NewsItem {
		out := make([]models.NewsItem, len(offsets))
		for i, off := range offsets {
			out[i] = item(fmt.Sprintf("i%d", i), "t", 2, base.Add(off))
		}
		return out
	}

	tests := []struct {
		name    string
		offsets []time.Duration
		want    models.ClusterTrend
	}{
		{
			name:    "rising when second half dominates",
			offsets: []time.Duration{0, 50 * time.Minute, 55 * time.Minute, 58 * time.Minute, time.Hour},
			want:    models.TrendRising,
		},
		{
			name:    "falling when first half dominates",
			offsets: []time.Duration{0, 2 * time.Minute, 5 * time.Minute, 10 * time.Minute, time.Hour},
			want:    models.TrendFalling,
		},
		{
			name:    "stable when balanced",
			offsets: []time.Duration{0, 10 * time.Minute, 50 * time.Minute, time.Hour},
			want:    models.TrendStable,
		},
		{
			name:    "stable for sub-minute span",
			offsets: []time.Duration{0, time.Second},
			want:    models.TrendStable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			members := mk(tt.offsets...)
			first := members[0].PublishedAt
			last := members[len(members)-1].PublishedAt
			assert.Equal(t, tt.want, trend(members, first, last))
		})
	}
}
