package entity

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/halcyonlabs/meridian/internal/models"
)

func newTestCorrelator(t *testing.T) *Correlator {
	t.Helper()
	idx, err := BuildIndex(testRecords())
	require.NoError(t, err)
	clock := clockwork.NewFakeClockAt(time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC))
	return NewCorrelator(idx, 2.0, clock, arbor.NewLogger())
}

func clusterWith(id, primaryTitle string, memberTitles ...string) models.NewsCluster {
	members := []models.NewsItem{{ID: id + "-0", Title: primaryTitle}}
	for i, title := range memberTitles {
		members = append(members, models.NewsItem{ID: string(rune('a' + i)), Title: title})
	}
	return models.NewsCluster{
		ID:            id,
		PrimaryItemID: id + "-0",
		PrimaryTitle:  primaryTitle,
		Members:       members,
	}
}

func TestCorrelator_ExplainedByAlias(t *testing.T) {
	c := newTestCorrelator(t)

	clusters := []models.NewsCluster{
		clusterWith("c1", "Broadcom AI Revenue Beats Estimates"),
		clusterWith("c2", "Fed Holds Interest Rates Steady"),
	}

	quote := models.MarketQuote{Symbol: "AVGO", ChangePercent: 2.5}
	result := c.Correlate(quote, clusters)

	assert.Equal(t, models.CorrelationExplained, result.Outcome)
	assert.Equal(t, 0.95, result.Confidence)
	assert.Equal(t, "c1", result.ClusterID)
	assert.Equal(t, "Broadcom AI Revenue Beats Estimates", result.Headline)
	assert.Equal(t, "AVGO", result.EntityID)
}

func TestCorrelator_BelowThresholdNotAttempted(t *testing.T) {
	c := newTestCorrelator(t)

	clusters := []models.NewsCluster{clusterWith("c1", "Broadcom AI Revenue Beats Estimates")}
	result := c.Correlate(models.MarketQuote{Symbol: "AVGO", ChangePercent: 1.5}, clusters)

	assert.Equal(t, models.CorrelationNone, result.Outcome)
	assert.Zero(t, result.Confidence)
	assert.Empty(t, result.ClusterID)
}

func TestCorrelator_SilentDivergence(t *testing.T) {
	c := newTestCorrelator(t)

	clusters := []models.NewsCluster{clusterWith("c1", "Fed Holds Interest Rates Steady")}
	result := c.Correlate(models.MarketQuote{Symbol: "AVGO", ChangePercent: -4.2}, clusters)

	assert.Equal(t, models.CorrelationSilent, result.Outcome)
}

func TestCorrelator_UnknownSymbolDivergesSilently(t *testing.T) {
	c := newTestCorrelator(t)

	result := c.Correlate(models.MarketQuote{Symbol: "ZZZZ", ChangePercent: 5.0}, nil)
	assert.Equal(t, models.CorrelationSilent, result.Outcome)
	assert.Empty(t, result.EntityID)
}

func TestCorrelator_KeywordMatch(t *testing.T) {
	c := newTestCorrelator(t)

	clusters := []models.NewsCluster{
		clusterWith("c1", "Semiconductor stocks rally after export decision"),
	}
	result := c.Correlate(models.MarketQuote{Symbol: "AVGO", ChangePercent: 3.0}, clusters)

	assert.Equal(t, models.CorrelationExplained, result.Outcome)
	assert.Equal(t, 0.70, result.Confidence)
}

func TestCorrelator_RelatedEntityOneHop(t *testing.T) {
	c := newTestCorrelator(t)

	// Only the sector peer appears in the news.
	clusters := []models.NewsCluster{
		clusterWith("c1", "Nvidia unveils next data center platform"),
	}
	result := c.Correlate(models.MarketQuote{Symbol: "AVGO", ChangePercent: 2.1}, clusters)

	assert.Equal(t, models.CorrelationExplained, result.Outcome)
	assert.Equal(t, 0.60, result.Confidence)
}

func TestCorrelator_MaxNotSum(t *testing.T) {
	c := newTestCorrelator(t)

	// Alias and keyword both hit the same cluster: confidence is the max of
	// 0.95 and 0.70, never the sum.
	clusters := []models.NewsCluster{
		clusterWith("c1", "Broadcom semiconductor revenue surges"),
	}
	result := c.Correlate(models.MarketQuote{Symbol: "AVGO", ChangePercent: 2.5}, clusters)

	assert.Equal(t, models.CorrelationExplained, result.Outcome)
	assert.Equal(t, 0.95, result.Confidence)
}

func TestCorrelator_MemberTitleFallback(t *testing.T) {
	c := newTestCorrelator(t)

	// The primary title says nothing about the entity; a member title does.
	clusters := []models.NewsCluster{
		clusterWith("c1", "Chipmaker earnings roundup for the quarter",
			"Broadcom beats on data center demand"),
	}
	result := c.Correlate(models.MarketQuote{Symbol: "AVGO", ChangePercent: 2.5}, clusters)

	assert.Equal(t, models.CorrelationExplained, result.Outcome)
	assert.Equal(t, 0.95, result.Confidence)
	assert.Equal(t, "c1", result.ClusterID)
}

func TestCorrelator_EmptyClustersNotAnError(t *testing.T) {
	c := newTestCorrelator(t)

	result := c.Correlate(models.MarketQuote{Symbol: "AVGO", ChangePercent: 2.5}, nil)
	assert.Equal(t, models.CorrelationSilent, result.Outcome)
}
