package entity

import (
	"strings"

	"github.com/jonboulle/clockwork"
	"github.com/ternarybob/arbor"

	"github.com/halcyonlabs/meridian/internal/models"
)

// Match confidences by the kind of term that hit. Multiple terms matching the
// same cluster take the maximum, never a sum.
const (
	confidenceAlias   = 0.95
	confidenceKeyword = 0.70
	confidenceRelated = 0.60
)

// searchTerm is one candidate text probe with the confidence it carries.
type searchTerm struct {
	text       string
	confidence float64
	isKeyword  bool // keywords match as substrings; everything else whole-word
}

// Correlator matches moved market symbols to news clusters.
type Correlator struct {
	index            *Index
	moveThresholdPct float64
	clock            clockwork.Clock
	logger           arbor.ILogger
}

// NewCorrelator creates a correlator over the given entity index.
func NewCorrelator(index *Index, moveThresholdPct float64, clock clockwork.Clock, logger arbor.ILogger) *Correlator {
	return &Correlator{
		index:            index,
		moveThresholdPct: moveThresholdPct,
		clock:            clock,
		logger:           logger,
	}
}

// Correlate classifies one market move against the current cluster set.
// Moves below the threshold are not correlated at all — that is an out-of-range
// outcome, not an error. Moves at or above the threshold are either explained
// by a matching cluster or flagged as silent divergence.
func (c *Correlator) Correlate(quote models.MarketQuote, clusters []models.NewsCluster) models.CorrelationResult {
	result := models.CorrelationResult{
		Symbol:      quote.Symbol,
		MovePercent: quote.ChangePercent,
		EvaluatedAt: c.clock.Now(),
	}

	if abs(quote.ChangePercent) < c.moveThresholdPct {
		result.Outcome = models.CorrelationNone
		return result
	}

	rec, ok := c.index.ByAlias(quote.Symbol)
	if !ok {
		// Moved past the threshold but unknown to the registry: nothing can
		// explain it, so it diverges silently.
		result.Outcome = models.CorrelationSilent
		return result
	}
	result.EntityID = rec.ID
	result.EntityName = rec.DisplayName

	terms := c.searchTerms(rec)

	// Primary titles first; the full member scan only runs when no primary
	// matched anything.
	if c.scan(terms, clusters, primaryTitles, &result) || c.scan(terms, clusters, memberTitles, &result) {
		result.Outcome = models.CorrelationExplained
		return result
	}

	c.logger.Debug().
		Str("symbol", quote.Symbol).
		Float64("move_pct", quote.ChangePercent).
		Int("terms", len(terms)).
		Msg("Market move unexplained by news")

	result.Outcome = models.CorrelationSilent
	return result
}

// searchTerms gathers the transitive probe set for an entity: its own name and
// aliases, its keywords, and — one hop deep only — the aliases of sector peers
// and related entities. No further recursion.
func (c *Correlator) searchTerms(rec models.EntityRecord) []searchTerm {
	var terms []searchTerm
	seen := make(map[string]struct{})

	add := func(text string, confidence float64, isKeyword bool) {
		normalized := strings.ToLower(strings.TrimSpace(text))
		if normalized == "" {
			return
		}
		if _, dup := seen[normalized]; dup {
			return
		}
		seen[normalized] = struct{}{}
		terms = append(terms, searchTerm{text: normalized, confidence: confidence, isKeyword: isKeyword})
	}

	add(rec.DisplayName, confidenceAlias, false)
	for _, alias := range rec.Aliases {
		add(alias, confidenceAlias, false)
	}
	for _, keyword := range rec.Keywords {
		add(keyword, confidenceKeyword, true)
	}

	hop := func(ids []string) {
		for _, id := range ids {
			if id == rec.ID {
				continue
			}
			peer, ok := c.index.ByID(id)
			if !ok {
				continue
			}
			add(peer.DisplayName, confidenceRelated, false)
			for _, alias := range peer.Aliases {
				add(alias, confidenceRelated, false)
			}
		}
	}
	if rec.Sector != "" {
		hop(c.index.BySector(rec.Sector))
	}
	hop(rec.RelatedIDs)

	return terms
}

// titleSource extracts the titles to scan from a cluster.
type titleSource func(c *models.NewsCluster) []string

func primaryTitles(c *models.NewsCluster) []string {
	return []string{c.PrimaryTitle}
}

func memberTitles(c *models.NewsCluster) []string {
	titles := make([]string, len(c.Members))
	for i, m := range c.Members {
		titles[i] = m.Title
	}
	return titles
}

// scan probes every cluster with every term and records the best match into
// result. Returns true if anything matched.
func (c *Correlator) scan(terms []searchTerm, clusters []models.NewsCluster, source titleSource, result *models.CorrelationResult) bool {
	matched := false
	for i := range clusters {
		cl := &clusters[i]
		for _, titleText := range source(cl) {
			for _, term := range terms {
				if !c.matches(term, titleText) {
					continue
				}
				matched = true
				if term.confidence > result.Confidence {
					result.Confidence = term.confidence
					result.ClusterID = cl.ID
					result.Headline = cl.PrimaryTitle
					result.MatchedTerm = term.text
				}
			}
		}
	}
	return matched
}

func (c *Correlator) matches(term searchTerm, text string) bool {
	if term.isKeyword {
		return strings.Contains(strings.ToLower(text), term.text)
	}
	if c.index.AliasInText(term.text, text) {
		return true
	}
	// Display names are not always registered aliases; fall back to an
	// ad-hoc whole-word probe.
	return wordBoundaryPattern(term.text).MatchString(text)
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}

// Threshold returns the configured minimum move percentage.
func (c *Correlator) Threshold() float64 {
	return c.moveThresholdPct
}
