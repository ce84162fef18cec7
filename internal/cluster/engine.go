// Package cluster groups related headlines into story clusters using the
// overlap coefficient over token sets, restricted to inverted-index
// candidates.
package cluster

import (
	"sort"

	"github.com/halcyonlabs/meridian/internal/models"
	"github.com/halcyonlabs/meridian/internal/tokenize"
)

// Engine clusters news items. The partition is the set of connected components
// of the similarity graph, which makes the result independent of input order:
// similarity is symmetric and connectivity does not care in which order edges
// are discovered.
type Engine struct {
	tokenizer           *tokenize.Tokenizer
	similarityThreshold float64
}

// NewEngine creates a clustering engine.
func NewEngine(tokenizer *tokenize.Tokenizer, similarityThreshold float64) *Engine {
	return &Engine{
		tokenizer:           tokenizer,
		similarityThreshold: similarityThreshold,
	}
}

// Cluster partitions items into clusters. Items with no similar neighbour form
// singleton clusters. Only candidate pairs sharing at least one token are
// compared; the inverted index guarantees no similar pair is skipped.
func (e *Engine) Cluster(items []models.NewsItem) []models.NewsCluster {
	if len(items) == 0 {
		return nil
	}

	titles := make([]string, len(items))
	for i, item := range items {
		titles[i] = item.Title
	}
	idx := tokenize.BuildIndex(e.tokenizer, titles)

	uf := newUnionFind(len(items))
	for i := range items {
		for _, j := range idx.Candidates(i) {
			if j <= i {
				continue // each pair evaluated once; similarity is symmetric
			}
			if tokenize.Overlap(idx.Tokens(i), idx.Tokens(j)) >= e.similarityThreshold {
				uf.union(i, j)
			}
		}
	}

	components := make(map[int][]int)
	for i := range items {
		root := uf.find(i)
		components[root] = append(components[root], i)
	}

	clusters := make([]models.NewsCluster, 0, len(components))
	for _, memberIdx := range components {
		clusters = append(clusters, e.buildCluster(items, idx, memberIdx))
	}

	// Stable output order: largest first, then earliest, then by ID.
	sort.Slice(clusters, func(a, b int) bool {
		ca, cb := clusters[a], clusters[b]
		if ca.Size() != cb.Size() {
			return ca.Size() > cb.Size()
		}
		if !ca.FirstSeenAt.Equal(cb.FirstSeenAt) {
			return ca.FirstSeenAt.Before(cb.FirstSeenAt)
		}
		return ca.ID < cb.ID
	})

	return clusters
}

// buildCluster assembles one cluster from its member indices.
func (e *Engine) buildCluster(items []models.NewsItem, idx *tokenize.InvertedIndex, memberIdx []int) models.NewsCluster {
	members := make([]models.NewsItem, 0, len(memberIdx))
	for _, i := range memberIdx {
		members = append(members, items[i])
	}
	// Canonical member order keeps cluster contents deterministic.
	sort.Slice(members, func(a, b int) bool { return members[a].ID < members[b].ID })

	primary := selectPrimary(members)

	tokens := make(map[string]struct{})
	for _, i := range memberIdx {
		for token := range idx.Tokens(i) {
			tokens[token] = struct{}{}
		}
	}

	first := members[0].PublishedAt
	last := members[0].PublishedAt
	memberIDs := make([]string, len(members))
	typeSet := make(map[models.SourceType]struct{})
	for i, m := range members {
		memberIDs[i] = m.ID
		if m.PublishedAt.Before(first) {
			first = m.PublishedAt
		}
		if m.PublishedAt.After(last) {
			last = m.PublishedAt
		}
		typeSet[m.SourceType] = struct{}{}
	}

	sourceTypes := make([]models.SourceType, 0, len(typeSet))
	for st := range typeSet {
		sourceTypes = append(sourceTypes, st)
	}
	sort.Slice(sourceTypes, func(a, b int) bool { return sourceTypes[a] < sourceTypes[b] })

	return models.NewsCluster{
		ID:            primary.ID,
		MemberIDs:     memberIDs,
		Members:       members,
		PrimaryItemID: primary.ID,
		PrimaryTitle:  primary.Title,
		Tokens:        tokens,
		FirstSeenAt:   first,
		LastUpdatedAt: last,
		VelocityPerHr: velocity(len(members), first, last),
		Trend:         trend(members, first, last),
		SourceTypes:   sourceTypes,
	}
}

// selectPrimary picks the representative item: numerically lowest source tier
// wins (1 = most authoritative), ties broken by most recent publishedAt, then
// by ID to stay deterministic.
func selectPrimary(members []models.NewsItem) models.NewsItem {
	primary := members[0]
	for _, m := range members[1:] {
		switch {
		case m.SourceTier < primary.SourceTier:
			primary = m
		case m.SourceTier == primary.SourceTier:
			if m.PublishedAt.After(primary.PublishedAt) {
				primary = m
			} else if m.PublishedAt.Equal(primary.PublishedAt) && m.ID < primary.ID {
				primary = m
			}
		}
	}
	return primary
}

// unionFind is a classic disjoint-set structure with path compression and
// union by rank.
type unionFind struct {
	parent []int
	rank   []int
}

func newUnionFind(n int) *unionFind {
	uf := &unionFind{
		parent: make([]int, n),
		rank:   make([]int, n),
	}
	for i := range uf.parent {
		uf.parent[i] = i
	}
	return uf
}

func (uf *unionFind) find(x int) int {
	for uf.parent[x] != x {
		uf.parent[x] = uf.parent[uf.parent[x]]
		x = uf.parent[x]
	}
	return x
}

func (uf *unionFind) union(a, b int) {
	ra, rb := uf.find(a), uf.find(b)
	if ra == rb {
		return
	}
	if uf.rank[ra] < uf.rank[rb] {
		ra, rb = rb, ra
	}
	uf.parent[rb] = ra
	if uf.rank[ra] == uf.rank[rb] {
		uf.rank[ra]++
	}
}
