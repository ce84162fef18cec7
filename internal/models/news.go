package models

import "time"

// SourceType classifies where a news item came from.
type SourceType string

const (
	SourceTypeWire       SourceType = "wire"
	SourceTypeGov        SourceType = "gov"
	SourceTypeIntel      SourceType = "intel"
	SourceTypeMainstream SourceType = "mainstream"
	SourceTypeMarket     SourceType = "market"
	SourceTypeTech       SourceType = "tech"
)

// ValidSourceTypes lists every accepted source type, used for ingest validation.
var ValidSourceTypes = []SourceType{
	SourceTypeWire,
	SourceTypeGov,
	SourceTypeIntel,
	SourceTypeMainstream,
	SourceTypeMarket,
	SourceTypeTech,
}

// IsValid reports whether t is a known source type.
func (t SourceType) IsValid() bool {
	for _, v := range ValidSourceTypes {
		if t == v {
			return true
		}
	}
	return false
}

// NewsItem is a single headline delivered by the news collaborator.
// Items are immutable once created and discarded at the end of the cycle.
type NewsItem struct {
	ID          string     `json:"id"`
	SourceID    string     `json:"source_id"`
	Title       string     `json:"title"`
	PublishedAt time.Time  `json:"published_at"`
	SourceTier  int        `json:"source_tier"` // 1 = most authoritative, 4 = least
	SourceType  SourceType `json:"source_type"`
}

// ClusterTrend describes publication momentum inside a cluster's time span.
type ClusterTrend string

const (
	TrendRising  ClusterTrend = "rising"
	TrendFalling ClusterTrend = "falling"
	TrendStable  ClusterTrend = "stable"
)

// NewsCluster aggregates items whose titles cross the similarity threshold.
// Membership is connectivity via the union, not pairwise-complete: every member
// is similar to at least one other member.
type NewsCluster struct {
	ID            string              `json:"id"`
	MemberIDs     []string            `json:"member_ids"`
	Members       []NewsItem          `json:"members"`
	PrimaryItemID string              `json:"primary_item_id"`
	PrimaryTitle  string              `json:"primary_title"`
	Tokens        map[string]struct{} `json:"-"`
	FirstSeenAt   time.Time           `json:"first_seen_at"`
	LastUpdatedAt time.Time           `json:"last_updated_at"`
	VelocityPerHr float64             `json:"velocity_per_hour"`
	Trend         ClusterTrend        `json:"trend"`
	SourceTypes   []SourceType        `json:"source_types"`
}

// Size returns the member count.
func (c *NewsCluster) Size() int {
	return len(c.MemberIDs)
}
