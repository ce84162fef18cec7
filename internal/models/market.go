package models

import "time"

// MarketQuote is a single market snapshot delivered by the market collaborator.
type MarketQuote struct {
	Symbol        string    `json:"symbol"`
	Price         float64   `json:"price"`
	ChangePercent float64   `json:"change_percent"`
	Timestamp     time.Time `json:"timestamp"`
}

// CorrelationOutcome classifies the result of matching a market move to news.
type CorrelationOutcome string

const (
	// CorrelationExplained means a moved symbol was matched to a news cluster.
	CorrelationExplained CorrelationOutcome = "explained"
	// CorrelationSilent means the symbol moved past the threshold with no
	// matching news anywhere in the cluster set.
	CorrelationSilent CorrelationOutcome = "silent_divergence"
	// CorrelationNone means the move was below the correlation threshold.
	// Not an error, simply out of range.
	CorrelationNone CorrelationOutcome = "none"
)

// CorrelationResult describes how a market mover relates to the news cycle.
type CorrelationResult struct {
	Symbol      string             `json:"symbol"`
	MovePercent float64            `json:"move_percent"`
	Outcome     CorrelationOutcome `json:"outcome"`
	EntityID    string             `json:"entity_id,omitempty"`
	EntityName  string             `json:"entity_name,omitempty"`
	ClusterID   string             `json:"cluster_id,omitempty"`
	Headline    string             `json:"headline,omitempty"`
	MatchedTerm string             `json:"matched_term,omitempty"`
	Confidence  float64            `json:"confidence"`
	EvaluatedAt time.Time          `json:"evaluated_at"`
}
