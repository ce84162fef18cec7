package models

import "time"

// SignalKind is the closed set of signal variants the generator can emit.
type SignalKind string

const (
	SignalNewsVelocity         SignalKind = "news_velocity"
	SignalNewsTriangulation    SignalKind = "news_triangulation"
	SignalExplainedMove        SignalKind = "explained_move"
	SignalSilentDivergence     SignalKind = "silent_divergence"
	SignalFlowPriceDivergence  SignalKind = "flow_price_divergence"
	SignalPredictionMarketLead SignalKind = "prediction_market_leading"
	SignalVolumeAnomaly        SignalKind = "volume_anomaly"
	SignalGeoConvergence       SignalKind = "geo_convergence"
	SignalInstabilityRising    SignalKind = "country_instability_rising"
	SignalInstabilityCritical  SignalKind = "country_instability_critical"
	SignalMilitarySurge        SignalKind = "military_surge"
	SignalInfrastructureOutage SignalKind = "infrastructure_outage"
)

// ValidSignalKinds lists every signal kind.
var ValidSignalKinds = []SignalKind{
	SignalNewsVelocity,
	SignalNewsTriangulation,
	SignalExplainedMove,
	SignalSilentDivergence,
	SignalFlowPriceDivergence,
	SignalPredictionMarketLead,
	SignalVolumeAnomaly,
	SignalGeoConvergence,
	SignalInstabilityRising,
	SignalInstabilityCritical,
	SignalMilitarySurge,
	SignalInfrastructureOutage,
}

// IsValid reports whether k is a known signal kind.
func (k SignalKind) IsValid() bool {
	for _, v := range ValidSignalKinds {
		if k == v {
			return true
		}
	}
	return false
}

// IsInstability reports whether the kind references the country instability
// index. These kinds are gated during the warm-up window after process start.
func (k SignalKind) IsInstability() bool {
	return k == SignalInstabilityRising || k == SignalInstabilityCritical
}

// Severity grades a signal for consumers. Ordered: critical > high > medium > low.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
)

// Rank returns the sort weight of a severity, highest first.
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 3
	case SeverityHigh:
		return 2
	case SeverityMedium:
		return 1
	default:
		return 0
	}
}

// Detection is a raw, pre-signal observation produced by an analytic stage or
// delivered pre-classified by an upstream collaborator. The generator turns
// detections into signals, subject to deduplication and the warm-up gate.
type Detection struct {
	Kind        SignalKind        `json:"kind"`
	SubjectKey  string            `json:"subject_key"` // deterministic, excludes volatile magnitudes
	Severity    Severity          `json:"severity"`
	Confidence  float64           `json:"confidence"` // 0 means "use the per-kind default"
	CountryCode string            `json:"country_code,omitempty"`
	Details     map[string]string `json:"details,omitempty"`
	ObservedAt  time.Time         `json:"observed_at"`
}

// Signal is a high-confidence, deduplicated statement about an emergent
// situation, handed to the alerting and risk-overview collaborators.
type Signal struct {
	ID           string            `json:"id" badgerhold:"key"`
	Kind         SignalKind        `json:"kind" badgerhold:"index"`
	SubjectKey   string            `json:"subject_key"`
	Confidence   float64           `json:"confidence"`
	Severity     Severity          `json:"severity"`
	CountryCode  string            `json:"country_code,omitempty"`
	Details      map[string]string `json:"details,omitempty"`
	FirstFiredAt time.Time         `json:"first_fired_at" badgerhold:"index"`
	ExpiresAt    time.Time         `json:"expires_at"` // dedup horizon for this (kind, subject)
}
