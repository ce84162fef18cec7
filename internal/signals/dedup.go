// Package signals turns raw detections into deduplicated, confidence-scored
// signals for downstream consumers.
package signals

import (
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/halcyonlabs/meridian/internal/models"
)

// DedupIndex remembers which (kind, subjectKey) pairs fired recently.
// Entries are swept lazily: an expired entry is removed the next time its
// key is looked up, and Sweep clears the rest in bulk. Owned exclusively by
// the generator and touched only during its stage of the active cycle.
type DedupIndex struct {
	clock   clockwork.Clock
	entries map[string]time.Time
}

// NewDedupIndex creates an empty dedup index.
func NewDedupIndex(clock clockwork.Clock) *DedupIndex {
	return &DedupIndex{
		clock:   clock,
		entries: make(map[string]time.Time),
	}
}

func dedupKey(kind models.SignalKind, subjectKey string) string {
	return string(kind) + "|" + subjectKey
}

// Suppressed reports whether an unexpired entry exists for the pair,
// dropping the entry if it has lapsed.
func (d *DedupIndex) Suppressed(kind models.SignalKind, subjectKey string) bool {
	key := dedupKey(kind, subjectKey)
	expiresAt, ok := d.entries[key]
	if !ok {
		return false
	}
	if !d.clock.Now().Before(expiresAt) {
		delete(d.entries, key)
		return false
	}
	return true
}

// Remember records that the pair fired, suppressing repeats until expiresAt.
func (d *DedupIndex) Remember(kind models.SignalKind, subjectKey string, expiresAt time.Time) {
	d.entries[dedupKey(kind, subjectKey)] = expiresAt
}

// Seed restores dedup state from previously persisted signals, typically the
// store's unexpired set at startup. Already-expired signals are ignored.
func (d *DedupIndex) Seed(signals []*models.Signal) {
	now := d.clock.Now()
	for _, sig := range signals {
		if sig == nil || !now.Before(sig.ExpiresAt) {
			continue
		}
		key := dedupKey(sig.Kind, sig.SubjectKey)
		if existing, ok := d.entries[key]; !ok || sig.ExpiresAt.After(existing) {
			d.entries[key] = sig.ExpiresAt
		}
	}
}

// Sweep drops every expired entry and returns how many were removed.
func (d *DedupIndex) Sweep() int {
	now := d.clock.Now()
	removed := 0
	for key, expiresAt := range d.entries {
		if !now.Before(expiresAt) {
			delete(d.entries, key)
			removed++
		}
	}
	return removed
}

// Len returns the number of entries currently held, expired or not.
func (d *DedupIndex) Len() int {
	return len(d.entries)
}
