package cluster

import (
	"time"

	"github.com/halcyonlabs/meridian/internal/models"
)

// minSpan guards the velocity division: a cluster whose members all arrived
// within a minute would otherwise divide by (near) zero.
const minSpan = time.Minute

// trendMargin is the half-split ratio beyond which momentum counts as a move.
const trendMargin = 0.2

// velocity returns sources per hour over the cluster's time span, with the
// span clamped to one minute.
func velocity(memberCount int, first, last time.Time) float64 {
	span := last.Sub(first)
	if span < minSpan {
		span = minSpan
	}
	return float64(memberCount) / span.Hours()
}

// trend compares publication counts of the first half of the cluster's span
// against the second half. Rising if the second half exceeds the first by more
// than 20%, falling if it trails by more than 20%, else stable.
func trend(members []models.NewsItem, first, last time.Time) models.ClusterTrend {
	span := last.Sub(first)
	if span < minSpan {
		return models.TrendStable
	}

	mid := first.Add(span / 2)
	firstHalf, secondHalf := 0, 0
	for _, m := range members {
		if m.PublishedAt.Before(mid) {
			firstHalf++
		} else {
			secondHalf++
		}
	}

	if firstHalf == 0 {
		if secondHalf > 0 {
			return models.TrendRising
		}
		return models.TrendStable
	}

	ratio := float64(secondHalf) / float64(firstHalf)
	switch {
	case ratio > 1+trendMargin:
		return models.TrendRising
	case ratio < 1-trendMargin:
		return models.TrendFalling
	default:
		return models.TrendStable
	}
}
