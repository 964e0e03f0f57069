package outcome

import (
	"time"

	"github.com/vetlink-group/intel-cli/internal/model"
)

// trendWindow is the lookback for the recent-accuracy trend comparison.
const trendWindow = 30 * 24 * time.Hour

// trendThreshold is the accuracy gap (in fraction points) that separates
// "improving"/"declining" from "stable".
const trendThreshold = 0.05

// GroupStats is accuracy within one grouping (prediction kind or
// confidence bucket).
type GroupStats struct {
	Total    int     `json:"total"`
	Correct  int     `json:"correct"`
	Partial  int     `json:"partial"`
	Accuracy float64 `json:"accuracy"`
}

// Summary is the aggregate view of recorded outcomes.
type Summary struct {
	Total    int                                    `json:"total"`
	Correct  int                                    `json:"correct"`
	Partial  int                                    `json:"partial"`
	Accuracy float64                                `json:"accuracy"`
	ByType   map[model.PredictionKind]GroupStats    `json:"by_type"`
	ByBucket map[model.ConfidenceBucket]GroupStats  `json:"by_confidence_bucket"`
	Trend    string                                 `json:"trend"` // "improving", "declining", "stable"
}

// Summarize aggregates outcomes recorded at or after since (zero = all).
// The trend always compares the last 30 days against all-time accuracy,
// regardless of the since filter.
func (t *Tracker) Summarize(since time.Time) Summary {
	t.mu.RLock()
	defer t.mu.RUnlock()

	s := Summary{
		ByType:   make(map[model.PredictionKind]GroupStats),
		ByBucket: make(map[model.ConfidenceBucket]GroupStats),
	}

	for _, r := range t.records {
		if !since.IsZero() && r.RecordedAt.Before(since) {
			continue
		}
		s.Total++
		if r.Correct {
			s.Correct++
		}
		if r.PartiallyCorrect {
			s.Partial++
		}

		ts := s.ByType[r.Kind]
		ts.Total++
		if r.Correct {
			ts.Correct++
		}
		if r.PartiallyCorrect {
			ts.Partial++
		}
		s.ByType[r.Kind] = ts

		bucket := model.BucketFor(r.Confidence)
		bs := s.ByBucket[bucket]
		bs.Total++
		if r.Correct {
			bs.Correct++
		}
		if r.PartiallyCorrect {
			bs.Partial++
		}
		s.ByBucket[bucket] = bs
	}

	if s.Total > 0 {
		s.Accuracy = float64(s.Correct) / float64(s.Total)
	}
	for k, g := range s.ByType {
		if g.Total > 0 {
			g.Accuracy = float64(g.Correct) / float64(g.Total)
		}
		s.ByType[k] = g
	}
	for k, g := range s.ByBucket {
		if g.Total > 0 {
			g.Accuracy = float64(g.Correct) / float64(g.Total)
		}
		s.ByBucket[k] = g
	}

	s.Trend = t.trendLocked()
	return s
}

// trendLocked compares last-30-day accuracy to all-time accuracy. Caller
// must hold at least a read lock.
func (t *Tracker) trendLocked() string {
	if len(t.records) == 0 {
		return "stable"
	}

	cutoff := t.nowFunc().UTC().Add(-trendWindow)
	allCorrect, recentTotal, recentCorrect := 0, 0, 0
	for _, r := range t.records {
		if r.Correct {
			allCorrect++
		}
		if r.RecordedAt.Before(cutoff) {
			continue
		}
		recentTotal++
		if r.Correct {
			recentCorrect++
		}
	}
	if recentTotal == 0 {
		return "stable"
	}

	allTime := float64(allCorrect) / float64(len(t.records))
	recent := float64(recentCorrect) / float64(recentTotal)

	switch gap := recent - allTime; {
	case gap > trendThreshold:
		return "improving"
	case gap < -trendThreshold:
		return "declining"
	default:
		return "stable"
	}
}
