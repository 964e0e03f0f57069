// Package monitoring snapshots platform health from the in-memory
// registries and raises webhook alerts when quality thresholds slip.
package monitoring

import (
	"time"

	"github.com/vetlink-group/intel-cli/internal/audit"
	"github.com/vetlink-group/intel-cli/internal/lifecycle"
	"github.com/vetlink-group/intel-cli/internal/model"
	"github.com/vetlink-group/intel-cli/internal/outcome"
)

// MetricsSnapshot holds a point-in-time view of system health.
type MetricsSnapshot struct {
	// Query path metrics (within lookback window).
	QueriesServed  int     `json:"queries_served"`
	CacheHits      int     `json:"cache_hits"`
	CacheHitRate   float64 `json:"cache_hit_rate"`
	DecisionCount  int     `json:"decision_count"`
	MeanConfidence float64 `json:"mean_confidence"`
	FailureEvents  int     `json:"failure_events"`
	OverrideEvents int     `json:"override_events"`

	// Outcome quality (within lookback window).
	OutcomeTotal    int     `json:"outcome_total"`
	OutcomeAccuracy float64 `json:"outcome_accuracy"`
	OutcomeTrend    string  `json:"outcome_trend"`

	// Models flagged for retraining.
	RetrainFlagged []string `json:"retrain_flagged,omitempty"`

	// Metadata.
	LookbackHours int       `json:"lookback_hours"`
	CollectedAt   time.Time `json:"collected_at"`
}

// Collector gathers metrics from the ledger, outcome tracker, and model
// lifecycle manager.
type Collector struct {
	ledger   *audit.Ledger
	outcomes *outcome.Tracker
	models   *lifecycle.Manager
	nowFunc  func() time.Time
}

// NewCollector creates a metrics collector. outcomes and models may be
// nil; their sections are zero-valued then.
func NewCollector(ledger *audit.Ledger, outcomes *outcome.Tracker, models *lifecycle.Manager) *Collector {
	return &Collector{
		ledger:   ledger,
		outcomes: outcomes,
		models:   models,
		nowFunc:  time.Now,
	}
}

// WithNow fixes the collector clock for tests.
func (c *Collector) WithNow(fn func() time.Time) *Collector {
	c.nowFunc = fn
	return c
}

// Collect gathers a snapshot of system metrics over the given lookback window.
func (c *Collector) Collect(lookbackHours int) *MetricsSnapshot {
	if lookbackHours <= 0 {
		lookbackHours = 24
	}
	now := c.nowFunc().UTC()
	cutoff := now.Add(-time.Duration(lookbackHours) * time.Hour)

	snap := &MetricsSnapshot{
		LookbackHours: lookbackHours,
		CollectedAt:   now,
	}

	var confidenceSum float64
	for _, d := range c.ledger.Decisions() {
		if d.Timestamp.Before(cutoff) {
			continue
		}
		snap.DecisionCount++
		confidenceSum += d.Confidence
	}
	if snap.DecisionCount > 0 {
		snap.MeanConfidence = confidenceSum / float64(snap.DecisionCount)
	}

	window := audit.Filter{From: cutoff}
	cacheFilter := window
	cacheFilter.EventType = model.EventCacheServed
	snap.CacheHits = len(c.ledger.Query(cacheFilter, 0))

	failFilter := window
	failFilter.EventType = model.EventFailure
	snap.FailureEvents = len(c.ledger.Query(failFilter, 0))

	overrideFilter := window
	overrideFilter.EventType = model.EventOverride
	snap.OverrideEvents = len(c.ledger.Query(overrideFilter, 0))

	snap.QueriesServed = snap.DecisionCount + snap.CacheHits
	if snap.QueriesServed > 0 {
		snap.CacheHitRate = float64(snap.CacheHits) / float64(snap.QueriesServed)
	}

	if c.outcomes != nil {
		summary := c.outcomes.Summarize(cutoff)
		snap.OutcomeTotal = summary.Total
		snap.OutcomeAccuracy = summary.Accuracy
		snap.OutcomeTrend = summary.Trend
	}

	if c.models != nil {
		for _, name := range c.models.Names() {
			report, err := c.models.AnalyzePerformance(name, cutoff)
			if err != nil {
				continue
			}
			if report.ShouldRetrain {
				snap.RetrainFlagged = append(snap.RetrainFlagged, name)
			}
		}
	}

	return snap
}
