package audit

import (
	"time"

	"github.com/vetlink-group/intel-cli/internal/model"
)

// ComplianceSummary aggregates ledger activity over a date range for
// compliance reporting.
type ComplianceSummary struct {
	From         time.Time               `json:"from"`
	To           time.Time               `json:"to"`
	TotalEntries int                     `json:"total_entries"`
	ByEventType  map[model.EventType]int `json:"by_event_type"`
	Failures     int                     `json:"failures"`
	Overrides    int                     `json:"overrides"`
	DataAccess   int                     `json:"data_access"`
	ModelUpdates int                     `json:"model_updates"`
	GeneratedAt  time.Time               `json:"generated_at"`
}

// ComplianceReport buckets entries by event type and counts failures,
// overrides, data accesses, and model updates within [from, to].
func (l *Ledger) ComplianceReport(from, to time.Time) ComplianceSummary {
	l.mu.RLock()
	defer l.mu.RUnlock()

	summary := ComplianceSummary{
		From:        from,
		To:          to,
		ByEventType: make(map[model.EventType]int),
		GeneratedAt: l.nowFunc().UTC(),
	}

	for _, e := range l.entries {
		if !from.IsZero() && e.Timestamp.Before(from) {
			continue
		}
		if !to.IsZero() && e.Timestamp.After(to) {
			continue
		}

		summary.TotalEntries++
		summary.ByEventType[e.EventType]++

		if e.Result == "failure" || e.EventType == model.EventFailure {
			summary.Failures++
		}
		switch e.EventType {
		case model.EventOverride:
			summary.Overrides++
		case model.EventDataAccess:
			summary.DataAccess++
		case model.EventModelUpdate:
			summary.ModelUpdates++
		}
	}

	return summary
}
