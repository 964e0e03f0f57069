package audit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vetlink-group/intel-cli/internal/model"
)

func TestLedger_AppendFillsIDAndTimestamp(t *testing.T) {
	l := NewLedger(nil)
	e := l.Append(context.Background(), model.AuditEntry{
		EventType: model.EventDataAccess,
		Action:    "engine_fetch",
		Result:    "success",
	})
	assert.NotEmpty(t, e.ID)
	assert.False(t, e.Timestamp.IsZero())
	assert.Equal(t, 1, l.Len())
}

func TestLedger_RingEviction(t *testing.T) {
	l := NewLedger(nil)
	for i := 0; i < maxEntries+50; i++ {
		l.Append(context.Background(), model.AuditEntry{Action: "fill", Result: "success"})
	}
	assert.Equal(t, maxEntries, l.Len())
}

func TestLedger_QueryFilters(t *testing.T) {
	l := NewLedger(nil)
	ctx := context.Background()

	l.Append(ctx, model.AuditEntry{EventType: model.EventDecision, SubjectID: "vet-1", Action: "a", Result: "success"})
	l.Append(ctx, model.AuditEntry{EventType: model.EventOverride, SubjectID: "vet-1", ActorID: "counselor-9", Action: "b", Result: "success"})
	l.Append(ctx, model.AuditEntry{EventType: model.EventDecision, SubjectID: "vet-2", Action: "c", Result: "success"})

	got := l.Query(Filter{EventType: model.EventDecision}, 0)
	assert.Len(t, got, 2)

	got = l.Query(Filter{SubjectID: "vet-1"}, 0)
	assert.Len(t, got, 2)

	got = l.Query(Filter{ActorID: "counselor-9"}, 0)
	require.Len(t, got, 1)
	assert.Equal(t, "b", got[0].Action)

	// Newest first, limit respected.
	got = l.Query(Filter{}, 1)
	require.Len(t, got, 1)
	assert.Equal(t, "c", got[0].Action)
}

func TestLedger_AppendDecisionWritesDecisionAuditEntry(t *testing.T) {
	l := NewLedger(nil)
	d := l.AppendDecision(context.Background(), model.DecisionLog{
		SubjectID:       "vet-1",
		SourceSnapshots: []string{"benefits:1.0@2026-01-01T00:00:00Z"},
		Reasoning:       []string{"eligibility threshold met"},
		Confidence:      85,
	})

	assert.NotEmpty(t, d.ID)
	assert.Equal(t, 1, l.DecisionCount())

	entries := l.Query(Filter{EventType: model.EventDecision}, 0)
	require.Len(t, entries, 1)
	assert.Contains(t, entries[0].Lineage.OutputIDs, d.ID)
	assert.Equal(t, d.SourceSnapshots, entries[0].Lineage.SourceIDs)
}

func TestLedger_PurgeRemovesOnlyOldEntries(t *testing.T) {
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	l := NewLedger(nil).WithNow(func() time.Time { return now })
	ctx := context.Background()

	l.Append(ctx, model.AuditEntry{Timestamp: now.AddDate(0, 0, -91), Action: "old", Result: "success"})
	l.Append(ctx, model.AuditEntry{Timestamp: now.AddDate(0, 0, -90), Action: "boundary", Result: "success"})
	l.Append(ctx, model.AuditEntry{Timestamp: now.AddDate(0, 0, -1), Action: "recent", Result: "success"})
	l.AppendDecision(ctx, model.DecisionLog{Timestamp: now.AddDate(0, 0, -120), SubjectID: "vet-1"})
	l.AppendDecision(ctx, model.DecisionLog{Timestamp: now, SubjectID: "vet-2"})

	removed := l.Purge(ctx, 90)

	// Only the strictly-older-than-cutoff entry goes; the boundary entry
	// (exactly 90 days) stays.
	assert.Equal(t, 1, removed)
	remaining := l.Query(Filter{}, 0)
	for _, e := range remaining {
		assert.NotEqual(t, "old", e.Action)
	}
	assert.Equal(t, 1, l.DecisionCount())
}

func TestLedger_PurgeDefaultRetention(t *testing.T) {
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	l := NewLedger(nil).WithNow(func() time.Time { return now })

	l.Append(context.Background(), model.AuditEntry{Timestamp: now.AddDate(0, 0, -100), Action: "old", Result: "success"})
	removed := l.Purge(context.Background(), 0)
	assert.Equal(t, 1, removed)
}

// failingMirror always errors, to prove persistence failures never
// propagate.
type failingMirror struct{}

func (failingMirror) AppendAuditEntry(context.Context, model.AuditEntry) error {
	return assert.AnError
}
func (failingMirror) AppendDecisionLog(context.Context, model.DecisionLog) error {
	return assert.AnError
}
func (failingMirror) DeleteAuditBefore(context.Context, time.Time) (int, error) {
	return 0, assert.AnError
}
func (failingMirror) DeleteDecisionsBefore(context.Context, time.Time) (int, error) {
	return 0, assert.AnError
}

func TestLedger_MirrorFailuresAreSwallowed(t *testing.T) {
	l := NewLedger(failingMirror{})
	ctx := context.Background()

	e := l.Append(ctx, model.AuditEntry{Action: "x", Result: "success"})
	assert.NotEmpty(t, e.ID)
	assert.Equal(t, 1, l.Len())

	d := l.AppendDecision(ctx, model.DecisionLog{SubjectID: "vet-1"})
	assert.NotEmpty(t, d.ID)

	assert.NotPanics(t, func() { l.Purge(ctx, 90) })
}

func TestComplianceReport_Buckets(t *testing.T) {
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	l := NewLedger(nil).WithNow(func() time.Time { return now })
	ctx := context.Background()

	l.Append(ctx, model.AuditEntry{Timestamp: now, EventType: model.EventDecision, Action: "a", Result: "success"})
	l.Append(ctx, model.AuditEntry{Timestamp: now, EventType: model.EventOverride, Action: "b", Result: "success"})
	l.Append(ctx, model.AuditEntry{Timestamp: now, EventType: model.EventDataAccess, Action: "c", Result: "failure"})
	l.Append(ctx, model.AuditEntry{Timestamp: now, EventType: model.EventModelUpdate, Action: "d", Result: "success"})
	l.Append(ctx, model.AuditEntry{Timestamp: now.AddDate(0, -2, 0), EventType: model.EventDecision, Action: "out-of-range", Result: "success"})

	report := l.ComplianceReport(now.AddDate(0, -1, 0), now.AddDate(0, 0, 1))

	assert.Equal(t, 4, report.TotalEntries)
	assert.Equal(t, 1, report.ByEventType[model.EventDecision])
	assert.Equal(t, 1, report.Overrides)
	assert.Equal(t, 1, report.DataAccess)
	assert.Equal(t, 1, report.ModelUpdates)
	assert.Equal(t, 1, report.Failures)
}
