package monitoring

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vetlink-group/intel-cli/internal/audit"
	"github.com/vetlink-group/intel-cli/internal/model"
	"github.com/vetlink-group/intel-cli/internal/outcome"
)

func TestCollect_QueryPathMetrics(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	ledger := audit.NewLedger(nil).WithNow(clock)
	ctx := context.Background()

	// Three decisions, one of them outside the lookback window.
	ledger.AppendDecision(ctx, model.DecisionLog{SubjectID: "vet-1", Confidence: 80})
	ledger.AppendDecision(ctx, model.DecisionLog{SubjectID: "vet-2", Confidence: 60})
	ledger.AppendDecision(ctx, model.DecisionLog{
		SubjectID:  "vet-3",
		Confidence: 10,
		Timestamp:  now.Add(-48 * time.Hour),
	})

	// One cache hit inside the window.
	ledger.Append(ctx, model.AuditEntry{
		EventType: model.EventCacheServed,
		SubjectID: "vet-1",
		Action:    "served cached query response",
		Result:    "success",
	})

	snap := NewCollector(ledger, nil, nil).WithNow(clock).Collect(24)

	assert.Equal(t, 2, snap.DecisionCount)
	assert.Equal(t, 1, snap.CacheHits)
	assert.Equal(t, 3, snap.QueriesServed)
	assert.InDelta(t, 70.0, snap.MeanConfidence, 1e-9)
	assert.InDelta(t, 1.0/3.0, snap.CacheHitRate, 1e-9)
	assert.Equal(t, 24, snap.LookbackHours)
}

func TestCollect_OutcomeSection(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	ledger := audit.NewLedger(nil).WithNow(clock)
	tracker := outcome.NewTracker(nil).WithNow(clock)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		_, err := tracker.RecordOutcome(ctx,
			fmt.Sprintf("pred-%d", i), model.PredictionClaimApproval,
			true, i < 3, 90,
		)
		require.NoError(t, err)
	}

	snap := NewCollector(ledger, tracker, nil).WithNow(clock).Collect(24)

	assert.Equal(t, 4, snap.OutcomeTotal)
	assert.InDelta(t, 0.75, snap.OutcomeAccuracy, 1e-9)
	assert.NotEmpty(t, snap.OutcomeTrend)
}

func TestCollect_FailureAndOverrideEvents(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	ledger := audit.NewLedger(nil).WithNow(clock)
	ctx := context.Background()

	ledger.Append(ctx, model.AuditEntry{EventType: model.EventFailure, Action: "engine fetch failed", Result: "failure"})
	ledger.Append(ctx, model.AuditEntry{EventType: model.EventOverride, Action: "overrode recommendation", Result: "success"})

	snap := NewCollector(ledger, nil, nil).WithNow(clock).Collect(24)
	assert.Equal(t, 1, snap.FailureEvents)
	assert.Equal(t, 1, snap.OverrideEvents)
}
