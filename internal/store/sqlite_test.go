package store

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vetlink-group/intel-cli/internal/model"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "intel.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func TestSQLiteStore_AuditEntryRoundTrip(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	entry := model.AuditEntry{
		ID:        "entry-1",
		Timestamp: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		EventType: model.EventDecision,
		SubjectID: "vet-1",
		Action:    "decision_recorded",
		Result:    "success",
		Details:   map[string]any{"confidence": 85.0},
		Lineage: model.Lineage{
			SourceIDs: []string{"benefits:2.3.1@2026-03-01T11:00:00Z"},
			OutputIDs: []string{"decision-1"},
		},
	}
	require.NoError(t, s.AppendAuditEntry(ctx, entry))

	got, err := s.AuditEntries(ctx, 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, entry.ID, got[0].ID)
	assert.Equal(t, entry.EventType, got[0].EventType)
	assert.Equal(t, entry.Lineage.SourceIDs, got[0].Lineage.SourceIDs)
	assert.True(t, entry.Timestamp.Equal(got[0].Timestamp))
}

func TestSQLiteStore_DeleteAuditBeforeBoundary(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()
	cutoff := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	old := model.AuditEntry{ID: "old", Timestamp: cutoff.Add(-time.Second), EventType: model.EventDecision, Action: "a", Result: "success"}
	boundary := model.AuditEntry{ID: "boundary", Timestamp: cutoff, EventType: model.EventDecision, Action: "a", Result: "success"}
	require.NoError(t, s.AppendAuditEntry(ctx, old))
	require.NoError(t, s.AppendAuditEntry(ctx, boundary))

	removed, err := s.DeleteAuditBefore(ctx, cutoff)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	got, err := s.AuditEntries(ctx, 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "boundary", got[0].ID)
}

func TestSQLiteStore_AuditCapPrunesOldest(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < maxAuditRows+5; i++ {
		require.NoError(t, s.AppendAuditEntry(ctx, model.AuditEntry{
			ID:        fmt.Sprintf("entry-%04d", i),
			Timestamp: base.Add(time.Duration(i) * time.Second),
			EventType: model.EventDataAccess,
			Action:    "a",
			Result:    "success",
		}))
	}

	got, err := s.AuditEntries(ctx, 0)
	require.NoError(t, err)
	require.Len(t, got, maxAuditRows)
	// Newest first; the oldest five were pruned.
	assert.Equal(t, fmt.Sprintf("entry-%04d", maxAuditRows+4), got[0].ID)
	assert.Equal(t, "entry-0005", got[len(got)-1].ID)
}

func TestSQLiteStore_DecisionLogRoundTrip(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	d := model.DecisionLog{
		ID:         "decision-1",
		Timestamp:  time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		SubjectID:  "vet-1",
		Input:      map[string]any{"question": "benefits"},
		Output:     map[string]any{"insights": 1.0},
		Reasoning:  []string{"rating meets threshold"},
		Confidence: 85,
	}
	require.NoError(t, s.AppendDecisionLog(ctx, d))

	got, err := s.DecisionLogs(ctx, 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, d.SubjectID, got[0].SubjectID)
	assert.Equal(t, d.Reasoning, got[0].Reasoning)
}

func TestSQLiteStore_OutcomeUpsert(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	rec := model.OutcomeRecord{
		PredictionID:   "pred-1",
		Kind:           model.PredictionClaimApproval,
		PredictedValue: map[string]any{"eligible": true},
		ActualValue:    map[string]any{"eligible": true},
		Confidence:     95,
		Correct:        true,
		RecordedAt:     time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	require.NoError(t, s.AppendOutcome(ctx, rec))

	// Re-recording with feedback replaces, not duplicates.
	rec.Feedback = &model.OutcomeFeedback{Helpful: true, AddedAt: rec.RecordedAt}
	require.NoError(t, s.AppendOutcome(ctx, rec))

	got, err := s.Outcomes(ctx, 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.NotNil(t, got[0].Feedback)
	assert.True(t, got[0].Feedback.Helpful)
}

func TestSQLiteStore_ModelVersions(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	v1 := model.ModelVersion{
		ID: "mv-1", ModelName: "eligibility-predictor", Version: "1.0.0",
		DeployedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		Status:     model.ModelDeprecated,
	}
	v2 := model.ModelVersion{
		ID: "mv-2", ModelName: "eligibility-predictor", Version: "1.1.0",
		DeployedAt: time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
		Status:     model.ModelActive, RollbackTarget: "1.0.0", CanRollback: true,
	}
	require.NoError(t, s.SaveModelVersion(ctx, v1))
	require.NoError(t, s.SaveModelVersion(ctx, v2))

	got, err := s.ModelVersions(ctx, "eligibility-predictor")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "1.0.0", got[0].Version)
	assert.Equal(t, model.ModelActive, got[1].Status)
	assert.True(t, got[1].CanRollback)

	none, err := s.ModelVersions(ctx, "unknown")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestSQLiteStore_Workflows(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	w := model.Workflow{
		ID:      "wf-1",
		Name:    "claim-intake",
		Enabled: true,
		Steps: []model.WorkflowStep{
			{Action: "verify_identity", Automated: true},
		},
		CreatedAt: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, s.SaveWorkflow(ctx, w))

	got, err := s.ListWorkflows(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "claim-intake", got[0].Name)
	require.Len(t, got[0].Steps, 1)
	assert.True(t, got[0].Steps[0].Automated)
}
