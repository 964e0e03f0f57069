package store

import (
	"context"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vetlink-group/intel-cli/internal/model"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock for unit testing.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	s := &PostgresStore{pool: mock}
	return s, mock
}

func TestPostgresStore_AppendAuditEntry(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO audit_entries`).
		WithArgs("entry-1", pgxmock.AnyArg(), "decision", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(`DELETE FROM audit_entries WHERE ctid NOT IN`).
		WithArgs(maxAuditRows).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	err := s.AppendAuditEntry(context.Background(), model.AuditEntry{
		ID:        "entry-1",
		Timestamp: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		EventType: model.EventDecision,
		Action:    "decision_recorded",
		Result:    "success",
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_AppendDecisionLog(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO decision_logs`).
		WithArgs("decision-1", pgxmock.AnyArg(), "vet-1", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(`DELETE FROM decision_logs WHERE ctid NOT IN`).
		WithArgs(maxDecisionRows).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	err := s.AppendDecisionLog(context.Background(), model.DecisionLog{
		ID:        "decision-1",
		Timestamp: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		SubjectID: "vet-1",
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_DeleteAuditBefore(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	cutoff := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectExec(`DELETE FROM audit_entries WHERE timestamp < \$1`).
		WithArgs(cutoff).
		WillReturnResult(pgxmock.NewResult("DELETE", 42))

	removed, err := s.DeleteAuditBefore(context.Background(), cutoff)
	require.NoError(t, err)
	assert.Equal(t, 42, removed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_AuditEntriesUnmarshal(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	entryJSON := []byte(`{"id":"entry-1","event_type":"override","action":"overrode recommendation act-1","result":"success"}`)
	mock.ExpectQuery(`SELECT entry FROM audit_entries ORDER BY timestamp DESC LIMIT \$1`).
		WithArgs(5).
		WillReturnRows(pgxmock.NewRows([]string{"entry"}).AddRow(entryJSON))

	got, err := s.AuditEntries(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, model.EventOverride, got[0].EventType)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_AppendOutcomeUpsert(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO outcome_records .* ON CONFLICT \(prediction_id\) DO UPDATE`).
		WithArgs("pred-1", pgxmock.AnyArg(), "claim-approval", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(`DELETE FROM outcome_records WHERE ctid NOT IN`).
		WithArgs(maxOutcomeRows).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	err := s.AppendOutcome(context.Background(), model.OutcomeRecord{
		PredictionID: "pred-1",
		Kind:         model.PredictionClaimApproval,
		RecordedAt:   time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SaveModelVersion(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO model_versions`).
		WithArgs("mv-1", "eligibility-predictor", "1.1.0", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := s.SaveModelVersion(context.Background(), model.ModelVersion{
		ID:         "mv-1",
		ModelName:  "eligibility-predictor",
		Version:    "1.1.0",
		DeployedAt: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		Status:     model.ModelActive,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListWorkflowsEmpty(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT definition FROM workflows`).
		WillReturnRows(pgxmock.NewRows([]string{"definition"}))

	got, err := s.ListWorkflows(context.Background())
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}
