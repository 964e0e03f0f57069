package lifecycle

import (
	"context"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vetlink-group/intel-cli/internal/model"
)

// fakeOutcomes is a canned OutcomeSource.
type fakeOutcomes []model.OutcomeRecord

func (f fakeOutcomes) RecordsSince(since time.Time) []model.OutcomeRecord {
	var out []model.OutcomeRecord
	for _, r := range f {
		if !since.IsZero() && r.RecordedAt.Before(since) {
			continue
		}
		out = append(out, r)
	}
	return out
}

// approvalProfile builds outcome records yielding a known improvement
// profile: accuracy 0.7, very-high bucket accuracy 0.7, and a partial
// rate just above the attribution threshold.
func approvalProfile(n int) fakeOutcomes {
	records := make(fakeOutcomes, 0, n)
	correct := n * 7 / 10
	partial := n / 6
	for i := 0; i < n; i++ {
		rec := model.OutcomeRecord{
			PredictionID:   "p",
			Kind:           model.PredictionClaimApproval,
			PredictedValue: true,
			Confidence:     95,
			RecordedAt:     time.Now(),
		}
		if i < correct {
			rec.Correct = true
		} else if i < correct+partial {
			rec.PartiallyCorrect = true
		}
		records = append(records, rec)
	}
	return records
}

func TestRegisterAndActiveVersion(t *testing.T) {
	m := NewManager(nil, nil, nil)
	v := m.Register(context.Background(), "eligibility-predictor", model.PredictionClaimApproval, model.Performance{Accuracy: 0.9})

	assert.Equal(t, "1.0.0", v.Version)
	assert.Equal(t, model.ModelActive, v.Status)
	assert.False(t, v.CanRollback)

	active, err := m.ActiveVersion("eligibility-predictor")
	require.NoError(t, err)
	assert.Equal(t, v.Version, active.Version)

	_, err = m.ActiveVersion("unknown")
	assert.True(t, eris.Is(err, ErrNotFound))
	assert.Equal(t, "unversioned", m.ActiveVersionTag("unknown"))
}

func TestImproveModel_ApprovalRequiredNeverDeploys(t *testing.T) {
	m := NewManager(approvalProfile(120), nil, nil)
	m.Register(context.Background(), "eligibility-predictor", model.PredictionClaimApproval, model.Performance{Accuracy: 0.90, Precision: 0.9, Recall: 0.9})

	result, err := m.ImproveModel(context.Background(), "eligibility-predictor", true)
	require.NoError(t, err)

	assert.True(t, result.RequiresApproval)
	assert.False(t, result.Deployed)

	active, err := m.ActiveVersion("eligibility-predictor")
	require.NoError(t, err)
	assert.Equal(t, "1.0.0", active.Version)
}

func TestImproveModel_ThreeActionsBelowAutoDeployThreshold(t *testing.T) {
	// 120 samples: accuracy 0.7, very-high bucket 0.7, partial rate ~0.167,
	// sample count above the retrain floor. Exactly three improvement
	// actions fire, so the simulated gain is 0.045 — below the 0.05
	// auto-deploy threshold even with approval not required.
	m := NewManager(approvalProfile(120), nil, nil)
	m.Register(context.Background(), "eligibility-predictor", model.PredictionClaimApproval, model.Performance{Accuracy: 0.90, Precision: 0.9, Recall: 0.9})

	result, err := m.ImproveModel(context.Background(), "eligibility-predictor", false)
	require.NoError(t, err)

	require.Len(t, result.Actions, 3)
	assert.InDelta(t, 0.045, result.Gain, 1e-9)
	assert.False(t, result.Deployed)
	assert.True(t, result.RequiresApproval)

	active, err := m.ActiveVersion("eligibility-predictor")
	require.NoError(t, err)
	assert.Equal(t, "1.0.0", active.Version)
}

func TestImproveModel_AutoDeploy(t *testing.T) {
	// 48 samples trip the low-sample rule too: four actions, gain 0.06.
	m := NewManager(approvalProfile(48), nil, nil)
	m.Register(context.Background(), "eligibility-predictor", model.PredictionClaimApproval, model.Performance{Accuracy: 0.90, Precision: 0.9, Recall: 0.9})

	result, err := m.ImproveModel(context.Background(), "eligibility-predictor", false)
	require.NoError(t, err)

	require.Len(t, result.Actions, 4)
	assert.InDelta(t, 0.06, result.Gain, 1e-9)
	assert.True(t, result.Deployed)
	assert.False(t, result.RequiresApproval)

	active, err := m.ActiveVersion("eligibility-predictor")
	require.NoError(t, err)
	assert.Equal(t, "1.1.0", active.Version)
	assert.True(t, active.CanRollback)
	assert.Equal(t, "1.0.0", active.RollbackTarget)

	versions, err := m.Versions("eligibility-predictor")
	require.NoError(t, err)
	require.Len(t, versions, 2)
	assert.Equal(t, model.ModelDeprecated, versions[0].Status)
}

func TestRollbackModel_OneShot(t *testing.T) {
	m := NewManager(approvalProfile(48), nil, nil)
	m.Register(context.Background(), "eligibility-predictor", model.PredictionClaimApproval, model.Performance{Accuracy: 0.90, Precision: 0.9, Recall: 0.9})

	_, err := m.ImproveModel(context.Background(), "eligibility-predictor", false)
	require.NoError(t, err)

	restored, err := m.RollbackModel(context.Background(), "eligibility-predictor", "accuracy regression in production")
	require.NoError(t, err)
	assert.Equal(t, "1.0.0", restored.Version)
	assert.Equal(t, model.ModelActive, restored.Status)
	assert.False(t, restored.CanRollback)

	versions, err := m.Versions("eligibility-predictor")
	require.NoError(t, err)
	// Original, deployed-then-archived, restored.
	require.Len(t, versions, 3)
	assert.Equal(t, model.ModelArchived, versions[1].Status)
	assert.False(t, versions[1].CanRollback)

	// Second rollback must fail: the restored version is not rollbackable.
	_, err = m.RollbackModel(context.Background(), "eligibility-predictor", "again")
	assert.True(t, eris.Is(err, ErrRollback))
}

func TestRollbackModel_InitialVersionRejected(t *testing.T) {
	m := NewManager(nil, nil, nil)
	m.Register(context.Background(), "timeline-predictor", model.PredictionTimeToDecision, model.Performance{Accuracy: 0.8})

	_, err := m.RollbackModel(context.Background(), "timeline-predictor", "no target")
	assert.True(t, eris.Is(err, ErrRollback))
}

func TestAnalyzePerformance_RetrainGate(t *testing.T) {
	// 120 samples at 0.7 accuracy against a recorded 0.90: retrain.
	m := NewManager(approvalProfile(120), nil, nil)
	m.Register(context.Background(), "eligibility-predictor", model.PredictionClaimApproval, model.Performance{Accuracy: 0.90})

	report, err := m.AnalyzePerformance("eligibility-predictor", time.Time{})
	require.NoError(t, err)
	assert.Equal(t, 120, report.SampleCount)
	assert.InDelta(t, 0.7, report.Accuracy, 1e-9)
	assert.True(t, report.ShouldRetrain)

	// Below the 100-sample floor: never retrain, regardless of accuracy.
	m = NewManager(approvalProfile(50), nil, nil)
	m.Register(context.Background(), "eligibility-predictor", model.PredictionClaimApproval, model.Performance{Accuracy: 0.90})
	report, err = m.AnalyzePerformance("eligibility-predictor", time.Time{})
	require.NoError(t, err)
	assert.False(t, report.ShouldRetrain)

	// Accuracy within 5 points of recorded: no retrain.
	m = NewManager(approvalProfile(120), nil, nil)
	m.Register(context.Background(), "eligibility-predictor", model.PredictionClaimApproval, model.Performance{Accuracy: 0.72})
	report, err = m.AnalyzePerformance("eligibility-predictor", time.Time{})
	require.NoError(t, err)
	assert.False(t, report.ShouldRetrain)
}

func TestBumpMinor(t *testing.T) {
	assert.Equal(t, "1.3.0", bumpMinor("1.2.3"))
	assert.Equal(t, "2.1.0", bumpMinor("2.0.0"))
	assert.Equal(t, "1.1.0", bumpMinor("garbage"))
}
