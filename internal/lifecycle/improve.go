package lifecycle

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/vetlink-group/intel-cli/internal/model"
)

// gainPerAction is the simulated accuracy gain contributed by each
// identified improvement action.
const gainPerAction = 0.015

// autoDeployMinGain is the simulated gain required before a candidate may
// auto-deploy.
const autoDeployMinGain = 0.05

// autoDeployMinAccuracy is the resulting accuracy floor for auto-deploy.
const autoDeployMinAccuracy = 0.70

// ImprovementResult describes a synthesized candidate version and whether
// it was installed.
type ImprovementResult struct {
	ModelName        string             `json:"model_name"`
	Candidate        model.ModelVersion `json:"candidate"`
	Actions          []string           `json:"actions"`
	Gain             float64            `json:"gain"`
	Deployed         bool               `json:"deployed"`
	RequiresApproval bool               `json:"requires_approval"`
}

// identifyImprovements derives concrete improvement actions from a
// performance report. Each rule contributes at most one action.
func identifyImprovements(report PerformanceReport) []string {
	var actions []string
	if report.Accuracy < 0.90 {
		actions = append(actions, "expand validated outcome sample for scoring heuristics")
	}
	for _, bucket := range []model.ConfidenceBucket{model.BucketVeryHigh, model.BucketHigh} {
		if acc, ok := report.ByBucket[bucket]; ok && acc < 0.80 {
			actions = append(actions, "recalibrate high-confidence score thresholds")
			break
		}
	}
	if report.PartialRate > 0.15 {
		actions = append(actions, "sharpen object field attribution in correctness checks")
	}
	if report.SampleCount < retrainMinSamples {
		actions = append(actions, "collect additional validation samples")
	}
	return actions
}

// ImproveModel synthesizes a semver-bumped candidate with a simulated
// performance gain proportional to the identified improvement actions.
// The candidate auto-deploys only when approval is not required, the gain
// is at least 0.05, and the resulting accuracy is at least 0.70.
// Otherwise it is returned with RequiresApproval set and not installed.
func (m *Manager) ImproveModel(ctx context.Context, name string, approvalRequired bool) (ImprovementResult, error) {
	active, err := m.ActiveVersion(name)
	if err != nil {
		return ImprovementResult{}, err
	}

	report, err := m.AnalyzePerformance(name, time.Time{})
	if err != nil {
		return ImprovementResult{}, err
	}

	actions := identifyImprovements(report)
	gain := float64(len(actions)) * gainPerAction

	newPerf := active.Performance
	newPerf.Accuracy = clamp01(newPerf.Accuracy + gain)
	newPerf.Precision = clamp01(newPerf.Precision + gain)
	newPerf.Recall = clamp01(newPerf.Recall + gain)
	if newPerf.Precision+newPerf.Recall > 0 {
		newPerf.F1 = 2 * newPerf.Precision * newPerf.Recall / (newPerf.Precision + newPerf.Recall)
	}

	candidate := model.ModelVersion{
		ID:          uuid.New().String(),
		ModelName:   name,
		Version:     bumpMinor(active.Version),
		DeployedAt:  m.nowFunc().UTC(),
		Performance: newPerf,
		ChangeLog:   actions,
	}

	result := ImprovementResult{
		ModelName: name,
		Candidate: candidate,
		Actions:   actions,
		Gain:      gain,
	}

	if approvalRequired {
		result.RequiresApproval = true
		return result, nil
	}
	if gain < autoDeployMinGain || newPerf.Accuracy < autoDeployMinAccuracy {
		result.RequiresApproval = true
		return result, nil
	}

	deployed, err := m.deploy(ctx, name, candidate)
	if err != nil {
		return ImprovementResult{}, err
	}
	result.Candidate = deployed
	result.Deployed = true
	return result, nil
}

// ApproveCandidate installs a previously returned candidate after human
// approval.
func (m *Manager) ApproveCandidate(ctx context.Context, name string, candidate model.ModelVersion) (model.ModelVersion, error) {
	return m.deploy(ctx, name, candidate)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
