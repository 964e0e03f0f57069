package detector

import (
	"time"

	"github.com/google/uuid"

	"github.com/vetlink-group/intel-cli/internal/model"
)

// Scoring constants for the claim approval predictor. The score is an
// explicit, auditable sum, not a trained model.
const (
	approvalBaseScore     = 40.0
	approvalPerDocument   = 15.0
	approvalRatingBonus   = 10.0
	approvalEligibleScore = 70.0
)

// ClaimApprovalPredictor estimates whether a pending claim will be
// approved, scored from evidence completeness and the existing rating.
type ClaimApprovalPredictor struct {
	versions VersionSource
}

func NewClaimApprovalPredictor(versions VersionSource) *ClaimApprovalPredictor {
	return &ClaimApprovalPredictor{versions: versions}
}

func (p *ClaimApprovalPredictor) Name() string      { return "claim-approval" }
func (p *ClaimApprovalPredictor) ModelName() string { return "eligibility-predictor" }

func (p *ClaimApprovalPredictor) Predict(subjectID string, snaps Snapshots) (model.Prediction, bool) {
	evidence, hasEvidence := snaps[model.EngineEvidence]
	if !hasEvidence {
		return model.Prediction{}, false
	}

	score := approvalBaseScore
	rationale := []string{"baseline approval score applied"}

	docs, _ := evidence.Strings("documents")
	present := make(map[string]bool, len(docs))
	for _, d := range docs {
		present[d] = true
	}
	for _, required := range requiredClaimDocuments {
		if present[required] {
			score += approvalPerDocument
			rationale = append(rationale, "required document "+required+" is on file")
		} else {
			rationale = append(rationale, "required document "+required+" is missing")
		}
	}

	if benefits, ok := snaps[model.EngineBenefits]; ok {
		if rating, has := benefits.Float("disability_rating"); has && rating > 0 {
			score += approvalRatingBonus
			rationale = append(rationale, "an existing service-connected rating supports the claim")
		}
	}
	if score > 100 {
		score = 100
	}

	eligible := score >= approvalEligibleScore
	return model.Prediction{
		ID:      uuid.New().String(),
		Kind:    model.PredictionClaimApproval,
		Subject: subjectID,
		Value: map[string]any{
			"eligible":    eligible,
			"probability": score / 100,
		},
		ConfidenceScore: score,
		Rationale:       rationale,
		SourceSnapshots: snaps.Refs(model.EngineEvidence, model.EngineBenefits),
		ModelVersion:    p.versions.ActiveVersionTag(p.ModelName()),
		CreatedAt:       time.Now().UTC(),
		Validation:      model.ValidationPending,
	}, true
}

// Timeline predictor constants: a baseline processing time, extended per
// missing document and by reported backlog.
const (
	timelineBaseDays       = 90.0
	timelinePerMissingDoc  = 30.0
	timelineBacklogFactor  = 0.5
	timelineHighConfidence = 70.0
	timelineLowConfidence  = 55.0
)

// DecisionTimelinePredictor estimates days until a claim decision.
type DecisionTimelinePredictor struct {
	versions VersionSource
}

func NewDecisionTimelinePredictor(versions VersionSource) *DecisionTimelinePredictor {
	return &DecisionTimelinePredictor{versions: versions}
}

func (p *DecisionTimelinePredictor) Name() string      { return "decision-timeline" }
func (p *DecisionTimelinePredictor) ModelName() string { return "timeline-predictor" }

func (p *DecisionTimelinePredictor) Predict(subjectID string, snaps Snapshots) (model.Prediction, bool) {
	evidence, hasEvidence := snaps[model.EngineEvidence]
	if !hasEvidence {
		return model.Prediction{}, false
	}

	days := timelineBaseDays
	rationale := []string{"baseline processing time applied"}

	docs, _ := evidence.Strings("documents")
	present := make(map[string]bool, len(docs))
	for _, d := range docs {
		present[d] = true
	}
	missing := 0
	for _, required := range requiredClaimDocuments {
		if !present[required] {
			missing++
		}
	}
	if missing > 0 {
		days += float64(missing) * timelinePerMissingDoc
		rationale = append(rationale, "each missing required document extends development time")
	}

	confidence := timelineHighConfidence
	if backlog, has := evidence.Float("regional_backlog_days"); has && backlog > 0 {
		days += backlog * timelineBacklogFactor
		confidence = timelineLowConfidence
		rationale = append(rationale, "regional office backlog extends the queue wait")
	}

	return model.Prediction{
		ID:              uuid.New().String(),
		Kind:            model.PredictionTimeToDecision,
		Subject:         subjectID,
		Value:           days,
		ConfidenceScore: confidence,
		Rationale:       rationale,
		SourceSnapshots: snaps.Refs(model.EngineEvidence),
		ModelVersion:    p.versions.ActiveVersionTag(p.ModelName()),
		CreatedAt:       time.Now().UTC(),
		Validation:      model.ValidationPending,
	}, true
}
