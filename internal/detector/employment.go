package detector

import (
	"time"

	"github.com/google/uuid"

	"github.com/vetlink-group/intel-cli/internal/model"
)

const (
	employmentReadyConfidence = 75
	employmentGapConfidence   = 70
)

// EmploymentReadinessGenerator reads the employment engine snapshot and
// flags either job-search readiness or the concrete preparation gap.
type EmploymentReadinessGenerator struct{}

func NewEmploymentReadinessGenerator() *EmploymentReadinessGenerator {
	return &EmploymentReadinessGenerator{}
}

func (g *EmploymentReadinessGenerator) Name() string { return "employment-readiness" }

func (g *EmploymentReadinessGenerator) Generate(snaps Snapshots, query model.QueryRequest) []model.Insight {
	snap, ok := snaps[model.EngineEmployment]
	if !ok {
		return nil
	}

	now := time.Now().UTC()
	refs := snaps.Refs(model.EngineEmployment)
	resumeComplete, _ := snap.Bool("resume_complete")
	certs, _ := snap.Float("certifications")

	if resumeComplete && certs >= 1 {
		return []model.Insight{{
			ID:              uuid.New().String(),
			Title:           "Ready for active job search",
			Description:     "Resume is complete and at least one certification is on record; employment services can move to placement.",
			Category:        model.CategoryEmployment,
			ConfidenceScore: employmentReadyConfidence,
			Rationale: []string{
				"resume is marked complete in the employment record",
				"at least one certification is on record",
			},
			SourceSnapshots: refs,
			Priority:        model.PriorityMedium,
			CreatedAt:       now,
		}}
	}

	rationale := []string{}
	steps := []string{}
	if !resumeComplete {
		rationale = append(rationale, "resume is not marked complete in the employment record")
		steps = append(steps, "Finish the resume with a career counselor")
	}
	if certs < 1 {
		rationale = append(rationale, "no certifications are on record")
		steps = append(steps, "Enroll in a certification program covered by education benefits")
	}

	return []model.Insight{{
		ID:              uuid.New().String(),
		Title:           "Employment preparation incomplete",
		Description:     "Job-search prerequisites are missing; placement services will stall until they are addressed.",
		Category:        model.CategoryEmployment,
		ConfidenceScore: employmentGapConfidence,
		Rationale:       rationale,
		SourceSnapshots: refs,
		Priority:        model.PriorityMedium,
		CreatedAt:       now,
		Actions: []model.RecommendedAction{{
			ID:         uuid.New().String(),
			Title:      "Complete employment preparation",
			ActionType: "review",
			EstimatedImpact: model.EstimatedImpact{
				Type: "time", Value: 60, Unit: "days",
			},
			Steps:       steps,
			Overridable: true,
		}},
	}}
}
