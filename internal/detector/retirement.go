package detector

import (
	"time"

	"github.com/google/uuid"

	"github.com/vetlink-group/intel-cli/internal/model"
)

const retirementPlanningConfidence = 80

// retirementPlanningYears is the years-of-service mark where retirement
// planning becomes material.
const retirementPlanningYears = 18

// RetirementPlanningGenerator flags subjects approaching the twenty-year
// retirement mark without a recorded plan.
type RetirementPlanningGenerator struct{}

func NewRetirementPlanningGenerator() *RetirementPlanningGenerator {
	return &RetirementPlanningGenerator{}
}

func (g *RetirementPlanningGenerator) Name() string { return "retirement-planning" }

func (g *RetirementPlanningGenerator) Generate(snaps Snapshots, query model.QueryRequest) []model.Insight {
	snap, ok := snaps[model.EngineRetirement]
	if !ok {
		return nil
	}

	years, hasYears := snap.Float("years_of_service")
	planOnFile, _ := snap.Bool("retirement_plan_on_file")
	if !hasYears || years < retirementPlanningYears || planOnFile {
		return nil
	}

	return []model.Insight{{
		ID:              uuid.New().String(),
		Title:           "Retirement planning window open",
		Description:     "Years of service are approaching the retirement mark and no retirement plan is on file.",
		Category:        model.CategoryRetirement,
		ConfidenceScore: retirementPlanningConfidence,
		Rationale: []string{
			"years of service are at or above the 18 year planning threshold",
			"no retirement plan is on file",
		},
		SourceSnapshots: snaps.Refs(model.EngineRetirement),
		Priority:        model.PriorityMedium,
		CreatedAt:       time.Now().UTC(),
		Actions: []model.RecommendedAction{{
			ID:         uuid.New().String(),
			Title:      "Start a retirement plan review",
			ActionType: "contact",
			EstimatedImpact: model.EstimatedImpact{
				Type: "financial", Value: 500, Unit: "usd_monthly",
			},
			Steps:       []string{"Request a retirement points statement", "Meet with a retirement services officer"},
			Overridable: true,
		}},
	}}
}
