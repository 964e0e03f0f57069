package detector

import (
	"time"

	"github.com/google/uuid"

	"github.com/vetlink-group/intel-cli/internal/model"
)

// Fixed confidence values for the benefits eligibility generator. These
// are part of the detector contract: the same data condition always
// yields the same score.
const (
	healthcareEligibilityConfidence = 85
	dependentBenefitConfidence      = 72
)

// healthcareEligibilityRating is the minimum disability rating that makes
// unenrolled health care worth flagging.
const healthcareEligibilityRating = 30

// BenefitsEligibilityGenerator flags benefits the subject appears
// eligible for but is not using, based on the benefits engine snapshot.
type BenefitsEligibilityGenerator struct{}

func NewBenefitsEligibilityGenerator() *BenefitsEligibilityGenerator {
	return &BenefitsEligibilityGenerator{}
}

func (g *BenefitsEligibilityGenerator) Name() string { return "benefits-eligibility" }

func (g *BenefitsEligibilityGenerator) Generate(snaps Snapshots, query model.QueryRequest) []model.Insight {
	snap, ok := snaps[model.EngineBenefits]
	if !ok {
		return nil
	}

	var insights []model.Insight
	now := time.Now().UTC()
	refs := snaps.Refs(model.EngineBenefits)

	rating, hasRating := snap.Float("disability_rating")
	enrolled, _ := snap.Bool("enrolled_healthcare")

	if hasRating && rating >= healthcareEligibilityRating && !enrolled {
		expires := now.AddDate(0, 1, 0)
		insights = append(insights, model.Insight{
			ID:              uuid.New().String(),
			Title:           "Likely eligible for VA health care enrollment",
			Description:     "The recorded disability rating meets the health care enrollment threshold, but no enrollment is on file.",
			Category:        model.CategoryBenefits,
			ConfidenceScore: healthcareEligibilityConfidence,
			Rationale: []string{
				"disability rating is at or above the 30 percent enrollment threshold",
				"no health care enrollment found in the benefits record",
			},
			SourceSnapshots: refs,
			Priority:        model.PriorityHigh,
			CreatedAt:       now,
			ExpiresAt:       &expires,
			Actions: []model.RecommendedAction{{
				ID:         uuid.New().String(),
				Title:      "Apply for VA health care",
				ActionType: "application",
				EstimatedImpact: model.EstimatedImpact{
					Type: "coverage", Value: 100, Unit: "percent",
				},
				Steps: []string{
					"Gather discharge paperwork",
					"Complete the health care application",
					"Submit supporting income documents",
				},
				RequiredInputs: []string{"dd214", "income_statement"},
				Overridable:    true,
			}},
		})
	}

	dependents, hasDependents := snap.Float("dependents")
	dependentsOnAward, _ := snap.Bool("dependents_on_award")
	if hasRating && rating >= 30 && hasDependents && dependents > 0 && !dependentsOnAward {
		insights = append(insights, model.Insight{
			ID:              uuid.New().String(),
			Title:           "Dependents not reflected in compensation award",
			Description:     "Dependents are recorded but not attached to the current award; additional monthly compensation may be available.",
			Category:        model.CategoryBenefits,
			ConfidenceScore: dependentBenefitConfidence,
			Rationale: []string{
				"disability rating is at or above the 30 percent dependent-benefit threshold",
				"dependents are recorded in the profile",
				"no dependents are attached to the current award",
			},
			SourceSnapshots: refs,
			Priority:        model.PriorityMedium,
			CreatedAt:       now,
			Actions: []model.RecommendedAction{{
				ID:         uuid.New().String(),
				Title:      "Add dependents to the award",
				ActionType: "application",
				EstimatedImpact: model.EstimatedImpact{
					Type: "financial", Value: 150 * dependents, Unit: "usd_monthly",
				},
				Steps:       []string{"Collect dependent records", "Submit a dependency claim"},
				Overridable: true,
			}},
		})
	}

	return insights
}
