package detector

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/vetlink-group/intel-cli/internal/model"
)

const resourceUtilizationConfidence = 65

// ResourceUtilizationGenerator surfaces high-value programs the subject
// qualifies for but has never used, per the resources engine snapshot.
type ResourceUtilizationGenerator struct{}

func NewResourceUtilizationGenerator() *ResourceUtilizationGenerator {
	return &ResourceUtilizationGenerator{}
}

func (g *ResourceUtilizationGenerator) Name() string { return "resource-utilization" }

func (g *ResourceUtilizationGenerator) Generate(snaps Snapshots, query model.QueryRequest) []model.Insight {
	snap, ok := snaps[model.EngineResources]
	if !ok {
		return nil
	}

	unused, hasUnused := snap.Strings("unused_programs")
	if !hasUnused || len(unused) == 0 {
		return nil
	}

	rationale := make([]string, 0, len(unused))
	for _, program := range unused {
		rationale = append(rationale, fmt.Sprintf("program %q is available but has no recorded usage", program))
	}

	return []model.Insight{{
		ID:              uuid.New().String(),
		Title:           "Unused programs available",
		Description:     fmt.Sprintf("%d programs the subject qualifies for show no usage.", len(unused)),
		Category:        model.CategoryResources,
		ConfidenceScore: resourceUtilizationConfidence,
		Rationale:       rationale,
		SourceSnapshots: snaps.Refs(model.EngineResources),
		Priority:        model.PriorityLow,
		CreatedAt:       time.Now().UTC(),
		Actions: []model.RecommendedAction{{
			ID:         uuid.New().String(),
			Title:      "Review available programs",
			ActionType: "review",
			EstimatedImpact: model.EstimatedImpact{
				Type: "coverage", Value: float64(len(unused)), Unit: "percent",
			},
			Steps:       []string{"Review the unused program list", "Contact the program office for enrollment"},
			Overridable: true,
		}},
	}}
}
