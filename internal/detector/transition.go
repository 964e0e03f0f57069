package detector

import (
	"time"

	"github.com/google/uuid"

	"github.com/vetlink-group/intel-cli/internal/model"
)

const transitionWindowConfidence = 95

// transitionCriticalMonths is the separation horizon inside which the
// transition checklist becomes urgent.
const transitionCriticalMonths = 6

// TransitionTimelineGenerator watches the transition engine snapshot for
// an approaching separation date.
type TransitionTimelineGenerator struct{}

func NewTransitionTimelineGenerator() *TransitionTimelineGenerator {
	return &TransitionTimelineGenerator{}
}

func (g *TransitionTimelineGenerator) Name() string { return "transition-timeline" }

func (g *TransitionTimelineGenerator) Generate(snaps Snapshots, query model.QueryRequest) []model.Insight {
	snap, ok := snaps[model.EngineTransition]
	if !ok {
		return nil
	}

	months, hasMonths := snap.Float("months_to_separation")
	if !hasMonths || months > transitionCriticalMonths || months < 0 {
		return nil
	}

	tapComplete, _ := snap.Bool("tap_complete")
	rationale := []string{
		"separation date is within the six month transition window",
	}
	priority := model.PriorityHigh
	if !tapComplete {
		rationale = append(rationale, "transition assistance program is not marked complete")
		priority = model.PriorityCritical
	}

	return []model.Insight{{
		ID:              uuid.New().String(),
		Title:           "Separation window is closing",
		Description:     "Separation is imminent; time-boxed transition steps need to happen now to avoid benefit gaps.",
		Category:        model.CategoryTransition,
		ConfidenceScore: transitionWindowConfidence,
		Rationale:       rationale,
		SourceSnapshots: snaps.Refs(model.EngineTransition),
		Priority:        priority,
		CreatedAt:       time.Now().UTC(),
		Actions: []model.RecommendedAction{{
			ID:         uuid.New().String(),
			Title:      "Complete pre-separation checklist",
			ActionType: "review",
			EstimatedImpact: model.EstimatedImpact{
				Type: "time", Value: months * 30, Unit: "days",
			},
			Steps: []string{
				"Schedule the transition assistance workshop",
				"File the benefits-at-discharge claim",
				"Request the final service treatment records",
			},
			Overridable: true,
		}},
	}}
}
