package personalize

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vetlink-group/intel-cli/internal/model"
)

func baseInsight() model.Insight {
	return model.Insight{
		ID:          "ins-1",
		Title:       "Health care enrollment available",
		Description: "As a service member you qualify for enrollment. Apply through the regional office.",
		Category:    model.CategoryBenefits,
		Priority:    model.PriorityMedium,
		Rationale:   []string{"rating meets the enrollment threshold"},
		Actions: []model.RecommendedAction{
			{
				ID:         "act-apply",
				Title:      "Submit enrollment application",
				ActionType: "application",
				EstimatedImpact: model.EstimatedImpact{
					Type: "financial", Value: 1200, Unit: "usd_monthly",
				},
			},
			{
				ID:         "act-review",
				Title:      "Review award letter",
				ActionType: "review",
			},
		},
	}
}

func TestBuildContext_CachesPerSubject(t *testing.T) {
	now := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	b := NewBuilder().WithNow(func() time.Time { return now })

	first := b.BuildContext("vet-1", Profile{Affiliation: "Army"}, nil)
	assert.Equal(t, "army", first.Affiliation)

	// A different profile for the same subject still serves the cache.
	second := b.BuildContext("vet-1", Profile{Affiliation: "navy"}, nil)
	assert.Equal(t, "army", second.Affiliation)

	b.Invalidate("vet-1")
	third := b.BuildContext("vet-1", Profile{Affiliation: "navy"}, nil)
	assert.Equal(t, "navy", third.Affiliation)
}

func TestAdapt_AffiliationTerminology(t *testing.T) {
	ctx := Context{Affiliation: "navy"}
	out := Adapt([]model.Insight{baseInsight()}, ctx)
	require.Len(t, out, 1)
	assert.Contains(t, out[0].Description, "As a sailor you qualify")
	assert.NotContains(t, out[0].Description, "service member")
}

func TestAdapt_UnknownAffiliationUnchanged(t *testing.T) {
	ctx := Context{Affiliation: "merchant-marine"}
	out := Adapt([]model.Insight{baseInsight()}, ctx)
	assert.Contains(t, out[0].Description, "service member")
}

func TestAdapt_SimpleStyleKeepsFirstSentence(t *testing.T) {
	ctx := Context{CommunicationStyle: "simple"}
	out := Adapt([]model.Insight{baseInsight()}, ctx)
	assert.Equal(t, "As a service member you qualify for enrollment.", out[0].Description)
}

func TestAdapt_DetailedStyleAppendsRationale(t *testing.T) {
	ctx := Context{CommunicationStyle: "detailed"}
	out := Adapt([]model.Insight{baseInsight()}, ctx)
	assert.Contains(t, out[0].Description, "Why: rating meets the enrollment threshold.")
}

func TestAdapt_SuppressesLargeFinancialActionWhenReadinessLow(t *testing.T) {
	ctx := Context{FinancialReadiness: "low"}
	out := Adapt([]model.Insight{baseInsight()}, ctx)
	require.Len(t, out[0].Actions, 1)
	assert.Equal(t, "act-review", out[0].Actions[0].ID)
}

func TestAdapt_SuppressesApplicationsWhenEmploymentHigh(t *testing.T) {
	ctx := Context{EmploymentReadiness: "high"}
	out := Adapt([]model.Insight{baseInsight()}, ctx)
	require.Len(t, out[0].Actions, 1)
	assert.Equal(t, "act-review", out[0].Actions[0].ID)
}

func TestAdapt_SuppressesDismissedActions(t *testing.T) {
	ctx := Context{Dismissed: map[string]bool{"act-apply": true, "act-review": true}}
	out := Adapt([]model.Insight{baseInsight()}, ctx)
	assert.Empty(t, out[0].Actions)
}

func TestAdapt_GoalMatchRaisesPriority(t *testing.T) {
	ctx := Context{Goals: []string{"health care"}}
	out := Adapt([]model.Insight{baseInsight()}, ctx)
	assert.Equal(t, model.PriorityHigh, out[0].Priority)
}

func TestAdapt_OutsidePriorityAreasLowers(t *testing.T) {
	ctx := Context{PriorityAreas: []string{"employment"}}
	out := Adapt([]model.Insight{baseInsight()}, ctx)
	assert.Equal(t, model.PriorityLow, out[0].Priority)
}

func TestAdapt_PriorityNeverWraps(t *testing.T) {
	in := baseInsight()
	in.Priority = model.PriorityCritical
	ctx := Context{Goals: []string{"health care"}}
	out := Adapt([]model.Insight{in}, ctx)
	assert.Equal(t, model.PriorityCritical, out[0].Priority)

	in.Priority = model.PriorityLow
	ctx = Context{PriorityAreas: []string{"employment"}}
	out = Adapt([]model.Insight{in}, ctx)
	assert.Equal(t, model.PriorityLow, out[0].Priority)
}

func TestAdapt_DoesNotMutateInput(t *testing.T) {
	in := baseInsight()
	ctx := Context{Affiliation: "army", FinancialReadiness: "low"}
	_ = Adapt([]model.Insight{in}, ctx)
	assert.Contains(t, in.Description, "service member")
	assert.Len(t, in.Actions, 2)
}
