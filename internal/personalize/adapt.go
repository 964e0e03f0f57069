package personalize

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/vetlink-group/intel-cli/internal/model"
)

// Actions with a financial impact at or above this are suppressed for
// subjects reporting low financial readiness.
const largeFinancialImpact = 500.0

var titler = cases.Title(language.AmericanEnglish)

// affiliationTerms maps a branch affiliation to term substitutions
// applied to insight titles and descriptions. Both the lowercase and
// title-cased forms of each term are substituted.
var affiliationTerms = map[string][][2]string{
	"army":        {{"service member", "soldier"}, {"your branch", "the Army"}},
	"navy":        {{"service member", "sailor"}, {"your branch", "the Navy"}},
	"air-force":   {{"service member", "airman"}, {"your branch", "the Air Force"}},
	"marines":     {{"service member", "Marine"}, {"your branch", "the Marine Corps"}},
	"coast-guard": {{"service member", "Coast Guardsman"}, {"your branch", "the Coast Guard"}},
	"space-force": {{"service member", "Guardian"}, {"your branch", "the Space Force"}},
}

func normalizeChoice(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func replacerFor(affiliation string) *strings.Replacer {
	terms, ok := affiliationTerms[affiliation]
	if !ok {
		return nil
	}
	pairs := make([]string, 0, len(terms)*4)
	for _, t := range terms {
		pairs = append(pairs, t[0], t[1], titler.String(t[0]), titler.String(t[1]))
	}
	return strings.NewReplacer(pairs...)
}

// Adapt returns personalized copies of the insights. Inputs are never
// mutated; suppressed actions are dropped, priorities re-ranked within
// bounds, and wording adjusted for the subject's affiliation and style.
func Adapt(insights []model.Insight, ctx Context) []model.Insight {
	out := make([]model.Insight, 0, len(insights))
	replacer := replacerFor(ctx.Affiliation)

	for _, in := range insights {
		adapted := in
		if replacer != nil {
			adapted.Title = replacer.Replace(adapted.Title)
			adapted.Description = replacer.Replace(adapted.Description)
		}
		adapted.Description = rewriteStyle(adapted.Description, adapted.Rationale, ctx.CommunicationStyle)
		adapted.Actions = filterActions(in.Actions, ctx)
		adapted.Priority = rerank(adapted, ctx)
		out = append(out, adapted)
	}
	return out
}

// rewriteStyle adjusts description depth: "simple" keeps only the first
// sentence, "detailed" folds the rationale in, anything else passes
// through.
func rewriteStyle(description string, rationale []string, style string) string {
	switch style {
	case "simple":
		if idx := strings.Index(description, ". "); idx >= 0 {
			return description[:idx+1]
		}
		return description
	case "detailed":
		if len(rationale) == 0 {
			return description
		}
		return description + " Why: " + strings.Join(rationale, "; ") + "."
	default:
		return description
	}
}

func filterActions(actions []model.RecommendedAction, ctx Context) []model.RecommendedAction {
	if len(actions) == 0 {
		return nil
	}
	kept := make([]model.RecommendedAction, 0, len(actions))
	for _, a := range actions {
		if ctx.Dismissed[a.ID] {
			continue
		}
		if ctx.FinancialReadiness == "low" &&
			a.EstimatedImpact.Type == "financial" &&
			a.EstimatedImpact.Value >= largeFinancialImpact {
			continue
		}
		if ctx.EmploymentReadiness == "high" && a.ActionType == "application" {
			continue
		}
		kept = append(kept, a)
	}
	if len(kept) == 0 {
		return nil
	}
	return kept
}

// rerank moves priority up one tier on a goal match and down one tier
// when the category sits outside the declared priority areas. Both
// moves are bounded, never wrapping.
func rerank(in model.Insight, ctx Context) model.Priority {
	p := in.Priority
	if matchesGoal(in, ctx.Goals) {
		p = p.Raise()
	}
	if len(ctx.PriorityAreas) > 0 && !inAreas(in.Category, ctx.PriorityAreas) {
		p = p.Lower()
	}
	return p
}

func matchesGoal(in model.Insight, goals []string) bool {
	title := strings.ToLower(in.Title)
	category := strings.ToLower(string(in.Category))
	for _, g := range goals {
		goal := normalizeChoice(g)
		if goal == "" {
			continue
		}
		if strings.Contains(title, goal) || strings.Contains(category, goal) || strings.Contains(goal, category) {
			return true
		}
	}
	return false
}

func inAreas(category model.InsightCategory, areas []string) bool {
	for _, a := range areas {
		if normalizeChoice(a) == string(category) {
			return true
		}
	}
	return false
}
