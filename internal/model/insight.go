package model

import "time"

// InsightCategory groups insights by the domain concern they describe.
type InsightCategory string

const (
	CategoryBenefits   InsightCategory = "benefits"
	CategoryEvidence   InsightCategory = "evidence"
	CategoryEmployment InsightCategory = "employment"
	CategoryTransition InsightCategory = "transition"
	CategoryRetirement InsightCategory = "retirement"
	CategoryResources  InsightCategory = "resources"
)

// EstimatedImpact quantifies what acting on a recommendation is worth.
type EstimatedImpact struct {
	Type  string  `json:"type"` // "financial", "time", "coverage"
	Value float64 `json:"value"`
	Unit  string  `json:"unit"` // "usd_monthly", "days", "percent"
}

// RecommendedAction is an actionable next step embedded in insights and
// predictions, independently referenceable by id.
type RecommendedAction struct {
	ID              string          `json:"id"`
	Title           string          `json:"title"`
	ActionType      string          `json:"action_type"` // "application", "document", "review", "contact"
	EstimatedImpact EstimatedImpact `json:"estimated_impact"`
	Steps           []string        `json:"steps"`
	RequiredInputs  []string        `json:"required_inputs,omitempty"`
	Automated       bool            `json:"automated"`
	Overridable     bool            `json:"overridable"`
}

// Insight is a synthesized, explainable observation. Read-only after
// creation; it expires logically via ExpiresAt and is never mutated in
// place — personalization returns adapted copies.
type Insight struct {
	ID              string              `json:"id"`
	Title           string              `json:"title"`
	Description     string              `json:"description"`
	Category        InsightCategory     `json:"category"`
	ConfidenceScore float64             `json:"confidence_score"` // 0..100
	Rationale       []string            `json:"rationale"`
	SourceSnapshots []string            `json:"source_snapshots"`
	Actions         []RecommendedAction `json:"actions,omitempty"`
	Priority        Priority            `json:"priority"`
	CreatedAt       time.Time           `json:"created_at"`
	ExpiresAt       *time.Time          `json:"expires_at,omitempty"`
}

// ConfidenceBucket derives the discrete label from the stored score.
func (i Insight) ConfidenceBucket() ConfidenceBucket {
	return BucketFor(i.ConfidenceScore)
}

// Expired reports whether the insight's logical lifetime has passed.
func (i Insight) Expired(now time.Time) bool {
	return i.ExpiresAt != nil && now.After(*i.ExpiresAt)
}
