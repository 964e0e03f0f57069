package model

import "time"

// QueryRequest is one orchestrated intelligence request.
type QueryRequest struct {
	SubjectID     string         `json:"subject_id"`
	Question      string         `json:"question"`
	Context       map[string]any `json:"context,omitempty"`
	Engines       []EngineID     `json:"engines,omitempty"` // empty = all registered
	MinConfidence float64        `json:"min_confidence"`    // 0..1, default 0.5
	MaxResults    int            `json:"max_results"`       // default 20
}

// QueryResponse bundles everything synthesized for one query.
type QueryResponse struct {
	QueryID         string              `json:"query_id"`
	SubjectID       string              `json:"subject_id"`
	Insights        []Insight           `json:"insights"`
	Predictions     []Prediction        `json:"predictions"`
	Recommendations []RecommendedAction `json:"recommendations"`
	Confidence      float64             `json:"confidence"` // mean of all scores, 0..100
	Lineage         []string            `json:"lineage"`
	GeneratedAt     time.Time           `json:"generated_at"`
	ExecutionMS     int64               `json:"execution_ms"`
	Cached          bool                `json:"cached"`
}
