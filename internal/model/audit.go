package model

import "time"

// EventType classifies audit entries for compliance bucketing.
type EventType string

const (
	EventDecision    EventType = "decision"
	EventCacheServed EventType = "cache_served"
	EventOverride    EventType = "override"
	EventDataAccess  EventType = "data_access"
	EventModelUpdate EventType = "model_update"
	EventFailure     EventType = "failure"
	EventWorkflowRun EventType = "workflow_run"
	EventOutcome     EventType = "outcome"
)

// Lineage records the chain of source data and transformations that
// produced a set of outputs. Backward traversal over these fields
// reconstructs full provenance for any output id.
type Lineage struct {
	SourceIDs  []string `json:"source_ids,omitempty"`
	Transforms []string `json:"transforms,omitempty"`
	OutputIDs  []string `json:"output_ids,omitempty"`
}

// AuditEntry is an immutable log record. Corrections are new entries,
// never in-place edits; only retention purge removes entries.
type AuditEntry struct {
	ID        string         `json:"id"`
	Timestamp time.Time      `json:"timestamp"`
	EventType EventType      `json:"event_type"`
	ActorID   string         `json:"actor_id,omitempty"`
	SubjectID string         `json:"subject_id,omitempty"`
	Action    string         `json:"action"`
	Details   map[string]any `json:"details,omitempty"`
	Result    string         `json:"result"` // "success", "failure"
	Lineage   Lineage        `json:"lineage"`
}

// DecisionLog records one orchestrated decision. Exactly one is written per
// non-cache-hit query; the outcome is attached later when known.
type DecisionLog struct {
	ID              string         `json:"id"`
	Timestamp       time.Time      `json:"timestamp"`
	SubjectID       string         `json:"subject_id"`
	Input           map[string]any `json:"input"`
	Output          map[string]any `json:"output"`
	Reasoning       []string       `json:"reasoning"`
	SourceSnapshots []string       `json:"source_snapshots"`
	Confidence      float64        `json:"confidence"`
	Overridden      bool           `json:"overridden"`
	Outcome         string         `json:"outcome,omitempty"`
}
