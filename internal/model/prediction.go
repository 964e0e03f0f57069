package model

import "time"

// PredictionKind names the forecast type a predictor produces.
type PredictionKind string

const (
	PredictionClaimApproval  PredictionKind = "claim-approval"
	PredictionTimeToDecision PredictionKind = "time-to-decision"
)

// ValidationStatus tracks whether a prediction has been correlated with a
// ground-truth outcome.
type ValidationStatus string

const (
	ValidationPending   ValidationStatus = "pending"
	ValidationValidated ValidationStatus = "validated"
)

// Prediction is a typed forecast with explainability. The ModelVersion tag
// is the active version string of the named model that produced it, so
// outcomes can be attributed back through the model lifecycle.
type Prediction struct {
	ID              string           `json:"id"`
	Kind            PredictionKind   `json:"kind"`
	Subject         string           `json:"subject"`
	Value           any              `json:"value"`
	ConfidenceScore float64          `json:"confidence_score"` // 0..100
	Rationale       []string         `json:"rationale"`
	SourceSnapshots []string         `json:"source_snapshots"`
	ModelVersion    string           `json:"model_version"`
	CreatedAt       time.Time        `json:"created_at"`
	Validation      ValidationStatus `json:"validation,omitempty"`
}

// ConfidenceBucket derives the discrete label from the stored score.
func (p Prediction) ConfidenceBucket() ConfidenceBucket {
	return BucketFor(p.ConfidenceScore)
}
