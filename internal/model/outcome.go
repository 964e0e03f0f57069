package model

import "time"

// OutcomeFeedback is optional human feedback attached to a validated
// prediction after the fact.
type OutcomeFeedback struct {
	Helpful bool      `json:"helpful"`
	Comment string    `json:"comment,omitempty"`
	AddedAt time.Time `json:"added_at"`
}

// OutcomeRecord correlates a prediction with its ground-truth result.
// Created once per validated prediction.
type OutcomeRecord struct {
	PredictionID     string           `json:"prediction_id"`
	Kind             PredictionKind   `json:"kind"`
	PredictedValue   any              `json:"predicted_value"`
	ActualValue      any              `json:"actual_value"`
	Confidence       float64          `json:"confidence"` // 0..100
	Correct          bool             `json:"correct"`
	PartiallyCorrect bool             `json:"partially_correct"`
	RecordedAt       time.Time        `json:"recorded_at"`
	Feedback         *OutcomeFeedback `json:"feedback,omitempty"`
}
