package model

import "time"

// ModelStatus is the lifecycle state of a deployed model version.
type ModelStatus string

const (
	ModelActive     ModelStatus = "active"
	ModelDeprecated ModelStatus = "deprecated"
	ModelArchived   ModelStatus = "archived"
)

// Performance holds the recorded quality metrics for a model version.
type Performance struct {
	Accuracy  float64 `json:"accuracy"`
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1"`
}

// ModelVersion is one deployable revision of a named model. Versions move
// active → deprecated on a new deployment and to archived on rollback;
// rollback is a one-shot operation per version.
type ModelVersion struct {
	ID             string      `json:"id"`
	ModelName      string      `json:"model_name"`
	Version        string      `json:"version"` // semver
	DeployedAt     time.Time   `json:"deployed_at"`
	Status         ModelStatus `json:"status"`
	Performance    Performance `json:"performance"`
	ChangeLog      []string    `json:"change_log,omitempty"`
	RollbackTarget string      `json:"rollback_target,omitempty"`
	CanRollback    bool        `json:"can_rollback"`
}
