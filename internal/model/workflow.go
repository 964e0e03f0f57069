package model

import "time"

// Trigger describes what starts a workflow.
type Trigger struct {
	Type   string         `json:"type" yaml:"type"` // "manual", "event", "schedule"
	Config map[string]any `json:"config,omitempty" yaml:"config,omitempty"`
}

// WorkflowStep is one action in a workflow. Automated steps execute
// immediately; steps requiring approval (and non-automated steps) are
// marked pending instead of executed.
type WorkflowStep struct {
	Action           string `json:"action" yaml:"action"`
	Automated        bool   `json:"automated" yaml:"automated"`
	RequiresApproval bool   `json:"requires_approval" yaml:"requires_approval"`
}

// Workflow is a named automation template. Only run bookkeeping
// (RunCount, SuccessRate) mutates after registration.
type Workflow struct {
	ID          string         `json:"id" yaml:"id"`
	Name        string         `json:"name" yaml:"name"`
	Trigger     Trigger        `json:"trigger" yaml:"trigger"`
	Steps       []WorkflowStep `json:"steps" yaml:"steps"`
	Enabled     bool           `json:"enabled" yaml:"enabled"`
	RunCount    int            `json:"run_count" yaml:"-"`
	SuccessRate float64        `json:"success_rate" yaml:"-"`
	CreatedAt   time.Time      `json:"created_at" yaml:"-"`
}

// StepResult records what happened to one step during a run.
type StepResult struct {
	Index   int    `json:"index"`
	Action  string `json:"action"`
	Status  string `json:"status"` // "completed", "pending_approval", "pending_manual", "failed"
	Message string `json:"message,omitempty"`
}

// WorkflowRun is the outcome of executing a workflow once.
type WorkflowRun struct {
	WorkflowID string       `json:"workflow_id"`
	Success    bool         `json:"success"`
	Results    []StepResult `json:"results"`
	Errors     []string     `json:"errors,omitempty"`
	Trail      []string     `json:"trail"`
	StartedAt  time.Time    `json:"started_at"`
	FinishedAt time.Time    `json:"finished_at"`
}
