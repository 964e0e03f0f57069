// Package workflow registers and executes named automation templates.
// Runs are partial-failure tolerant: a failed automated step records an
// error and execution continues through every remaining step.
package workflow

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"

	"github.com/vetlink-group/intel-cli/internal/model"
)

var (
	ErrNotFound          = eris.New("workflow: not found")
	ErrDisabled          = eris.New("workflow: disabled")
	ErrValidationFailure = eris.New("workflow: validation failure")
)

// StepFunc performs one automated step. The run context carries
// caller-supplied parameters.
type StepFunc func(ctx context.Context, action string, runContext map[string]any) error

// Auditor receives one entry per workflow run.
type Auditor interface {
	Append(ctx context.Context, e model.AuditEntry) model.AuditEntry
}

// Engine owns the workflow registry and run bookkeeping.
type Engine struct {
	mu        sync.Mutex
	workflows map[string]*model.Workflow
	order     []string
	runner    StepFunc
	auditor   Auditor
	nowFunc   func() time.Time
}

// NewEngine creates a workflow engine. runner executes automated steps;
// nil means every automated step succeeds (template dry-run mode).
func NewEngine(runner StepFunc, auditor Auditor) *Engine {
	return &Engine{
		workflows: make(map[string]*model.Workflow),
		runner:    runner,
		auditor:   auditor,
		nowFunc:   time.Now,
	}
}

// WithNow fixes the engine clock for tests.
func (e *Engine) WithNow(fn func() time.Time) *Engine {
	e.nowFunc = fn
	return e
}

// Register validates and stores a workflow, assigning an id when absent.
func (e *Engine) Register(w model.Workflow) (model.Workflow, error) {
	if w.Name == "" {
		return model.Workflow{}, eris.Wrap(ErrValidationFailure, "workflow: name is required")
	}
	if len(w.Steps) == 0 {
		return model.Workflow{}, eris.Wrap(ErrValidationFailure, "workflow: at least one step is required")
	}
	if w.ID == "" {
		w.ID = uuid.New().String()
	}
	w.CreatedAt = e.nowFunc().UTC()

	e.mu.Lock()
	defer e.mu.Unlock()
	if _, exists := e.workflows[w.ID]; !exists {
		e.order = append(e.order, w.ID)
	}
	e.workflows[w.ID] = &w
	return w, nil
}

// Get returns a copy of the workflow.
func (e *Engine) Get(id string) (model.Workflow, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	w, ok := e.workflows[id]
	if !ok {
		return model.Workflow{}, eris.Wrapf(ErrNotFound, "workflow: id %s", id)
	}
	return *w, nil
}

// List returns all workflows in registration order.
func (e *Engine) List() []model.Workflow {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]model.Workflow, 0, len(e.order))
	for _, id := range e.order {
		out = append(out, *e.workflows[id])
	}
	return out
}

// Execute runs a workflow's steps strictly in order. Automated steps
// execute through the runner; approval-gated and manual steps are marked
// pending. The run succeeds iff no step errored.
func (e *Engine) Execute(ctx context.Context, workflowID string, runContext map[string]any) (model.WorkflowRun, error) {
	e.mu.Lock()
	w, ok := e.workflows[workflowID]
	if !ok {
		e.mu.Unlock()
		return model.WorkflowRun{}, eris.Wrapf(ErrNotFound, "workflow: id %s", workflowID)
	}
	if !w.Enabled {
		e.mu.Unlock()
		return model.WorkflowRun{}, eris.Wrapf(ErrDisabled, "workflow: id %s", workflowID)
	}
	steps := make([]model.WorkflowStep, len(w.Steps))
	copy(steps, w.Steps)
	e.mu.Unlock()

	run := model.WorkflowRun{
		WorkflowID: workflowID,
		StartedAt:  e.nowFunc().UTC(),
	}

	for i, step := range steps {
		result := model.StepResult{Index: i, Action: step.Action}
		switch {
		case step.RequiresApproval:
			result.Status = "pending_approval"
			result.Message = "awaiting approval"
		case !step.Automated:
			result.Status = "pending_manual"
			result.Message = "awaiting manual completion"
		default:
			if err := e.runStep(ctx, step.Action, runContext); err != nil {
				result.Status = "failed"
				result.Message = err.Error()
				run.Errors = append(run.Errors, eris.Wrapf(err, "workflow: step %d %s", i, step.Action).Error())
			} else {
				result.Status = "completed"
			}
		}
		run.Results = append(run.Results, result)
		run.Trail = append(run.Trail, step.Action+":"+result.Status)
	}

	run.Success = len(run.Errors) == 0
	run.FinishedAt = e.nowFunc().UTC()

	e.recordRun(workflowID, run.Success)
	e.audit(ctx, w.Name, run)
	return run, nil
}

func (e *Engine) runStep(ctx context.Context, action string, runContext map[string]any) error {
	if e.runner == nil {
		return nil
	}
	return e.runner(ctx, action, runContext)
}

// recordRun folds one run into the cumulative success rate:
// (rate*(n-1) + outcome) / n.
func (e *Engine) recordRun(workflowID string, success bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	w, ok := e.workflows[workflowID]
	if !ok {
		return
	}
	w.RunCount++
	outcome := 0.0
	if success {
		outcome = 1.0
	}
	w.SuccessRate = (w.SuccessRate*float64(w.RunCount-1) + outcome) / float64(w.RunCount)
}

func (e *Engine) audit(ctx context.Context, name string, run model.WorkflowRun) {
	if e.auditor == nil {
		return
	}
	result := "success"
	if !run.Success {
		result = "partial_failure"
	}
	e.auditor.Append(ctx, model.AuditEntry{
		EventType: model.EventWorkflowRun,
		ActorID:   "workflow-engine",
		Action:    "executed workflow " + name,
		Result:    result,
		Details: map[string]any{
			"workflow_id": run.WorkflowID,
			"steps":       len(run.Results),
			"errors":      len(run.Errors),
		},
	})
}
