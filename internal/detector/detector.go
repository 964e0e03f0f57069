// Package detector holds the heuristic insight generators and predictors.
// Each detector is a pure function over the snapshot set: independent,
// order-insensitive, and explainable through fixed rationale strings keyed
// to the exact data conditions it checked.
package detector

import (
	"sync"

	"github.com/vetlink-group/intel-cli/internal/model"
)

// Snapshots is the per-query view of collected engine data.
type Snapshots map[model.EngineID]model.EngineSnapshot

// Refs returns lineage references for the snapshots that fed a detector.
func (s Snapshots) Refs(ids ...model.EngineID) []string {
	var refs []string
	for _, id := range ids {
		if snap, ok := s[id]; ok {
			refs = append(refs, snap.LineageRef())
		}
	}
	return refs
}

// Generator synthesizes zero or more insights from the snapshot set.
type Generator interface {
	Name() string
	Generate(snaps Snapshots, query model.QueryRequest) []model.Insight
}

// Predictor produces at most one typed forecast for a subject. The second
// return reports whether the required data was present.
type Predictor interface {
	Name() string
	ModelName() string
	Predict(subjectID string, snaps Snapshots) (model.Prediction, bool)
}

// VersionSource supplies the active model version tag for predictors.
// lifecycle.Manager satisfies it.
type VersionSource interface {
	ActiveVersionTag(modelName string) string
}

// Registry holds detectors in registration order. Order matters: the
// orchestrator breaks confidence ties by registration position.
type Registry struct {
	mu         sync.RWMutex
	generators []Generator
	predictors []Predictor
}

func NewRegistry() *Registry {
	return &Registry{}
}

// RegisterGenerator appends a generator; registration order is stable.
func (r *Registry) RegisterGenerator(g Generator) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.generators = append(r.generators, g)
}

// RegisterPredictor appends a predictor; registration order is stable.
func (r *Registry) RegisterPredictor(p Predictor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.predictors = append(r.predictors, p)
}

// Generators returns the registered generators in registration order.
func (r *Registry) Generators() []Generator {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Generator, len(r.generators))
	copy(out, r.generators)
	return out
}

// Predictors returns the registered predictors in registration order.
func (r *Registry) Predictors() []Predictor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Predictor, len(r.predictors))
	copy(out, r.predictors)
	return out
}

// DefaultRegistry wires the standard detector set in its canonical order.
func DefaultRegistry(versions VersionSource) *Registry {
	r := NewRegistry()
	r.RegisterGenerator(NewBenefitsEligibilityGenerator())
	r.RegisterGenerator(NewEvidenceGapGenerator())
	r.RegisterGenerator(NewEmploymentReadinessGenerator())
	r.RegisterGenerator(NewTransitionTimelineGenerator())
	r.RegisterGenerator(NewRetirementPlanningGenerator())
	r.RegisterGenerator(NewResourceUtilizationGenerator())
	r.RegisterPredictor(NewClaimApprovalPredictor(versions))
	r.RegisterPredictor(NewDecisionTimelinePredictor(versions))
	return r
}
