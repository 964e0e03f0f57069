// Package engine is the data gateway to the external domain engines. It
// owns the engine registry and the best-effort fan-out collector: a
// failed, slow, or tripped engine is omitted from the snapshot set, never
// fatal to a query.
package engine

import (
	"context"
	"sync"

	"github.com/rotisserie/eris"

	"github.com/vetlink-group/intel-cli/internal/model"
)

// ErrUnavailable marks an engine fetch failure. Callers treat it as
// "engine omitted", not as a query failure.
var ErrUnavailable = eris.New("engine: unavailable")

// Engine is one external domain data producer.
type Engine interface {
	ID() model.EngineID
	Fetch(ctx context.Context, subjectID string) (model.EngineSnapshot, error)
}

// Registry holds the registered engines in registration order.
type Registry struct {
	mu      sync.RWMutex
	engines map[model.EngineID]Engine
	order   []model.EngineID
}

func NewRegistry() *Registry {
	return &Registry{engines: make(map[model.EngineID]Engine)}
}

// Register adds or replaces an engine. First registration fixes its
// position in the fan-out order.
func (r *Registry) Register(e Engine) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.engines[e.ID()]; !exists {
		r.order = append(r.order, e.ID())
	}
	r.engines[e.ID()] = e
}

// Get returns the engine for an id.
func (r *Registry) Get(id model.EngineID) (Engine, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.engines[id]
	return e, ok
}

// IDs returns all registered engine ids in registration order.
func (r *Registry) IDs() []model.EngineID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]model.EngineID, len(r.order))
	copy(out, r.order)
	return out
}

// StaticEngine serves fixture payloads keyed by subject id. It backs
// tests and the demo CLI path.
type StaticEngine struct {
	id       model.EngineID
	version  string
	mu       sync.RWMutex
	payloads map[string]map[string]any
	fallback map[string]any
}

// NewStaticEngine creates a fixture engine. fallback serves subjects with
// no dedicated payload; a nil fallback makes unknown subjects fail.
func NewStaticEngine(id model.EngineID, version string, fallback map[string]any) *StaticEngine {
	return &StaticEngine{
		id:       id,
		version:  version,
		payloads: make(map[string]map[string]any),
		fallback: fallback,
	}
}

func (e *StaticEngine) ID() model.EngineID { return e.id }

// SetPayload installs a per-subject payload.
func (e *StaticEngine) SetPayload(subjectID string, payload map[string]any) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.payloads[subjectID] = payload
}

func (e *StaticEngine) Fetch(ctx context.Context, subjectID string) (model.EngineSnapshot, error) {
	if err := ctx.Err(); err != nil {
		return model.EngineSnapshot{}, eris.Wrapf(ErrUnavailable, "engine %s: %v", e.id, err)
	}

	e.mu.RLock()
	payload, ok := e.payloads[subjectID]
	if !ok {
		payload = e.fallback
	}
	e.mu.RUnlock()

	if payload == nil {
		return model.EngineSnapshot{}, eris.Wrapf(ErrUnavailable, "engine %s: no data for subject %s", e.id, subjectID)
	}
	return model.EngineSnapshot{
		EngineID:      e.id,
		EngineVersion: e.version,
		CapturedAt:    nowUTC(),
		Payload:       payload,
	}, nil
}
