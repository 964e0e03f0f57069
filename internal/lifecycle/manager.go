// Package lifecycle manages the versioned model registry: per-model
// version histories, performance analysis against recorded outcomes, and
// the improve/deploy/rollback state machine.
package lifecycle

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/vetlink-group/intel-cli/internal/model"
)

// ErrNotFound is returned for an unknown model name.
var ErrNotFound = eris.New("lifecycle: model not found")

// ErrRollback is returned when a rollback is not permitted: no recorded
// target, or the version has already been rolled back once.
var ErrRollback = eris.New("lifecycle: rollback not permitted")

// Auditor receives model lifecycle events. audit.Ledger satisfies it.
type Auditor interface {
	Append(ctx context.Context, e model.AuditEntry) model.AuditEntry
}

// Mirror is the durable sink for model versions. Failures are logged and
// swallowed.
type Mirror interface {
	SaveModelVersion(ctx context.Context, v model.ModelVersion) error
}

// OutcomeSource feeds performance analysis. outcome.Tracker satisfies it.
type OutcomeSource interface {
	RecordsSince(since time.Time) []model.OutcomeRecord
}

// Manager owns all model version histories behind one mutex. The last
// element of each history slice is the current version.
type Manager struct {
	mu       sync.RWMutex
	models   map[string][]model.ModelVersion
	kinds    map[string]model.PredictionKind
	outcomes OutcomeSource
	auditor  Auditor
	mirror   Mirror
	nowFunc  func() time.Time
}

// NewManager creates a manager. outcomes drives AnalyzePerformance;
// auditor and mirror may be nil.
func NewManager(outcomes OutcomeSource, auditor Auditor, mirror Mirror) *Manager {
	return &Manager{
		models:   make(map[string][]model.ModelVersion),
		kinds:    make(map[string]model.PredictionKind),
		outcomes: outcomes,
		auditor:  auditor,
		mirror:   mirror,
		nowFunc:  time.Now,
	}
}

// WithNow fixes the manager clock for tests.
func (m *Manager) WithNow(fn func() time.Time) *Manager {
	m.nowFunc = fn
	return m
}

// Register installs version 1.0.0 of a named model as active and binds it
// to the prediction kind whose outcomes measure it.
func (m *Manager) Register(ctx context.Context, name string, kind model.PredictionKind, perf model.Performance) model.ModelVersion {
	v := model.ModelVersion{
		ID:          uuid.New().String(),
		ModelName:   name,
		Version:     "1.0.0",
		DeployedAt:  m.nowFunc().UTC(),
		Status:      model.ModelActive,
		Performance: perf,
		ChangeLog:   []string{"initial deployment"},
		CanRollback: false, // nothing to roll back to
	}

	m.mu.Lock()
	m.models[name] = []model.ModelVersion{v}
	m.kinds[name] = kind
	m.mu.Unlock()

	m.persist(ctx, v)
	return v
}

// ActiveVersion returns the current version of a named model.
func (m *Manager) ActiveVersion(name string) (model.ModelVersion, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	history := m.models[name]
	if len(history) == 0 {
		return model.ModelVersion{}, eris.Wrapf(ErrNotFound, "model %s", name)
	}
	return history[len(history)-1], nil
}

// ActiveVersionTag returns the current version string, or "unversioned"
// for unknown models so predictors always have a tag to attach.
func (m *Manager) ActiveVersionTag(name string) string {
	v, err := m.ActiveVersion(name)
	if err != nil {
		return "unversioned"
	}
	return v.Version
}

// Versions returns the full history for a named model, oldest first.
func (m *Manager) Versions(name string) ([]model.ModelVersion, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	history := m.models[name]
	if len(history) == 0 {
		return nil, eris.Wrapf(ErrNotFound, "model %s", name)
	}
	out := make([]model.ModelVersion, len(history))
	copy(out, history)
	return out, nil
}

// Names lists registered model names.
func (m *Manager) Names() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.models))
	for name := range m.models {
		names = append(names, name)
	}
	return names
}

// deploy installs a candidate as the new current version, deprecating the
// previous one. Caller passes a fully built candidate.
func (m *Manager) deploy(ctx context.Context, name string, candidate model.ModelVersion) (model.ModelVersion, error) {
	m.mu.Lock()
	history := m.models[name]
	if len(history) == 0 {
		m.mu.Unlock()
		return model.ModelVersion{}, eris.Wrapf(ErrNotFound, "model %s", name)
	}
	previous := &history[len(history)-1]
	previous.Status = model.ModelDeprecated

	candidate.Status = model.ModelActive
	candidate.RollbackTarget = previous.Version
	candidate.CanRollback = true
	m.models[name] = append(history, candidate)
	prevCopy := *previous
	m.mu.Unlock()

	m.persist(ctx, prevCopy)
	m.persist(ctx, candidate)
	m.audit(ctx, name, "model_deployed", map[string]any{
		"version":  candidate.Version,
		"previous": prevCopy.Version,
		"accuracy": candidate.Performance.Accuracy,
	})

	zap.L().Info("lifecycle: model deployed",
		zap.String("model", name),
		zap.String("version", candidate.Version),
	)
	return candidate, nil
}

// RollbackModel archives the current version and restores its recorded
// rollback target as current. Rollback is one-shot: the archived version
// and the restored version both have canRollback cleared, so a second
// call fails.
func (m *Manager) RollbackModel(ctx context.Context, name, reason string) (model.ModelVersion, error) {
	m.mu.Lock()
	history := m.models[name]
	if len(history) == 0 {
		m.mu.Unlock()
		return model.ModelVersion{}, eris.Wrapf(ErrNotFound, "model %s", name)
	}

	current := &history[len(history)-1]
	if !current.CanRollback || current.RollbackTarget == "" {
		version := current.Version
		m.mu.Unlock()
		return model.ModelVersion{}, eris.Wrapf(ErrRollback, "model %s version %s", name, version)
	}

	current.Status = model.ModelArchived
	current.CanRollback = false
	archived := *current

	// Restore the target version as a fresh current entry. It cannot be
	// rolled back again.
	var restored model.ModelVersion
	found := false
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Version == archived.RollbackTarget {
			restored = history[i]
			found = true
			break
		}
	}
	if !found {
		m.mu.Unlock()
		return model.ModelVersion{}, eris.Wrapf(ErrRollback, "model %s target %s missing", name, archived.RollbackTarget)
	}

	restored.ID = uuid.New().String()
	restored.Status = model.ModelActive
	restored.DeployedAt = m.nowFunc().UTC()
	restored.CanRollback = false
	restored.RollbackTarget = ""
	restored.ChangeLog = append(append([]string{}, restored.ChangeLog...),
		fmt.Sprintf("restored by rollback of %s: %s", archived.Version, reason))
	m.models[name] = append(history, restored)
	m.mu.Unlock()

	m.persist(ctx, archived)
	m.persist(ctx, restored)
	m.audit(ctx, name, "model_rolled_back", map[string]any{
		"archived": archived.Version,
		"restored": restored.Version,
		"reason":   reason,
	})

	zap.L().Warn("lifecycle: model rolled back",
		zap.String("model", name),
		zap.String("archived", archived.Version),
		zap.String("restored", restored.Version),
		zap.String("reason", reason),
	)
	return restored, nil
}

func (m *Manager) persist(ctx context.Context, v model.ModelVersion) {
	if m.mirror == nil {
		return
	}
	if err := m.mirror.SaveModelVersion(ctx, v); err != nil {
		zap.L().Warn("lifecycle: mirror save failed",
			zap.String("model", v.ModelName),
			zap.String("version", v.Version),
			zap.Error(err),
		)
	}
}

func (m *Manager) audit(ctx context.Context, name, action string, details map[string]any) {
	if m.auditor == nil {
		return
	}
	m.auditor.Append(ctx, model.AuditEntry{
		EventType: model.EventModelUpdate,
		Action:    action,
		SubjectID: name,
		Details:   details,
		Result:    "success",
	})
}

// bumpMinor increments the minor component of a semver string and resets
// the patch: 1.2.3 -> 1.3.0. Malformed versions bump to 1.1.0.
func bumpMinor(version string) string {
	parts := strings.Split(version, ".")
	if len(parts) != 3 {
		return "1.1.0"
	}
	major, err1 := strconv.Atoi(parts[0])
	minor, err2 := strconv.Atoi(parts[1])
	if err1 != nil || err2 != nil {
		return "1.1.0"
	}
	return fmt.Sprintf("%d.%d.0", major, minor+1)
}
