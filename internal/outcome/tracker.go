// Package outcome tracks prediction ground truth: it records actual
// results against predicted values, applies type-dispatched correctness
// rules, accepts feedback, and summarizes accuracy trends.
package outcome

import (
	"context"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/vetlink-group/intel-cli/internal/model"
)

// ErrNotFound is returned for feedback against an unrecorded prediction.
var ErrNotFound = eris.New("outcome: prediction not found")

// ErrDuplicate is returned when an outcome is recorded twice for the same
// prediction. Outcomes are created once per validated prediction.
var ErrDuplicate = eris.New("outcome: already recorded")

// Mirror is the durable sink for outcome records. Failures are logged and
// swallowed.
type Mirror interface {
	AppendOutcome(ctx context.Context, rec model.OutcomeRecord) error
}

// Tracker is the outcome ledger. A single mutex guards the record list and
// index; the tracker never calls other registries while holding it.
type Tracker struct {
	mu      sync.RWMutex
	records []model.OutcomeRecord
	index   map[string]int // predictionID -> position in records
	mirror  Mirror
	nowFunc func() time.Time
}

// NewTracker creates a tracker. A nil mirror disables persistence.
func NewTracker(mirror Mirror) *Tracker {
	return &Tracker{
		index:   make(map[string]int),
		mirror:  mirror,
		nowFunc: time.Now,
	}
}

// WithNow fixes the tracker clock for tests.
func (t *Tracker) WithNow(fn func() time.Time) *Tracker {
	t.nowFunc = fn
	return t
}

// RecordOutcome correlates a prediction with its actual result and
// evaluates correctness. Confidence is the prediction's score in [0,100].
func (t *Tracker) RecordOutcome(ctx context.Context, predictionID string, kind model.PredictionKind, predicted, actual any, confidence float64) (model.OutcomeRecord, error) {
	correct, partial := Evaluate(predicted, actual)

	rec := model.OutcomeRecord{
		PredictionID:     predictionID,
		Kind:             kind,
		PredictedValue:   predicted,
		ActualValue:      actual,
		Confidence:       confidence,
		Correct:          correct,
		PartiallyCorrect: partial,
		RecordedAt:       t.nowFunc().UTC(),
	}

	t.mu.Lock()
	if _, exists := t.index[predictionID]; exists {
		t.mu.Unlock()
		return model.OutcomeRecord{}, eris.Wrapf(ErrDuplicate, "prediction %s", predictionID)
	}
	t.index[predictionID] = len(t.records)
	t.records = append(t.records, rec)
	t.mu.Unlock()

	if t.mirror != nil {
		if err := t.mirror.AppendOutcome(ctx, rec); err != nil {
			zap.L().Warn("outcome: mirror append failed",
				zap.String("prediction_id", predictionID),
				zap.Error(err),
			)
		}
	}
	return rec, nil
}

// AddFeedback attaches human feedback to a recorded outcome.
func (t *Tracker) AddFeedback(predictionID string, helpful bool, comment string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	i, ok := t.index[predictionID]
	if !ok {
		return eris.Wrapf(ErrNotFound, "prediction %s", predictionID)
	}
	t.records[i].Feedback = &model.OutcomeFeedback{
		Helpful: helpful,
		Comment: comment,
		AddedAt: t.nowFunc().UTC(),
	}
	return nil
}

// Get returns the recorded outcome for a prediction, if any.
func (t *Tracker) Get(predictionID string) (model.OutcomeRecord, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	i, ok := t.index[predictionID]
	if !ok {
		return model.OutcomeRecord{}, false
	}
	return t.records[i], true
}

// Records returns a copy of all outcome records, oldest first.
func (t *Tracker) Records() []model.OutcomeRecord {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]model.OutcomeRecord, len(t.records))
	copy(out, t.records)
	return out
}

// RecordsSince returns records at or after the given instant.
func (t *Tracker) RecordsSince(since time.Time) []model.OutcomeRecord {
	t.mu.RLock()
	defer t.mu.RUnlock()
	var out []model.OutcomeRecord
	for _, r := range t.records {
		if r.RecordedAt.Before(since) {
			continue
		}
		out = append(out, r)
	}
	return out
}
