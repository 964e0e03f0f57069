// Package audit implements the append-only audit and lineage ledger:
// a bounded in-memory ring of immutable entries with an optional durable
// mirror, backward lineage traversal, compliance aggregation, and
// retention purge.
package audit

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vetlink-group/intel-cli/internal/model"
)

// maxEntries caps the in-memory ring. Oldest entries evict first.
const maxEntries = 10000

// defaultRetentionDays applies when Purge is called with a non-positive
// day count.
const defaultRetentionDays = 90

// Mirror is the durable sink for the ledger. Persistence is best-effort:
// mirror failures are logged and swallowed, never surfaced to callers.
type Mirror interface {
	AppendAuditEntry(ctx context.Context, e model.AuditEntry) error
	AppendDecisionLog(ctx context.Context, d model.DecisionLog) error
	DeleteAuditBefore(ctx context.Context, cutoff time.Time) (int, error)
	DeleteDecisionsBefore(ctx context.Context, cutoff time.Time) (int, error)
}

// Filter selects audit entries for queries and exports. Zero fields match
// everything.
type Filter struct {
	EventType model.EventType `json:"event_type,omitempty"`
	SubjectID string          `json:"subject_id,omitempty"`
	ActorID   string          `json:"actor_id,omitempty"`
	From      time.Time       `json:"from,omitempty"`
	To        time.Time       `json:"to,omitempty"`
}

func (f Filter) matches(e model.AuditEntry) bool {
	if f.EventType != "" && e.EventType != f.EventType {
		return false
	}
	if f.SubjectID != "" && e.SubjectID != f.SubjectID {
		return false
	}
	if f.ActorID != "" && e.ActorID != f.ActorID {
		return false
	}
	if !f.From.IsZero() && e.Timestamp.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && e.Timestamp.After(f.To) {
		return false
	}
	return true
}

// Ledger is the append-only audit store. All access goes through a single
// mutex; the ledger never calls other registries while holding it.
type Ledger struct {
	mu        sync.RWMutex
	entries   []model.AuditEntry
	decisions []model.DecisionLog
	mirror    Mirror
	nowFunc   func() time.Time
}

// NewLedger creates a ledger. A nil mirror disables durable persistence.
func NewLedger(mirror Mirror) *Ledger {
	return &Ledger{mirror: mirror, nowFunc: time.Now}
}

// WithNow fixes the ledger clock for tests.
func (l *Ledger) WithNow(fn func() time.Time) *Ledger {
	l.nowFunc = fn
	return l
}

// Append writes one immutable entry. Missing ids and timestamps are filled
// in; the entry is never edited afterward.
func (l *Ledger) Append(ctx context.Context, e model.AuditEntry) model.AuditEntry {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = l.nowFunc().UTC()
	}

	l.mu.Lock()
	l.entries = append(l.entries, e)
	if len(l.entries) > maxEntries {
		l.entries = l.entries[len(l.entries)-maxEntries:]
	}
	l.mu.Unlock()

	if l.mirror != nil {
		if err := l.mirror.AppendAuditEntry(ctx, e); err != nil {
			zap.L().Warn("audit: mirror append failed",
				zap.String("entry_id", e.ID),
				zap.Error(err),
			)
		}
	}
	return e
}

// AppendDecision records one orchestrated decision alongside its audit
// entry of eventType=decision.
func (l *Ledger) AppendDecision(ctx context.Context, d model.DecisionLog) model.DecisionLog {
	if d.ID == "" {
		d.ID = uuid.New().String()
	}
	if d.Timestamp.IsZero() {
		d.Timestamp = l.nowFunc().UTC()
	}

	l.mu.Lock()
	l.decisions = append(l.decisions, d)
	l.mu.Unlock()

	if l.mirror != nil {
		if err := l.mirror.AppendDecisionLog(ctx, d); err != nil {
			zap.L().Warn("audit: mirror decision append failed",
				zap.String("decision_id", d.ID),
				zap.Error(err),
			)
		}
	}

	l.Append(ctx, model.AuditEntry{
		Timestamp: d.Timestamp,
		EventType: model.EventDecision,
		SubjectID: d.SubjectID,
		Action:    "decision_recorded",
		Details:   map[string]any{"decision_id": d.ID, "confidence": d.Confidence},
		Result:    "success",
		Lineage: model.Lineage{
			SourceIDs:  d.SourceSnapshots,
			Transforms: d.Reasoning,
			OutputIDs:  []string{d.ID},
		},
	})
	return d
}

// Query returns entries matching the filter, newest first, capped at limit
// (0 means no cap).
func (l *Ledger) Query(filter Filter, limit int) []model.AuditEntry {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var out []model.AuditEntry
	for i := len(l.entries) - 1; i >= 0; i-- {
		if !filter.matches(l.entries[i]) {
			continue
		}
		out = append(out, l.entries[i])
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out
}

// Decisions returns a copy of the decision log, oldest first.
func (l *Ledger) Decisions() []model.DecisionLog {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]model.DecisionLog, len(l.decisions))
	copy(out, l.decisions)
	return out
}

// DecisionCount reports how many decisions have been logged.
func (l *Ledger) DecisionCount() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.decisions)
}

// Purge removes entries and correlated decision logs strictly older than
// now minus daysToKeep (default 90). Returns the number of audit entries
// removed. The durable mirror is pruned best-effort.
func (l *Ledger) Purge(ctx context.Context, daysToKeep int) int {
	if daysToKeep <= 0 {
		daysToKeep = defaultRetentionDays
	}
	cutoff := l.nowFunc().UTC().AddDate(0, 0, -daysToKeep)

	l.mu.Lock()
	kept := l.entries[:0]
	removed := 0
	for _, e := range l.entries {
		if e.Timestamp.Before(cutoff) {
			removed++
			continue
		}
		kept = append(kept, e)
	}
	l.entries = kept

	keptDecisions := l.decisions[:0]
	for _, d := range l.decisions {
		if d.Timestamp.Before(cutoff) {
			continue
		}
		keptDecisions = append(keptDecisions, d)
	}
	l.decisions = keptDecisions
	l.mu.Unlock()

	if l.mirror != nil {
		if _, err := l.mirror.DeleteAuditBefore(ctx, cutoff); err != nil {
			zap.L().Warn("audit: mirror purge failed", zap.Error(err))
		}
		if _, err := l.mirror.DeleteDecisionsBefore(ctx, cutoff); err != nil {
			zap.L().Warn("audit: mirror decision purge failed", zap.Error(err))
		}
	}

	zap.L().Info("audit: purge complete",
		zap.Int("removed", removed),
		zap.Int("days_kept", daysToKeep),
	)
	return removed
}

// Len reports the current ring occupancy.
func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}
