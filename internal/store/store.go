// Package store is the durable mirror behind the in-memory registries.
// Persistence is best-effort and bounded: the mirror keeps only the
// newest slice of each collection, sized for compliance export rather
// than full history.
package store

import (
	"context"
	"time"

	"github.com/vetlink-group/intel-cli/internal/model"
)

// Bounds on the mirrored collections. Inserts prune the oldest rows past
// these caps.
const (
	maxAuditRows    = 1000
	maxDecisionRows = 1000
	maxOutcomeRows  = 5000
)

// Store is the persistence interface for the decision platform. It
// satisfies the mirror interfaces of the audit ledger, outcome tracker,
// and model lifecycle manager.
type Store interface {
	// Audit mirror
	AppendAuditEntry(ctx context.Context, e model.AuditEntry) error
	AppendDecisionLog(ctx context.Context, d model.DecisionLog) error
	DeleteAuditBefore(ctx context.Context, cutoff time.Time) (int, error)
	DeleteDecisionsBefore(ctx context.Context, cutoff time.Time) (int, error)
	AuditEntries(ctx context.Context, limit int) ([]model.AuditEntry, error)
	DecisionLogs(ctx context.Context, limit int) ([]model.DecisionLog, error)

	// Outcome mirror
	AppendOutcome(ctx context.Context, rec model.OutcomeRecord) error
	Outcomes(ctx context.Context, limit int) ([]model.OutcomeRecord, error)

	// Model registry mirror
	SaveModelVersion(ctx context.Context, v model.ModelVersion) error
	ModelVersions(ctx context.Context, modelName string) ([]model.ModelVersion, error)

	// Workflow registry mirror
	SaveWorkflow(ctx context.Context, w model.Workflow) error
	ListWorkflows(ctx context.Context) ([]model.Workflow, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
