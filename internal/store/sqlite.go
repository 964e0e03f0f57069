package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/vetlink-group/intel-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS audit_entries (
	id         TEXT PRIMARY KEY,
	timestamp  DATETIME NOT NULL,
	event_type TEXT NOT NULL,
	entry      TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS decision_logs (
	id        TEXT PRIMARY KEY,
	timestamp DATETIME NOT NULL,
	subject   TEXT NOT NULL,
	log       TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS outcome_records (
	prediction_id TEXT PRIMARY KEY,
	recorded_at   DATETIME NOT NULL,
	kind          TEXT NOT NULL,
	record        TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS model_versions (
	id          TEXT PRIMARY KEY,
	model_name  TEXT NOT NULL,
	version     TEXT NOT NULL,
	deployed_at DATETIME NOT NULL,
	detail      TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS workflows (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	created_at DATETIME NOT NULL,
	definition TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_audit_entries_timestamp ON audit_entries(timestamp);
CREATE INDEX IF NOT EXISTS idx_audit_entries_event_type ON audit_entries(event_type);
CREATE INDEX IF NOT EXISTS idx_decision_logs_timestamp ON decision_logs(timestamp);
CREATE INDEX IF NOT EXISTS idx_decision_logs_subject ON decision_logs(subject);
CREATE INDEX IF NOT EXISTS idx_outcome_records_recorded_at ON outcome_records(recorded_at);
CREATE INDEX IF NOT EXISTS idx_model_versions_name ON model_versions(model_name);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) AppendAuditEntry(ctx context.Context, e model.AuditEntry) error {
	entryJSON, err := json.Marshal(e)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal audit entry")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO audit_entries (id, timestamp, event_type, entry) VALUES (?, ?, ?, ?)`,
		e.ID, e.Timestamp.UTC(), string(e.EventType), string(entryJSON),
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: insert audit entry %s", e.ID)
	}
	return s.prune(ctx, "audit_entries", "timestamp", maxAuditRows)
}

func (s *SQLiteStore) AppendDecisionLog(ctx context.Context, d model.DecisionLog) error {
	logJSON, err := json.Marshal(d)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal decision log")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO decision_logs (id, timestamp, subject, log) VALUES (?, ?, ?, ?)`,
		d.ID, d.Timestamp.UTC(), d.SubjectID, string(logJSON),
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: insert decision log %s", d.ID)
	}
	return s.prune(ctx, "decision_logs", "timestamp", maxDecisionRows)
}

func (s *SQLiteStore) DeleteAuditBefore(ctx context.Context, cutoff time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM audit_entries WHERE timestamp < ?`, cutoff.UTC(),
	)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: delete audit entries")
	}
	n, err := res.RowsAffected()
	return int(n), eris.Wrap(err, "sqlite: rows affected")
}

func (s *SQLiteStore) DeleteDecisionsBefore(ctx context.Context, cutoff time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM decision_logs WHERE timestamp < ?`, cutoff.UTC(),
	)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: delete decision logs")
	}
	n, err := res.RowsAffected()
	return int(n), eris.Wrap(err, "sqlite: rows affected")
}

func (s *SQLiteStore) AuditEntries(ctx context.Context, limit int) ([]model.AuditEntry, error) {
	if limit <= 0 {
		limit = maxAuditRows
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT entry FROM audit_entries ORDER BY timestamp DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list audit entries")
	}
	defer rows.Close()

	var out []model.AuditEntry
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan audit entry")
		}
		var e model.AuditEntry
		if err := json.Unmarshal([]byte(raw), &e); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal audit entry")
		}
		out = append(out, e)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list audit entries iterate")
}

func (s *SQLiteStore) DecisionLogs(ctx context.Context, limit int) ([]model.DecisionLog, error) {
	if limit <= 0 {
		limit = maxDecisionRows
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT log FROM decision_logs ORDER BY timestamp DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list decision logs")
	}
	defer rows.Close()

	var out []model.DecisionLog
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan decision log")
		}
		var d model.DecisionLog
		if err := json.Unmarshal([]byte(raw), &d); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal decision log")
		}
		out = append(out, d)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list decision logs iterate")
}

func (s *SQLiteStore) AppendOutcome(ctx context.Context, rec model.OutcomeRecord) error {
	recJSON, err := json.Marshal(rec)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal outcome record")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO outcome_records (prediction_id, recorded_at, kind, record) VALUES (?, ?, ?, ?)`,
		rec.PredictionID, rec.RecordedAt.UTC(), string(rec.Kind), string(recJSON),
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: insert outcome %s", rec.PredictionID)
	}
	return s.prune(ctx, "outcome_records", "recorded_at", maxOutcomeRows)
}

func (s *SQLiteStore) Outcomes(ctx context.Context, limit int) ([]model.OutcomeRecord, error) {
	if limit <= 0 {
		limit = maxOutcomeRows
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT record FROM outcome_records ORDER BY recorded_at DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list outcomes")
	}
	defer rows.Close()

	var out []model.OutcomeRecord
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan outcome")
		}
		var rec model.OutcomeRecord
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal outcome")
		}
		out = append(out, rec)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list outcomes iterate")
}

func (s *SQLiteStore) SaveModelVersion(ctx context.Context, v model.ModelVersion) error {
	detailJSON, err := json.Marshal(v)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal model version")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO model_versions (id, model_name, version, deployed_at, detail) VALUES (?, ?, ?, ?, ?)`,
		v.ID, v.ModelName, v.Version, v.DeployedAt.UTC(), string(detailJSON),
	)
	return eris.Wrapf(err, "sqlite: save model version %s %s", v.ModelName, v.Version)
}

func (s *SQLiteStore) ModelVersions(ctx context.Context, modelName string) ([]model.ModelVersion, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT detail FROM model_versions WHERE model_name = ? ORDER BY deployed_at ASC`, modelName,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: list model versions %s", modelName)
	}
	defer rows.Close()

	var out []model.ModelVersion
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan model version")
		}
		var v model.ModelVersion
		if err := json.Unmarshal([]byte(raw), &v); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal model version")
		}
		out = append(out, v)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list model versions iterate")
}

func (s *SQLiteStore) SaveWorkflow(ctx context.Context, w model.Workflow) error {
	defJSON, err := json.Marshal(w)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal workflow")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO workflows (id, name, created_at, definition) VALUES (?, ?, ?, ?)`,
		w.ID, w.Name, w.CreatedAt.UTC(), string(defJSON),
	)
	return eris.Wrapf(err, "sqlite: save workflow %s", w.ID)
}

func (s *SQLiteStore) ListWorkflows(ctx context.Context) ([]model.Workflow, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT definition FROM workflows ORDER BY created_at ASC`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list workflows")
	}
	defer rows.Close()

	var out []model.Workflow
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan workflow")
		}
		var w model.Workflow
		if err := json.Unmarshal([]byte(raw), &w); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal workflow")
		}
		out = append(out, w)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list workflows iterate")
}

// prune drops the oldest rows past the collection cap.
func (s *SQLiteStore) prune(ctx context.Context, table, timeCol string, keep int) error {
	query := `DELETE FROM ` + table + ` WHERE rowid NOT IN (
		SELECT rowid FROM ` + table + ` ORDER BY ` + timeCol + ` DESC LIMIT ?)`
	_, err := s.db.ExecContext(ctx, query, keep)
	return eris.Wrapf(err, "sqlite: prune %s", table)
}
