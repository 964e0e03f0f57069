package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/vetlink-group/intel-cli/internal/model"
)

// Pool is the subset of pgxpool.Pool the store uses; pgxmock satisfies it
// in tests.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements lists queries to prepare on each new connection for
// faster execution of the hot write path.
var preparedStatements = map[string]string{
	"insert_audit":    `INSERT INTO audit_entries (id, timestamp, event_type, entry) VALUES ($1, $2, $3, $4) ON CONFLICT (id) DO NOTHING`,
	"insert_decision": `INSERT INTO decision_logs (id, timestamp, subject, log) VALUES ($1, $2, $3, $4) ON CONFLICT (id) DO NOTHING`,
	"insert_outcome":  `INSERT INTO outcome_records (prediction_id, recorded_at, kind, record) VALUES ($1, $2, $3, $4) ON CONFLICT (prediction_id) DO UPDATE SET record = EXCLUDED.record`,
	"save_model":      `INSERT INTO model_versions (id, model_name, version, deployed_at, detail) VALUES ($1, $2, $3, $4, $5) ON CONFLICT (id) DO UPDATE SET detail = EXCLUDED.detail`,
	"save_workflow":   `INSERT INTO workflows (id, name, created_at, definition) VALUES ($1, $2, $3, $4) ON CONFLICT (id) DO UPDATE SET definition = EXCLUDED.definition`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS audit_entries (
	id         TEXT PRIMARY KEY,
	timestamp  TIMESTAMPTZ NOT NULL,
	event_type TEXT NOT NULL,
	entry      JSONB NOT NULL
);

CREATE TABLE IF NOT EXISTS decision_logs (
	id        TEXT PRIMARY KEY,
	timestamp TIMESTAMPTZ NOT NULL,
	subject   TEXT NOT NULL,
	log       JSONB NOT NULL
);

CREATE TABLE IF NOT EXISTS outcome_records (
	prediction_id TEXT PRIMARY KEY,
	recorded_at   TIMESTAMPTZ NOT NULL,
	kind          TEXT NOT NULL,
	record        JSONB NOT NULL
);

CREATE TABLE IF NOT EXISTS model_versions (
	id          TEXT PRIMARY KEY,
	model_name  TEXT NOT NULL,
	version     TEXT NOT NULL,
	deployed_at TIMESTAMPTZ NOT NULL,
	detail      JSONB NOT NULL
);

CREATE TABLE IF NOT EXISTS workflows (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	definition JSONB NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_audit_entries_timestamp ON audit_entries(timestamp);
CREATE INDEX IF NOT EXISTS idx_audit_entries_event_type ON audit_entries(event_type);
CREATE INDEX IF NOT EXISTS idx_decision_logs_timestamp ON decision_logs(timestamp);
CREATE INDEX IF NOT EXISTS idx_decision_logs_subject ON decision_logs(subject);
CREATE INDEX IF NOT EXISTS idx_outcome_records_recorded_at ON outcome_records(recorded_at);
CREATE INDEX IF NOT EXISTS idx_model_versions_name ON model_versions(model_name);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) AppendAuditEntry(ctx context.Context, e model.AuditEntry) error {
	entryJSON, err := json.Marshal(e)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal audit entry")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO audit_entries (id, timestamp, event_type, entry) VALUES ($1, $2, $3, $4) ON CONFLICT (id) DO NOTHING`,
		e.ID, e.Timestamp.UTC(), string(e.EventType), string(entryJSON),
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: insert audit entry %s", e.ID)
	}
	return s.prune(ctx, "audit_entries", "timestamp", maxAuditRows)
}

func (s *PostgresStore) AppendDecisionLog(ctx context.Context, d model.DecisionLog) error {
	logJSON, err := json.Marshal(d)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal decision log")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO decision_logs (id, timestamp, subject, log) VALUES ($1, $2, $3, $4) ON CONFLICT (id) DO NOTHING`,
		d.ID, d.Timestamp.UTC(), d.SubjectID, string(logJSON),
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: insert decision log %s", d.ID)
	}
	return s.prune(ctx, "decision_logs", "timestamp", maxDecisionRows)
}

func (s *PostgresStore) DeleteAuditBefore(ctx context.Context, cutoff time.Time) (int, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM audit_entries WHERE timestamp < $1`, cutoff.UTC(),
	)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: delete audit entries")
	}
	return int(tag.RowsAffected()), nil
}

func (s *PostgresStore) DeleteDecisionsBefore(ctx context.Context, cutoff time.Time) (int, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM decision_logs WHERE timestamp < $1`, cutoff.UTC(),
	)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: delete decision logs")
	}
	return int(tag.RowsAffected()), nil
}

func (s *PostgresStore) AuditEntries(ctx context.Context, limit int) ([]model.AuditEntry, error) {
	if limit <= 0 {
		limit = maxAuditRows
	}
	rows, err := s.pool.Query(ctx,
		`SELECT entry FROM audit_entries ORDER BY timestamp DESC LIMIT $1`, limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list audit entries")
	}
	defer rows.Close()

	var out []model.AuditEntry
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, eris.Wrap(err, "postgres: scan audit entry")
		}
		var e model.AuditEntry
		if err := json.Unmarshal(raw, &e); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal audit entry")
		}
		out = append(out, e)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list audit entries iterate")
}

func (s *PostgresStore) DecisionLogs(ctx context.Context, limit int) ([]model.DecisionLog, error) {
	if limit <= 0 {
		limit = maxDecisionRows
	}
	rows, err := s.pool.Query(ctx,
		`SELECT log FROM decision_logs ORDER BY timestamp DESC LIMIT $1`, limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list decision logs")
	}
	defer rows.Close()

	var out []model.DecisionLog
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, eris.Wrap(err, "postgres: scan decision log")
		}
		var d model.DecisionLog
		if err := json.Unmarshal(raw, &d); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal decision log")
		}
		out = append(out, d)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list decision logs iterate")
}

func (s *PostgresStore) AppendOutcome(ctx context.Context, rec model.OutcomeRecord) error {
	recJSON, err := json.Marshal(rec)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal outcome record")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO outcome_records (prediction_id, recorded_at, kind, record) VALUES ($1, $2, $3, $4) ON CONFLICT (prediction_id) DO UPDATE SET record = EXCLUDED.record`,
		rec.PredictionID, rec.RecordedAt.UTC(), string(rec.Kind), string(recJSON),
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: insert outcome %s", rec.PredictionID)
	}
	return s.prune(ctx, "outcome_records", "recorded_at", maxOutcomeRows)
}

func (s *PostgresStore) Outcomes(ctx context.Context, limit int) ([]model.OutcomeRecord, error) {
	if limit <= 0 {
		limit = maxOutcomeRows
	}
	rows, err := s.pool.Query(ctx,
		`SELECT record FROM outcome_records ORDER BY recorded_at DESC LIMIT $1`, limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list outcomes")
	}
	defer rows.Close()

	var out []model.OutcomeRecord
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, eris.Wrap(err, "postgres: scan outcome")
		}
		var rec model.OutcomeRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal outcome")
		}
		out = append(out, rec)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list outcomes iterate")
}

func (s *PostgresStore) SaveModelVersion(ctx context.Context, v model.ModelVersion) error {
	detailJSON, err := json.Marshal(v)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal model version")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO model_versions (id, model_name, version, deployed_at, detail) VALUES ($1, $2, $3, $4, $5) ON CONFLICT (id) DO UPDATE SET detail = EXCLUDED.detail`,
		v.ID, v.ModelName, v.Version, v.DeployedAt.UTC(), string(detailJSON),
	)
	return eris.Wrapf(err, "postgres: save model version %s %s", v.ModelName, v.Version)
}

func (s *PostgresStore) ModelVersions(ctx context.Context, modelName string) ([]model.ModelVersion, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT detail FROM model_versions WHERE model_name = $1 ORDER BY deployed_at ASC`, modelName,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: list model versions %s", modelName)
	}
	defer rows.Close()

	var out []model.ModelVersion
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, eris.Wrap(err, "postgres: scan model version")
		}
		var v model.ModelVersion
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal model version")
		}
		out = append(out, v)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list model versions iterate")
}

func (s *PostgresStore) SaveWorkflow(ctx context.Context, w model.Workflow) error {
	defJSON, err := json.Marshal(w)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal workflow")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO workflows (id, name, created_at, definition) VALUES ($1, $2, $3, $4) ON CONFLICT (id) DO UPDATE SET definition = EXCLUDED.definition`,
		w.ID, w.Name, w.CreatedAt.UTC(), string(defJSON),
	)
	return eris.Wrapf(err, "postgres: save workflow %s", w.ID)
}

func (s *PostgresStore) ListWorkflows(ctx context.Context) ([]model.Workflow, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT definition FROM workflows ORDER BY created_at ASC`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list workflows")
	}
	defer rows.Close()

	var out []model.Workflow
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, eris.Wrap(err, "postgres: scan workflow")
		}
		var w model.Workflow
		if err := json.Unmarshal(raw, &w); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal workflow")
		}
		out = append(out, w)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list workflows iterate")
}

// prune drops the oldest rows past the collection cap.
func (s *PostgresStore) prune(ctx context.Context, table, timeCol string, keep int) error {
	query := `DELETE FROM ` + table + ` WHERE ctid NOT IN (
		SELECT ctid FROM ` + table + ` ORDER BY ` + timeCol + ` DESC LIMIT $1)`
	_, err := s.pool.Exec(ctx, query, keep)
	return eris.Wrapf(err, "postgres: prune %s", table)
}
