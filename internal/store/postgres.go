package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/geology-tools/ls4sm/internal/model"
)

// Pool is the subset of pgxpool.Pool the store uses; pgxmock satisfies it
// in tests.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// PostgresStore implements Store using a pgx connection pool.
type PostgresStore struct {
	pool Pool
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	cfg.MaxConns = 10
	cfg.MinConns = 2
	cfg.MaxConnLifetime = 30 * time.Minute
	cfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: connect")
	}
	return &PostgresStore{pool: pool}, nil
}

// NewPostgresWithPool wraps an existing pool; used by tests.
func NewPostgresWithPool(pool Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id           TEXT PRIMARY KEY,
	source       TEXT NOT NULL,
	rules_path   TEXT NOT NULL DEFAULT '',
	status       TEXT NOT NULL DEFAULT 'running',
	total        INTEGER NOT NULL DEFAULT 0,
	classified   INTEGER NOT NULL DEFAULT 0,
	unclassified INTEGER NOT NULL DEFAULT 0,
	invalid      INTEGER NOT NULL DEFAULT 0,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	finished_at  TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS results (
	run_id  TEXT NOT NULL REFERENCES runs(id),
	site_id TEXT NOT NULL,
	code    INTEGER NOT NULL DEFAULT 0,
	family  TEXT NOT NULL DEFAULT '',
	label   TEXT NOT NULL DEFAULT '',
	formula TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (run_id, site_id)
);

CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
CREATE INDEX IF NOT EXISTS idx_results_run_id ON results(run_id);
CREATE INDEX IF NOT EXISTS idx_results_code ON results(run_id, code);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) CreateRun(ctx context.Context, source, rulesPath string) (*model.Run, error) {
	run := &model.Run{
		ID:        uuid.New().String(),
		Source:    source,
		RulesPath: rulesPath,
		Status:    model.RunStatusRunning,
		CreatedAt: time.Now().UTC(),
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO runs (id, source, rules_path, status, created_at) VALUES ($1, $2, $3, $4, $5)`,
		run.ID, run.Source, run.RulesPath, string(run.Status), run.CreatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create run")
	}
	return run, nil
}

func (s *PostgresStore) FinishRun(ctx context.Context, runID string, status model.RunStatus, counts model.RunCounts) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE runs SET status = $1, total = $2, classified = $3, unclassified = $4, invalid = $5, finished_at = $6 WHERE id = $7`,
		string(status), counts.Total, counts.Classified, counts.Unclassified, counts.Invalid, time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrap(err, "postgres: finish run")
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("postgres: run %s not found", runID)
	}
	return nil
}

func (s *PostgresStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, source, rules_path, status, total, classified, unclassified, invalid, created_at, finished_at
		 FROM runs WHERE id = $1`, runID,
	)

	run, err := scanPgRun(row)
	if err != nil {
		if eris.Is(err, pgx.ErrNoRows) {
			return nil, eris.Wrapf(err, "postgres: run %s not found", runID)
		}
		return nil, err
	}
	return run, nil
}

func scanPgRun(row pgx.Row) (*model.Run, error) {
	var run model.Run
	var status string
	var finished *time.Time
	err := row.Scan(&run.ID, &run.Source, &run.RulesPath, &status,
		&run.Counts.Total, &run.Counts.Classified, &run.Counts.Unclassified, &run.Counts.Invalid,
		&run.CreatedAt, &finished,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: scan run")
	}
	run.Status = model.RunStatus(status)
	run.FinishedAt = finished
	return &run, nil
}

func (s *PostgresStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}

	query := `SELECT id, source, rules_path, status, total, classified, unclassified, invalid, created_at, finished_at FROM runs`
	args := []any{}
	if filter.Status != "" {
		query += ` WHERE status = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`
		args = append(args, string(filter.Status), limit, filter.Offset)
	} else {
		query += ` ORDER BY created_at DESC LIMIT $1 OFFSET $2`
		args = append(args, limit, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var runs []model.Run
	for rows.Next() {
		run, err := scanPgRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: list runs rows")
}

func (s *PostgresStore) SaveResults(ctx context.Context, runID string, results []model.Result) error {
	for _, res := range results {
		_, err := s.pool.Exec(ctx,
			`INSERT INTO results (run_id, site_id, code, family, label, formula) VALUES ($1, $2, $3, $4, $5, $6)
			 ON CONFLICT (run_id, site_id) DO UPDATE SET code = EXCLUDED.code, family = EXCLUDED.family,
			 label = EXCLUDED.label, formula = EXCLUDED.formula`,
			runID, res.SiteID, res.Code, res.Family, res.Label, res.Formula,
		)
		if err != nil {
			return eris.Wrapf(err, "postgres: save result %s", res.SiteID)
		}
	}
	return nil
}

func (s *PostgresStore) ListResults(ctx context.Context, runID string) ([]model.Result, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT site_id, code, family, label, formula FROM results WHERE run_id = $1 ORDER BY site_id`, runID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list results")
	}
	defer rows.Close()

	var results []model.Result
	for rows.Next() {
		var res model.Result
		if err := rows.Scan(&res.SiteID, &res.Code, &res.Family, &res.Label, &res.Formula); err != nil {
			return nil, eris.Wrap(err, "postgres: scan result")
		}
		results = append(results, res)
	}
	return results, eris.Wrap(rows.Err(), "postgres: list results rows")
}

func (s *PostgresStore) Summary(ctx context.Context, runID string) ([]model.ZoneCount, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT code, family, COUNT(*) FROM results WHERE run_id = $1 AND code > 0 GROUP BY code, family ORDER BY code`, runID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: summary")
	}
	defer rows.Close()

	var counts []model.ZoneCount
	for rows.Next() {
		var zc model.ZoneCount
		if err := rows.Scan(&zc.Code, &zc.Family, &zc.Count); err != nil {
			return nil, eris.Wrap(err, "postgres: scan summary")
		}
		counts = append(counts, zc)
	}
	return counts, eris.Wrap(rows.Err(), "postgres: summary rows")
}
