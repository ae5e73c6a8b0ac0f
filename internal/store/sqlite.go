package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/geology-tools/ls4sm/internal/model"
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
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	source      TEXT NOT NULL,
	rules_path  TEXT NOT NULL DEFAULT '',
	status      TEXT NOT NULL DEFAULT 'running',
	total       INTEGER NOT NULL DEFAULT 0,
	classified  INTEGER NOT NULL DEFAULT 0,
	unclassified INTEGER NOT NULL DEFAULT 0,
	invalid     INTEGER NOT NULL DEFAULT 0,
	created_at  DATETIME NOT NULL DEFAULT (datetime('now')),
	finished_at DATETIME
);

CREATE TABLE IF NOT EXISTS results (
	run_id   TEXT NOT NULL REFERENCES runs(id),
	site_id  TEXT NOT NULL,
	code     INTEGER NOT NULL DEFAULT 0,
	family   TEXT NOT NULL DEFAULT '',
	label    TEXT NOT NULL DEFAULT '',
	formula  TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (run_id, site_id)
);

CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
CREATE INDEX IF NOT EXISTS idx_results_run_id ON results(run_id);
CREATE INDEX IF NOT EXISTS idx_results_code ON results(run_id, code);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateRun(ctx context.Context, source, rulesPath string) (*model.Run, error) {
	run := &model.Run{
		ID:        uuid.New().String(),
		Source:    source,
		RulesPath: rulesPath,
		Status:    model.RunStatusRunning,
		CreatedAt: time.Now().UTC(),
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, source, rules_path, status, created_at) VALUES (?, ?, ?, ?, ?)`,
		run.ID, run.Source, run.RulesPath, string(run.Status), run.CreatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: create run")
	}
	return run, nil
}

func (s *SQLiteStore) FinishRun(ctx context.Context, runID string, status model.RunStatus, counts model.RunCounts) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, total = ?, classified = ?, unclassified = ?, invalid = ?, finished_at = ? WHERE id = ?`,
		string(status), counts.Total, counts.Classified, counts.Unclassified, counts.Invalid, time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrap(err, "sqlite: finish run")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: finish run rows affected")
	}
	if n == 0 {
		return eris.Errorf("sqlite: run %s not found", runID)
	}
	return nil
}

func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, source, rules_path, status, total, classified, unclassified, invalid, created_at, finished_at
		 FROM runs WHERE id = ?`, runID,
	)
	return scanRun(row)
}

// rowScanner abstracts sql.Row and sql.Rows for scanRun.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*model.Run, error) {
	var run model.Run
	var status string
	var finished sql.NullTime
	err := row.Scan(&run.ID, &run.Source, &run.RulesPath, &status,
		&run.Counts.Total, &run.Counts.Classified, &run.Counts.Unclassified, &run.Counts.Invalid,
		&run.CreatedAt, &finished,
	)
	if err == sql.ErrNoRows {
		return nil, eris.Wrap(err, "sqlite: run not found")
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan run")
	}
	run.Status = model.RunStatus(status)
	if finished.Valid {
		t := finished.Time
		run.FinishedAt = &t
	}
	return &run, nil
}

func (s *SQLiteStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error) {
	query := `SELECT id, source, rules_path, status, total, classified, unclassified, invalid, created_at, finished_at FROM runs`
	var args []any
	if filter.Status != "" {
		query += ` WHERE status = ?`
		args = append(args, string(filter.Status))
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	query += ` LIMIT ? OFFSET ?`
	args = append(args, limit, filter.Offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer func() { _ = rows.Close() }()

	var runs []model.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: list runs rows")
}

func (s *SQLiteStore) SaveResults(ctx context.Context, runID string, results []model.Result) error {
	if len(results) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin save results")
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO results (run_id, site_id, code, family, label, formula) VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (run_id, site_id) DO UPDATE SET code = excluded.code, family = excluded.family,
		 label = excluded.label, formula = excluded.formula`,
	)
	if err != nil {
		return eris.Wrap(err, "sqlite: prepare save results")
	}
	defer func() { _ = stmt.Close() }()

	for _, res := range results {
		if _, err := stmt.ExecContext(ctx, runID, res.SiteID, res.Code, res.Family, res.Label, res.Formula); err != nil {
			return eris.Wrapf(err, "sqlite: save result %s", res.SiteID)
		}
	}

	return eris.Wrap(tx.Commit(), "sqlite: commit save results")
}

func (s *SQLiteStore) ListResults(ctx context.Context, runID string) ([]model.Result, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT site_id, code, family, label, formula FROM results WHERE run_id = ? ORDER BY site_id`, runID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list results")
	}
	defer func() { _ = rows.Close() }()

	var results []model.Result
	for rows.Next() {
		var res model.Result
		if err := rows.Scan(&res.SiteID, &res.Code, &res.Family, &res.Label, &res.Formula); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan result")
		}
		results = append(results, res)
	}
	return results, eris.Wrap(rows.Err(), "sqlite: list results rows")
}

func (s *SQLiteStore) Summary(ctx context.Context, runID string) ([]model.ZoneCount, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT code, family, COUNT(*) FROM results WHERE run_id = ? AND code > 0 GROUP BY code, family ORDER BY code`, runID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: summary")
	}
	defer func() { _ = rows.Close() }()

	var counts []model.ZoneCount
	for rows.Next() {
		var zc model.ZoneCount
		if err := rows.Scan(&zc.Code, &zc.Family, &zc.Count); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan summary")
		}
		counts = append(counts, zc)
	}
	return counts, eris.Wrap(rows.Err(), "sqlite: summary rows")
}
