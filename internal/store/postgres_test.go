package store

import (
	"context"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geology-tools/ls4sm/internal/model"
)

func newMockStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	return NewPostgresWithPool(mock), mock
}

func TestPostgresMigrate(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS runs").
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, s.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresCreateRun(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec("INSERT INTO runs").
		WithArgs(pgxmock.AnyArg(), "sites.csv", "", "running", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	run, err := s.CreateRun(context.Background(), "sites.csv", "")
	require.NoError(t, err)
	assert.NotEmpty(t, run.ID)
	assert.Equal(t, model.RunStatusRunning, run.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresFinishRun(t *testing.T) {
	s, mock := newMockStore(t)

	counts := model.RunCounts{Total: 3, Classified: 2, Unclassified: 1}
	mock.ExpectExec("UPDATE runs SET status").
		WithArgs("complete", 3, 2, 1, 0, pgxmock.AnyArg(), "run-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, s.FinishRun(context.Background(), "run-1", model.RunStatusComplete, counts))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresFinishRunNotFound(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec("UPDATE runs SET status").
		WithArgs("complete", 0, 0, 0, 0, pgxmock.AnyArg(), "missing").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := s.FinishRun(context.Background(), "missing", model.RunStatusComplete, model.RunCounts{})
	assert.Error(t, err)
}

func TestPostgresGetRun(t *testing.T) {
	s, mock := newMockStore(t)

	now := time.Now().UTC()
	mock.ExpectQuery("SELECT id, source, rules_path, status").
		WithArgs("run-1").
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "source", "rules_path", "status", "total", "classified", "unclassified", "invalid", "created_at", "finished_at",
		}).AddRow("run-1", "sites.csv", "", "complete", 2, 2, 0, 0, now, &now))

	run, err := s.GetRun(context.Background(), "run-1")
	require.NoError(t, err)
	assert.Equal(t, "run-1", run.ID)
	assert.Equal(t, model.RunStatusComplete, run.Status)
	assert.Equal(t, 2, run.Counts.Classified)
	require.NotNil(t, run.FinishedAt)
}

func TestPostgresSaveAndListResults(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec("INSERT INTO results").
		WithArgs("run-1", "p1", 300, "Z0", "Low Susceptibility Zone", "Z0=(0<IL≤2) and (2<slope≤5)").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := s.SaveResults(context.Background(), "run-1", []model.Result{
		{SiteID: "p1", Code: 300, Family: "Z0", Label: "Low Susceptibility Zone", Formula: "Z0=(0<IL≤2) and (2<slope≤5)"},
	})
	require.NoError(t, err)

	mock.ExpectQuery("SELECT site_id, code, family, label, formula FROM results").
		WithArgs("run-1").
		WillReturnRows(pgxmock.NewRows([]string{"site_id", "code", "family", "label", "formula"}).
			AddRow("p1", 300, "Z0", "Low Susceptibility Zone", "Z0=(0<IL≤2) and (2<slope≤5)"))

	results, err := s.ListResults(context.Background(), "run-1")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, 300, results[0].Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSummary(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery("SELECT code, family, COUNT").
		WithArgs("run-1").
		WillReturnRows(pgxmock.NewRows([]string{"code", "family", "count"}).
			AddRow(101, "RZ", 4).
			AddRow(300, "Z0", 2))

	summary, err := s.Summary(context.Background(), "run-1")
	require.NoError(t, err)
	require.Len(t, summary, 2)
	assert.Equal(t, model.ZoneCount{Code: 101, Family: "RZ", Count: 4}, summary[0])
	assert.Equal(t, model.ZoneCount{Code: 300, Family: "Z0", Count: 2}, summary[1])
}
