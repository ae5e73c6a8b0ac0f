// Package store persists classification runs and their per-site results.
package store

import (
	"context"

	"github.com/geology-tools/ls4sm/internal/model"
)

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Status model.RunStatus `json:"status,omitempty"`
	Limit  int             `json:"limit,omitempty"`
	Offset int             `json:"offset,omitempty"`
}

// Store defines the persistence interface for classification runs.
type Store interface {
	// Runs
	CreateRun(ctx context.Context, source, rulesPath string) (*model.Run, error)
	FinishRun(ctx context.Context, runID string, status model.RunStatus, counts model.RunCounts) error
	GetRun(ctx context.Context, runID string) (*model.Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error)

	// Results
	SaveResults(ctx context.Context, runID string, results []model.Result) error
	ListResults(ctx context.Context, runID string) ([]model.Result, error)
	Summary(ctx context.Context, runID string) ([]model.ZoneCount, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
