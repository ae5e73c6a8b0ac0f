package pipeline

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/geology-tools/ls4sm/internal/model"
	"github.com/geology-tools/ls4sm/internal/zoning"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

func TestRunMixedBatch(t *testing.T) {
	e := New(zoning.Default(), 4)

	sites := []model.Site{
		{ID: "p1", IL: 1, SlopePct: 3},    // 300
		{ID: "p2", IL: 1, SlopePct: 10},   // 201
		{ID: "p3", IL: 20, SlopePct: 5},   // 104
		{ID: "p4", IL: 0, SlopePct: 1},    // unclassified
		{ID: "p5", IL: -2, SlopePct: 3},   // invalid
	}

	outcomes, counts, err := e.Run(context.Background(), sites)
	require.NoError(t, err)
	require.Len(t, outcomes, 5)

	assert.Equal(t, model.RunCounts{Total: 5, Classified: 3, Unclassified: 1, Invalid: 1}, counts)

	assert.Equal(t, 300, outcomes[0].Zone.Code)
	assert.Equal(t, 201, outcomes[1].Zone.Code)
	assert.Equal(t, 104, outcomes[2].Zone.Code)
	assert.True(t, outcomes[3].Unclassified())
	assert.Nil(t, outcomes[3].Zone)
	assert.True(t, outcomes[4].Invalid())
}

// Output order must equal input order regardless of worker count.
func TestRunOrderStableUnderParallelism(t *testing.T) {
	sites := make([]model.Site, 500)
	for i := range sites {
		sites[i] = model.Site{ID: fmt.Sprintf("s%03d", i), IL: 1, SlopePct: 10}
	}

	for _, workers := range []int{1, 4, 32} {
		e := New(zoning.Default(), workers)
		outcomes, _, err := e.Run(context.Background(), sites)
		require.NoError(t, err)
		for i, o := range outcomes {
			assert.Equal(t, sites[i].ID, o.Site.ID)
			require.NotNil(t, o.Zone)
			assert.Equal(t, 201, o.Zone.Code)
		}
	}
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	e := New(zoning.Default(), 2)
	_, _, err := e.Run(ctx, []model.Site{{ID: "p1", IL: 1, SlopePct: 3}})
	assert.Error(t, err)
}

func TestOutcomeResult(t *testing.T) {
	e := New(zoning.Default(), 1)
	outcomes, _, err := e.Run(context.Background(), []model.Site{
		{ID: "p1", IL: 3, SlopePct: 6},
		{ID: "p2", IL: 0, SlopePct: 0},
	})
	require.NoError(t, err)

	classified := outcomes[0].Result()
	assert.Equal(t, "p1", classified.SiteID)
	assert.Equal(t, 202, classified.Code)
	assert.Equal(t, "SZ", classified.Family)
	assert.True(t, classified.Classified())

	unclassified := outcomes[1].Result()
	assert.Equal(t, "p2", unclassified.SiteID)
	assert.Zero(t, unclassified.Code)
	assert.False(t, unclassified.Classified())
}

func TestSummarize(t *testing.T) {
	e := New(zoning.Default(), 2)
	outcomes, _, err := e.Run(context.Background(), []model.Site{
		{ID: "a", IL: 1, SlopePct: 3},
		{ID: "b", IL: 1, SlopePct: 4},
		{ID: "c", IL: 1, SlopePct: 20},
		{ID: "d", IL: 0, SlopePct: 0},
	})
	require.NoError(t, err)

	summary := Summarize(outcomes, map[string]float64{"a": 100, "b": 50, "c": 10})
	require.Len(t, summary, 2)

	assert.Equal(t, 101, summary[0].Code)
	assert.Equal(t, 1, summary[0].Count)
	assert.InDelta(t, 10, summary[0].AreaSqm, 1e-9)

	assert.Equal(t, 300, summary[1].Code)
	assert.Equal(t, 2, summary[1].Count)
	assert.InDelta(t, 150, summary[1].AreaSqm, 1e-9)
}
