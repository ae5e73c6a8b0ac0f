// Package pipeline maps the zone classifier over batches of site records.
package pipeline

import (
	"context"
	"sort"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/geology-tools/ls4sm/internal/model"
	"github.com/geology-tools/ls4sm/internal/zoning"
)

// Outcome is the per-record classification result. Exactly one of Zone or
// Err is set: Err carries zoning.ErrInvalidInput or zoning.ErrUnclassified.
type Outcome struct {
	Site model.Site
	Zone *zoning.Zone
	Err  error
}

// Result converts the outcome to a storable record. Unclassified sites keep
// a zero code; invalid sites should be filtered with Invalid before storing.
func (o Outcome) Result() model.Result {
	res := model.Result{SiteID: o.Site.ID}
	if o.Zone != nil {
		res.Code = o.Zone.Code
		res.Family = string(o.Zone.Family)
		res.Label = o.Zone.Label
		res.Formula = o.Zone.Formula
	}
	return res
}

// Invalid reports whether the record was rejected as malformed input.
func (o Outcome) Invalid() bool {
	return o.Err != nil && eris.Is(o.Err, zoning.ErrInvalidInput)
}

// Unclassified reports whether no rule matched the record.
func (o Outcome) Unclassified() bool {
	return o.Err != nil && eris.Is(o.Err, zoning.ErrUnclassified)
}

// Engine runs batch classification with bounded parallelism.
type Engine struct {
	classifier *zoning.Classifier
	workers    int
}

// New creates an Engine. workers <= 0 selects a single worker.
func New(classifier *zoning.Classifier, workers int) *Engine {
	if workers <= 0 {
		workers = 1
	}
	return &Engine{classifier: classifier, workers: workers}
}

// Run classifies every site. Outcomes are returned in input order no matter
// the parallelism degree; classification itself is pure, so only slot
// assignment needs coordination. Per-record failures are captured in the
// outcome, not returned as errors.
func (e *Engine) Run(ctx context.Context, sites []model.Site) ([]Outcome, model.RunCounts, error) {
	outcomes := make([]Outcome, len(sites))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)

	for i, site := range sites {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return eris.Wrap(err, "pipeline: cancelled")
			}
			zone, err := e.classifier.Classify(site.IL, site.SlopePct)
			if err != nil {
				outcomes[i] = Outcome{Site: site, Err: err}
				return nil
			}
			outcomes[i] = Outcome{Site: site, Zone: &zone}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, model.RunCounts{}, err
	}

	counts := model.RunCounts{Total: len(sites)}
	for _, o := range outcomes {
		switch {
		case o.Zone != nil:
			counts.Classified++
		case o.Invalid():
			counts.Invalid++
			zap.L().Warn("pipeline: invalid record",
				zap.String("site", o.Site.ID),
				zap.Float64("il", o.Site.IL),
				zap.Float64("slope_pct", o.Site.SlopePct),
			)
		default:
			counts.Unclassified++
		}
	}

	return outcomes, counts, nil
}

// Summarize aggregates classified outcomes per zone code. The area argument
// maps site ID to planar polygon area and may be nil for tabular inputs.
func Summarize(outcomes []Outcome, areas map[string]float64) []model.ZoneCount {
	byCode := make(map[int]*model.ZoneCount)
	for _, o := range outcomes {
		if o.Zone == nil {
			continue
		}
		zc, ok := byCode[o.Zone.Code]
		if !ok {
			zc = &model.ZoneCount{Code: o.Zone.Code, Family: string(o.Zone.Family)}
			byCode[o.Zone.Code] = zc
		}
		zc.Count++
		if areas != nil {
			zc.AreaSqm += areas[o.Site.ID]
		}
	}

	out := make([]model.ZoneCount, 0, len(byCode))
	for _, zc := range byCode {
		out = append(out, *zc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}
