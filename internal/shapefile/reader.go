// Package shapefile reads and writes polygon shapefiles for zone
// classification: IL and slope attributes in, zone code attributes out.
package shapefile

import (
	"math"
	"strconv"
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"

	"github.com/geology-tools/ls4sm/internal/model"
)

// Default attribute names written by the upstream slope/IL intersection.
const (
	DefaultILField    = "INDEX"
	DefaultSlopeField = "DN"
)

// Feature couples one polygon with its parsed site record and planar area.
type Feature struct {
	Site    model.Site
	Polygon *shp.Polygon
	AreaSqm float64
}

// ReadOptions selects the attribute fields to read.
type ReadOptions struct {
	IDField    string // optional; record number is used when empty
	ILField    string // default "INDEX"
	SlopeField string // default "DN"
}

// ReadFeatures reads all polygon features with their IL and slope
// attributes. Records with a missing or unparseable shape are skipped with
// a debug log; missing attribute values fail the read.
func ReadFeatures(path string, opts ReadOptions) ([]Feature, error) {
	if opts.ILField == "" {
		opts.ILField = DefaultILField
	}
	if opts.SlopeField == "" {
		opts.SlopeField = DefaultSlopeField
	}

	reader, err := shp.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "shapefile: open %s", path)
	}
	defer func() { _ = reader.Close() }()

	fieldIdx := make(map[string]int)
	for i, f := range reader.Fields() {
		name := strings.TrimRight(f.String(), "\x00")
		fieldIdx[strings.ToLower(name)] = i
	}

	ilIdx, ok := fieldIdx[strings.ToLower(opts.ILField)]
	if !ok {
		return nil, eris.Errorf("shapefile: field %q not found", opts.ILField)
	}
	slopeIdx, ok := fieldIdx[strings.ToLower(opts.SlopeField)]
	if !ok {
		return nil, eris.Errorf("shapefile: field %q not found", opts.SlopeField)
	}
	idIdx := -1
	if opts.IDField != "" {
		if idIdx, ok = fieldIdx[strings.ToLower(opts.IDField)]; !ok {
			return nil, eris.Errorf("shapefile: field %q not found", opts.IDField)
		}
	}

	var features []Feature
	var skipped int
	num := -1

	for reader.Next() {
		num++
		_, shape := reader.Shape()

		poly, ok := shape.(*shp.Polygon)
		if !ok || poly == nil || len(poly.Points) == 0 {
			skipped++
			continue
		}

		il, err := parseAttr(reader.Attribute(ilIdx))
		if err != nil {
			return nil, eris.Wrapf(err, "shapefile: record %d: field %s", num, opts.ILField)
		}
		slope, err := parseAttr(reader.Attribute(slopeIdx))
		if err != nil {
			return nil, eris.Wrapf(err, "shapefile: record %d: field %s", num, opts.SlopeField)
		}

		id := strconv.Itoa(num)
		if idIdx >= 0 {
			id = cleanAttr(reader.Attribute(idIdx))
		}

		features = append(features, Feature{
			Site:    model.Site{ID: id, IL: il, SlopePct: slope},
			Polygon: poly,
			AreaSqm: polygonArea(poly),
		})
	}

	if skipped > 0 {
		zap.L().Debug("shapefile: skipped non-polygon records",
			zap.String("path", path),
			zap.Int("skipped", skipped),
		)
	}

	return features, nil
}

func cleanAttr(raw string) string {
	return strings.TrimSpace(strings.TrimRight(raw, "\x00"))
}

func parseAttr(raw string) (float64, error) {
	val := cleanAttr(raw)
	if val == "" {
		return 0, eris.New("empty attribute value")
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return 0, eris.Wrapf(err, "parse %q", val)
	}
	return f, nil
}

// polygonArea computes the planar area of a shapefile polygon in squared
// map units. Holes (counter-oriented rings) subtract from the total.
func polygonArea(p *shp.Polygon) float64 {
	g := toGeomPolygon(p)
	if g == nil {
		return 0
	}
	return math.Abs(g.Area())
}

// toGeomPolygon converts a shapefile polygon to a go-geom polygon, one ring
// per part.
func toGeomPolygon(p *shp.Polygon) *geom.Polygon {
	if p == nil || p.NumParts == 0 || len(p.Points) == 0 {
		return nil
	}

	g := geom.NewPolygon(geom.XY)
	for i := int32(0); i < p.NumParts; i++ {
		start := p.Parts[i]
		end := int32(len(p.Points))
		if i+1 < p.NumParts {
			end = p.Parts[i+1]
		}

		flat := make([]float64, 0, (end-start)*2)
		for j := start; j < end; j++ {
			flat = append(flat, p.Points[j].X, p.Points[j].Y)
		}

		ring := geom.NewLinearRingFlat(geom.XY, flat)
		if err := g.Push(ring); err != nil {
			zap.L().Debug("shapefile: skipping malformed ring", zap.Int32("part", i), zap.Error(err))
			continue
		}
	}

	if g.NumLinearRings() == 0 {
		return nil
	}
	return g
}
