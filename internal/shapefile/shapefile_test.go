package shapefile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/jonas-p/go-shp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/geology-tools/ls4sm/internal/model"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

// square returns a closed square ring polygon with the given side length.
func square(origin, side float64) *shp.Polygon {
	pts := []shp.Point{
		{X: origin, Y: origin},
		{X: origin, Y: origin + side},
		{X: origin + side, Y: origin + side},
		{X: origin + side, Y: origin},
		{X: origin, Y: origin},
	}
	return &shp.Polygon{
		Box:       shp.Box{MinX: origin, MinY: origin, MaxX: origin + side, MaxY: origin + side},
		NumParts:  1,
		NumPoints: int32(len(pts)),
		Parts:     []int32{0},
		Points:    pts,
	}
}

func writeInputShapefile(t *testing.T, dir string) string {
	t.Helper()

	path := filepath.Join(dir, "intersect.shp")
	w, err := shp.Create(path, shp.POLYGON)
	require.NoError(t, err)

	require.NoError(t, w.SetFields([]shp.Field{
		shp.FloatField("INDEX", 19, 5),
		shp.FloatField("DN", 19, 5),
	}))

	rows := []struct {
		poly      *shp.Polygon
		il, slope float64
	}{
		{square(0, 10), 1, 3},
		{square(20, 5), 3, 6},
		{square(40, 2), 0, 1},
	}
	for _, row := range rows {
		n := w.Write(row.poly)
		require.NoError(t, w.WriteAttribute(int(n), 0, row.il))
		require.NoError(t, w.WriteAttribute(int(n), 1, row.slope))
	}
	w.Close()
	require.NoError(t, fixDBFName(path))
	return path
}

func TestReadFeatures(t *testing.T) {
	path := writeInputShapefile(t, t.TempDir())

	features, err := ReadFeatures(path, ReadOptions{})
	require.NoError(t, err)
	require.Len(t, features, 3)

	assert.Equal(t, model.Site{ID: "0", IL: 1, SlopePct: 3}, features[0].Site)
	assert.InDelta(t, 100, features[0].AreaSqm, 1e-6)
	assert.InDelta(t, 25, features[1].AreaSqm, 1e-6)
	assert.InDelta(t, 4, features[2].AreaSqm, 1e-6)
}

func TestReadFeaturesMissingField(t *testing.T) {
	path := writeInputShapefile(t, t.TempDir())

	_, err := ReadFeatures(path, ReadOptions{ILField: "IL_MISSING"})
	assert.Error(t, err)

	_, err = ReadFeatures(path, ReadOptions{IDField: "NO_SUCH"})
	assert.Error(t, err)
}

func TestReadFeaturesMissingFile(t *testing.T) {
	_, err := ReadFeatures(filepath.Join(t.TempDir(), "nope.shp"), ReadOptions{})
	assert.Error(t, err)
}

func TestWriteZonesRoundTrip(t *testing.T) {
	dir := t.TempDir()
	inPath := writeInputShapefile(t, dir)

	features, err := ReadFeatures(inPath, ReadOptions{})
	require.NoError(t, err)

	results := []model.Result{
		{SiteID: "0", Code: 300, Family: "Z0", Label: "Low Susceptibility Zone", Formula: "Z0=(0<IL≤2) and (2<slope≤5)"},
		{SiteID: "1", Code: 202, Family: "SZ", Label: "Susceptibility Zone", Formula: "SZ=(2<IL≤5) and (slope>5)"},
		{SiteID: "2"}, // unclassified
	}

	outPath := filepath.Join(dir, "zones.shp")
	require.NoError(t, WriteZones(outPath, features, results))

	// The attribute table must land at the .dbf sibling readers expect.
	_, err = os.Stat(filepath.Join(dir, "zones.dbf"))
	require.NoError(t, err)

	r, err := shp.Open(outPath)
	require.NoError(t, err)
	defer func() { _ = r.Close() }()

	var ids, codes, zones, formulas []string
	var areas []float64
	for r.Next() {
		ids = append(ids, cleanAttr(r.Attribute(0)))
		codes = append(codes, cleanAttr(r.Attribute(1)))
		zones = append(zones, cleanAttr(r.Attribute(2)))
		formulas = append(formulas, cleanAttr(r.Attribute(3)))

		area, err := parseAttr(r.Attribute(4))
		require.NoError(t, err)
		areas = append(areas, area)
	}
	assert.Equal(t, []string{"0", "1", "2"}, ids)
	assert.Equal(t, []string{"300", "202", "0"}, codes)
	assert.Equal(t, []string{"Z0", "SZ", ""}, zones)
	assert.Equal(t, []string{"Z0=(0<IL≤2) and (2<slope≤5)", "SZ=(2<IL≤5) and (slope>5)", ""}, formulas)

	require.Len(t, areas, 3)
	assert.InDelta(t, 100, areas[0], 1e-3)
	assert.InDelta(t, 25, areas[1], 1e-3)
	assert.InDelta(t, 4, areas[2], 1e-3)
}

func TestWriteZonesLengthMismatch(t *testing.T) {
	err := WriteZones(filepath.Join(t.TempDir(), "out.shp"), []Feature{{}}, nil)
	assert.Error(t, err)
}

func TestPolygonArea(t *testing.T) {
	assert.InDelta(t, 100, polygonArea(square(0, 10)), 1e-6)
	assert.Zero(t, polygonArea(nil))
	assert.Zero(t, polygonArea(&shp.Polygon{}))
}
