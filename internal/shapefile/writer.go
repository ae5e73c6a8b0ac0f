package shapefile

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"

	"github.com/geology-tools/ls4sm/internal/model"
)

// WriteZones writes classified polygons to a new shapefile with the zone
// attributes the original tool produces (code, zone, formula) plus the
// planar area. features and results are parallel slices; unclassified
// records are written with a zero code and empty zone so downstream systems
// can flag or drop them.
func WriteZones(path string, features []Feature, results []model.Result) error {
	if len(features) != len(results) {
		return eris.Errorf("shapefile: %d features but %d results", len(features), len(results))
	}

	if err := writeZoneRecords(path, features, results); err != nil {
		return err
	}
	return fixDBFName(path)
}

func writeZoneRecords(path string, features []Feature, results []model.Result) error {
	w, err := shp.Create(path, shp.POLYGON)
	if err != nil {
		return eris.Wrapf(err, "shapefile: create %s", path)
	}
	defer w.Close()

	fields := []shp.Field{
		shp.StringField("SITE_ID", 32),
		shp.NumberField("CODE", 10),
		shp.StringField("ZONE", 4),
		shp.StringField("FORMULA", 64),
		shp.FloatField("AREA_SQM", 19, 3),
	}
	if err := w.SetFields(fields); err != nil {
		return eris.Wrapf(err, "shapefile: set fields for %s", path)
	}

	for i, feat := range features {
		n := w.Write(feat.Polygon)
		res := results[i]

		if err := w.WriteAttribute(int(n), 0, res.SiteID); err != nil {
			return eris.Wrapf(err, "shapefile: write SITE_ID for record %d", n)
		}
		if err := w.WriteAttribute(int(n), 1, res.Code); err != nil {
			return eris.Wrapf(err, "shapefile: write CODE for record %d", n)
		}
		if err := w.WriteAttribute(int(n), 2, res.Family); err != nil {
			return eris.Wrapf(err, "shapefile: write ZONE for record %d", n)
		}
		if err := w.WriteAttribute(int(n), 3, res.Formula); err != nil {
			return eris.Wrapf(err, "shapefile: write FORMULA for record %d", n)
		}
		if err := w.WriteAttribute(int(n), 4, feat.AreaSqm); err != nil {
			return eris.Wrapf(err, "shapefile: write AREA_SQM for record %d", n)
		}
	}

	return nil
}

// fixDBFName moves the attribute table go-shp leaves at <base>dbf to the
// <base>.dbf sibling that shapefile readers look for.
func fixDBFName(path string) error {
	base := strings.TrimSuffix(path, filepath.Ext(path))
	if err := os.Rename(base+"dbf", base+".dbf"); err != nil {
		return eris.Wrapf(err, "shapefile: rename attribute table for %s", path)
	}
	return nil
}
