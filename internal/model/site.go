// Package model defines the record types shared across the classification
// pipeline, the store, and the CLI.
package model

// Site is one classification input record: a polygon identifier joined with
// its liquefaction index and terrain slope percentage. Records come from an
// external geometry/attribute join (CSV, XLSX, or shapefile attributes).
type Site struct {
	ID       string  `json:"id"`
	IL       float64 `json:"il"`
	SlopePct float64 `json:"slope_pct"`
}

// Result is the classification output for one site. Code 0 with an empty
// family marks a record left deliberately unclassified.
type Result struct {
	SiteID  string `json:"site_id"`
	Code    int    `json:"code"`
	Family  string `json:"family"`
	Label   string `json:"label"`
	Formula string `json:"formula"`
}

// Classified reports whether the result carries an assigned zone.
func (r Result) Classified() bool {
	return r.Code != 0
}

// ZoneCount aggregates results per zone code for a run summary.
type ZoneCount struct {
	Code    int     `json:"code"`
	Family  string  `json:"family"`
	Count   int     `json:"count"`
	AreaSqm float64 `json:"area_sqm,omitempty"`
}
