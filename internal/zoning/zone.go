// Package zoning implements lateral-spreading susceptibility classification
// for seismic microzonation (ICMS guidelines): given a polygon's Liquefaction
// Index (IL) and terrain slope percentage, it assigns a zone code and label.
package zoning

// Family identifies the hazard category of a zone.
type Family string

// Hazard families, ordered from lowest to highest severity.
const (
	FamilyZ0 Family = "Z0" // low susceptibility
	FamilySZ Family = "SZ" // susceptibility
	FamilyRZ Family = "RZ" // respect
)

// familyLabels maps each family to its display label.
var familyLabels = map[Family]string{
	FamilyZ0: "Low Susceptibility Zone",
	FamilySZ: "Susceptibility Zone",
	FamilyRZ: "Respect Zone",
}

// Valid reports whether f is a known hazard family.
func (f Family) Valid() bool {
	_, ok := familyLabels[f]
	return ok
}

// Label returns the display label for the family, or "" if unknown.
func (f Family) Label() string {
	return familyLabels[f]
}

// Zone is an immutable classification result.
type Zone struct {
	Code    int    `json:"code"`
	Family  Family `json:"family"`
	Label   string `json:"label"`
	Formula string `json:"formula"`
}
