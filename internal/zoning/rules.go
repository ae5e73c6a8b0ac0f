package zoning

import (
	"fmt"
	"math"

	"github.com/rotisserie/eris"
)

// Rule is one classification criterion. Ranges are open on the lower bound
// and closed on the upper bound: min < value <= max. An upper bound of
// +Inf means the range is unbounded above.
type Rule struct {
	Code     int
	Family   Family
	ILMin    float64
	ILMax    float64
	SlopeMin float64
	SlopeMax float64
}

// Matches reports whether the (il, slope) pair satisfies the rule.
func (r Rule) Matches(il, slope float64) bool {
	return il > r.ILMin && il <= r.ILMax &&
		slope > r.SlopeMin && slope <= r.SlopeMax
}

// Formula returns the human-readable criterion, e.g.
// "RZ=(0<IL≤2) and (slope>15)". The text matches the formula attribute
// written by the original QGIS tool.
func (r Rule) Formula() string {
	return fmt.Sprintf("%s=(%s) and (%s)",
		r.Family,
		formatRange("IL", r.ILMin, r.ILMax),
		formatRange("slope", r.SlopeMin, r.SlopeMax),
	)
}

func formatRange(name string, min, max float64) string {
	if math.IsInf(max, 1) {
		return fmt.Sprintf("%s>%s", name, trimFloat(min))
	}
	return fmt.Sprintf("%s<%s≤%s", trimFloat(min), name, trimFloat(max))
}

func trimFloat(v float64) string {
	return fmt.Sprintf("%g", v)
}

// Zone returns the Zone a match on this rule produces.
func (r Rule) Zone() Zone {
	return Zone{
		Code:    r.Code,
		Family:  r.Family,
		Label:   r.Family.Label(),
		Formula: r.Formula(),
	}
}

// Validate checks that the rule is well-formed.
func (r Rule) Validate() error {
	if !r.Family.Valid() {
		return eris.Errorf("zoning: rule %d: unknown family %q", r.Code, r.Family)
	}
	if r.Code <= 0 {
		return eris.Errorf("zoning: rule code must be positive, got %d", r.Code)
	}
	if r.ILMin < 0 || r.SlopeMin < 0 {
		return eris.Errorf("zoning: rule %d: negative range bound", r.Code)
	}
	if r.ILMax <= r.ILMin {
		return eris.Errorf("zoning: rule %d: IL range (%g, %g] is empty", r.Code, r.ILMin, r.ILMax)
	}
	if r.SlopeMax <= r.SlopeMin {
		return eris.Errorf("zoning: rule %d: slope range (%g, %g] is empty", r.Code, r.SlopeMin, r.SlopeMax)
	}
	return nil
}

// DefaultRules returns the ICMS lateral-spreading criteria in evaluation
// order. Evaluation is strictly first-match: Z0 first, then SZ, then RZ.
func DefaultRules() []Rule {
	inf := math.Inf(1)
	return []Rule{
		{Code: 300, Family: FamilyZ0, ILMin: 0, ILMax: 2, SlopeMin: 2, SlopeMax: 5},
		{Code: 201, Family: FamilySZ, ILMin: 0, ILMax: 2, SlopeMin: 5, SlopeMax: 15},
		{Code: 202, Family: FamilySZ, ILMin: 2, ILMax: 5, SlopeMin: 5, SlopeMax: inf},
		{Code: 203, Family: FamilySZ, ILMin: 5, ILMax: 15, SlopeMin: 2, SlopeMax: 5},
		{Code: 101, Family: FamilyRZ, ILMin: 0, ILMax: 2, SlopeMin: 15, SlopeMax: inf},
		{Code: 102, Family: FamilyRZ, ILMin: 2, ILMax: 5, SlopeMin: 5, SlopeMax: inf},
		{Code: 103, Family: FamilyRZ, ILMin: 5, ILMax: 15, SlopeMin: 5, SlopeMax: inf},
		{Code: 104, Family: FamilyRZ, ILMin: 15, ILMax: inf, SlopeMin: 2, SlopeMax: inf},
	}
}

// ValidateRules checks every rule and rejects duplicate codes.
func ValidateRules(rules []Rule) error {
	if len(rules) == 0 {
		return eris.New("zoning: empty rule table")
	}
	seen := make(map[int]bool, len(rules))
	for _, r := range rules {
		if err := r.Validate(); err != nil {
			return err
		}
		if seen[r.Code] {
			return eris.Errorf("zoning: duplicate rule code %d", r.Code)
		}
		seen[r.Code] = true
	}
	return nil
}
