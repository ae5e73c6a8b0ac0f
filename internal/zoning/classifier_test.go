package zoning

import (
	"math"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyKnownPairs(t *testing.T) {
	tests := []struct {
		name       string
		il, slope  float64
		wantCode   int
		wantFamily Family
	}{
		{name: "low susceptibility: mild IL, gentle slope", il: 1, slope: 3, wantCode: 300, wantFamily: FamilyZ0},
		{name: "susceptibility: mild IL, moderate slope", il: 1, slope: 10, wantCode: 201, wantFamily: FamilySZ},
		{name: "susceptibility: medium IL, slope above 5", il: 3, slope: 6, wantCode: 202, wantFamily: FamilySZ},
		{name: "susceptibility: high IL, gentle slope", il: 10, slope: 3, wantCode: 203, wantFamily: FamilySZ},
		{name: "respect: mild IL, steep slope", il: 1, slope: 20, wantCode: 101, wantFamily: FamilyRZ},
		{name: "respect: severe IL", il: 20, slope: 5, wantCode: 104, wantFamily: FamilyRZ},
		{name: "respect: high IL, steep slope", il: 10, slope: 30, wantCode: 103, wantFamily: FamilyRZ},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			zone, err := Classify(tt.il, tt.slope)
			require.NoError(t, err)
			assert.Equal(t, tt.wantCode, zone.Code)
			assert.Equal(t, tt.wantFamily, zone.Family)
			assert.Equal(t, tt.wantFamily.Label(), zone.Label)
			assert.NotEmpty(t, zone.Formula)
		})
	}
}

func TestClassifyBoundaries(t *testing.T) {
	tests := []struct {
		name      string
		il, slope float64
		wantCode  int
	}{
		{name: "IL at 2 stays in first band", il: 2, slope: 4, wantCode: 300},
		{name: "IL just above 2 moves band", il: 2.001, slope: 6, wantCode: 202},
		{name: "slope at 15 stays moderate", il: 1, slope: 15, wantCode: 201},
		{name: "slope just above 15 becomes respect", il: 1, slope: 15.001, wantCode: 101},
		{name: "slope at 5 is gentle", il: 1, slope: 5, wantCode: 300},
		{name: "slope just above 5 is moderate", il: 1, slope: 5.001, wantCode: 201},
		{name: "IL at 15 keeps high band", il: 15, slope: 8, wantCode: 103},
		{name: "IL just above 15 is severe", il: 15.001, slope: 8, wantCode: 104},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			zone, err := Classify(tt.il, tt.slope)
			require.NoError(t, err)
			assert.Equal(t, tt.wantCode, zone.Code)
		})
	}
}

func TestClassifyUnclassified(t *testing.T) {
	tests := []struct {
		name      string
		il, slope float64
	}{
		{name: "both below all thresholds", il: 0, slope: 1},
		{name: "flat terrain, moderate IL", il: 4, slope: 1},
		{name: "flat terrain, high IL", il: 10, slope: 2},
		{name: "zero IL on steep slope", il: 0, slope: 30},
		{name: "slope at 2 with mild IL", il: 1, slope: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Classify(tt.il, tt.slope)
			require.Error(t, err)
			assert.True(t, eris.Is(err, ErrUnclassified))
		})
	}
}

func TestClassifyInvalidInput(t *testing.T) {
	for _, pair := range [][2]float64{
		{-1, 3},
		{1, -3},
		{math.NaN(), 3},
		{1, math.NaN()},
	} {
		_, err := Classify(pair[0], pair[1])
		require.Error(t, err)
		assert.True(t, eris.Is(err, ErrInvalidInput))
		assert.False(t, eris.Is(err, ErrUnclassified))
	}
}

// TestClassifyGrid sweeps a dense grid and checks that classification is a
// pure function of its inputs: repeated calls agree, and the result always
// equals the first rule in table order whose predicate holds.
func TestClassifyGrid(t *testing.T) {
	c := Default()
	rules := c.Rules()

	for il := 0.0; il <= 20.0; il += 0.25 {
		for slope := 0.0; slope <= 25.0; slope += 0.25 {
			first, err1 := c.Classify(il, slope)
			second, err2 := c.Classify(il, slope)

			if err1 != nil {
				require.Error(t, err2)
				assert.Equal(t, eris.Is(err1, ErrUnclassified), eris.Is(err2, ErrUnclassified))
			} else {
				require.NoError(t, err2)
				assert.Equal(t, first, second)
			}

			var want *Rule
			for i := range rules {
				if rules[i].Matches(il, slope) {
					want = &rules[i]
					break
				}
			}
			if want == nil {
				assert.True(t, eris.Is(err1, ErrUnclassified),
					"IL=%g slope=%g: expected no zone", il, slope)
				continue
			}
			require.NoError(t, err1, "IL=%g slope=%g", il, slope)
			assert.Equal(t, want.Code, first.Code, "IL=%g slope=%g", il, slope)
		}
	}
}

// TestRulesILPartition checks that within each family the IL ranges do not
// overlap, so a pair can never satisfy two criteria of the same severity.
func TestRulesILPartition(t *testing.T) {
	byFamily := make(map[Family][]Rule)
	for _, r := range DefaultRules() {
		byFamily[r.Family] = append(byFamily[r.Family], r)
	}

	for family, rules := range byFamily {
		for i := 0; i < len(rules); i++ {
			for j := i + 1; j < len(rules); j++ {
				a, b := rules[i], rules[j]
				overlap := a.ILMin < b.ILMax && b.ILMin < a.ILMax &&
					a.SlopeMin < b.SlopeMax && b.SlopeMin < a.SlopeMax
				assert.False(t, overlap,
					"family %s: rules %d and %d overlap", family, a.Code, b.Code)
			}
		}
	}
}

func TestNewClassifierRejectsBadTables(t *testing.T) {
	_, err := NewClassifier(nil)
	assert.Error(t, err)

	dup := DefaultRules()
	dup = append(dup, dup[0])
	_, err = NewClassifier(dup)
	assert.Error(t, err)

	bad := DefaultRules()
	bad[0].ILMax = bad[0].ILMin
	_, err = NewClassifier(bad)
	assert.Error(t, err)

	bad = DefaultRules()
	bad[0].Family = "XX"
	_, err = NewClassifier(bad)
	assert.Error(t, err)
}

func TestRuleFormula(t *testing.T) {
	rules := DefaultRules()
	formulas := make(map[int]string, len(rules))
	for _, r := range rules {
		formulas[r.Code] = r.Formula()
	}

	assert.Equal(t, "Z0=(0<IL≤2) and (2<slope≤5)", formulas[300])
	assert.Equal(t, "SZ=(0<IL≤2) and (5<slope≤15)", formulas[201])
	assert.Equal(t, "RZ=(0<IL≤2) and (slope>15)", formulas[101])
	assert.Equal(t, "RZ=(IL>15) and (slope>2)", formulas[104])
}
