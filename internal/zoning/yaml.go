package zoning

import (
	"io"
	"math"
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// ruleDoc is the YAML shape of a rule table override. Omitted il_max or
// slope_max means the range is unbounded above.
type ruleDoc struct {
	Rules []struct {
		Code     int      `yaml:"code"`
		Family   string   `yaml:"family"`
		ILMin    float64  `yaml:"il_min"`
		ILMax    *float64 `yaml:"il_max"`
		SlopeMin float64  `yaml:"slope_min"`
		SlopeMax *float64 `yaml:"slope_max"`
	} `yaml:"rules"`
}

// ParseRules reads a YAML rule table. Rules keep document order, which is
// the evaluation order.
func ParseRules(r io.Reader) ([]Rule, error) {
	var doc ruleDoc
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, eris.Wrap(err, "zoning: decode rules yaml")
	}

	rules := make([]Rule, 0, len(doc.Rules))
	for _, d := range doc.Rules {
		rule := Rule{
			Code:     d.Code,
			Family:   Family(d.Family),
			ILMin:    d.ILMin,
			ILMax:    math.Inf(1),
			SlopeMin: d.SlopeMin,
			SlopeMax: math.Inf(1),
		}
		if d.ILMax != nil {
			rule.ILMax = *d.ILMax
		}
		if d.SlopeMax != nil {
			rule.SlopeMax = *d.SlopeMax
		}
		rules = append(rules, rule)
	}

	if err := ValidateRules(rules); err != nil {
		return nil, err
	}
	return rules, nil
}

// LoadRules reads a YAML rule table from a file.
func LoadRules(path string) ([]Rule, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "zoning: open rules file %s", path)
	}
	defer func() { _ = f.Close() }()
	return ParseRules(f)
}
