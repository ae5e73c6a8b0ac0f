package zoning

import (
	"math"

	"github.com/rotisserie/eris"
)

// Sentinel errors for classification outcomes.
var (
	// ErrInvalidInput marks a negative or NaN IL/slope value, typically
	// produced upstream by a degenerate DTM clip. Callers must exclude the
	// record, never coerce it.
	ErrInvalidInput = eris.New("zoning: invalid input")

	// ErrUnclassified marks an (IL, slope) pair outside every rule range.
	// The criteria table has genuine gaps (flat terrain, IL=0); the caller
	// decides whether to keep, drop, or fail on such records.
	ErrUnclassified = eris.New("zoning: no matching zone")
)

// Classifier evaluates an ordered rule table. It is stateless and safe for
// concurrent use.
type Classifier struct {
	rules []Rule
}

// NewClassifier builds a Classifier from an ordered rule table.
func NewClassifier(rules []Rule) (*Classifier, error) {
	if err := ValidateRules(rules); err != nil {
		return nil, err
	}
	table := make([]Rule, len(rules))
	copy(table, rules)
	return &Classifier{rules: table}, nil
}

// Default returns a Classifier over DefaultRules.
func Default() *Classifier {
	c, err := NewClassifier(DefaultRules())
	if err != nil {
		// DefaultRules is a fixed table; it cannot fail validation.
		panic(err)
	}
	return c
}

// Rules returns a copy of the classifier's rule table in evaluation order.
func (c *Classifier) Rules() []Rule {
	out := make([]Rule, len(c.rules))
	copy(out, c.rules)
	return out
}

// Classify assigns a zone to the (il, slope) pair. Rules are evaluated
// strictly in table order and the first match wins. Returns ErrInvalidInput
// for negative or NaN inputs and ErrUnclassified when no rule matches.
func (c *Classifier) Classify(il, slope float64) (Zone, error) {
	if il < 0 || math.IsNaN(il) {
		return Zone{}, eris.Wrapf(ErrInvalidInput, "liquefaction index %g", il)
	}
	if slope < 0 || math.IsNaN(slope) {
		return Zone{}, eris.Wrapf(ErrInvalidInput, "slope %g%%", slope)
	}
	for _, r := range c.rules {
		if r.Matches(il, slope) {
			return r.Zone(), nil
		}
	}
	return Zone{}, eris.Wrapf(ErrUnclassified, "IL=%g slope=%g%%", il, slope)
}

// Classify runs the default ICMS rule table over the pair.
func Classify(il, slope float64) (Zone, error) {
	return defaultClassifier.Classify(il, slope)
}

var defaultClassifier = Default()
