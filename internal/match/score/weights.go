package score

import (
	dErrors "penmatch/pkg/domain-errors"

	"penmatch/internal/match/models"
)

// Weights is the tuning surface of the combiner.
//
// Field holds the relative importance of each field; only ratios matter
// because the composite is normalized to [0, 100]. Credit holds the share of
// a field's weight earned at each level, from 0 (nothing) to 1 (full weight).
type Weights struct {
	Field  map[models.Field]float64
	Credit map[models.FieldMatchLevel]float64
}

// Default field weights: surname carries the most identity, then given
// name, then birth date; the secondary fields change as students move.
const (
	DefaultSurnameWeight     = 30.0
	DefaultGivenNameWeight   = 20.0
	DefaultDateOfBirthWeight = 25.0
	DefaultGenderWeight      = 5.0
	DefaultLocalIDWeight     = 10.0
	DefaultPostalCodeWeight  = 5.0
	DefaultMincodeWeight     = 5.0
)

// Default level credits. Missing earns a little so that an absent optional
// field ranks above a contradicting one.
const (
	DefaultExactCredit       = 1.0
	DefaultFuzzyStrongCredit = 0.85
	DefaultFuzzyWeakCredit   = 0.7
	DefaultPartialCredit     = 0.5
	DefaultMissingCredit     = 0.25
	DefaultMismatchCredit    = 0.0
)

// DefaultWeights returns the documented defaults.
func DefaultWeights() Weights {
	return Weights{
		Field: map[models.Field]float64{
			models.FieldSurname:     DefaultSurnameWeight,
			models.FieldGivenName:   DefaultGivenNameWeight,
			models.FieldDateOfBirth: DefaultDateOfBirthWeight,
			models.FieldGender:      DefaultGenderWeight,
			models.FieldLocalID:     DefaultLocalIDWeight,
			models.FieldPostalCode:  DefaultPostalCodeWeight,
			models.FieldMincode:     DefaultMincodeWeight,
		},
		Credit: map[models.FieldMatchLevel]float64{
			models.Exact:       DefaultExactCredit,
			models.FuzzyStrong: DefaultFuzzyStrongCredit,
			models.FuzzyWeak:   DefaultFuzzyWeakCredit,
			models.Partial:     DefaultPartialCredit,
			models.Missing:     DefaultMissingCredit,
			models.Mismatch:    DefaultMismatchCredit,
		},
	}
}

// Validate rejects weights the combiner cannot honour: a missing or negative
// field weight, an all-zero weight set, credits outside [0, 1], or credits
// that decrease as the level improves (which would break monotonic scoring).
func (w Weights) Validate() error {
	var total float64
	for _, f := range models.Fields {
		weight, ok := w.Field[f]
		if !ok {
			return dErrors.Configuration("weight for field %s is not set", f)
		}
		if weight < 0 {
			return dErrors.Configuration("weight for field %s must not be negative, got %v", f, weight)
		}
		total += weight
	}
	if total <= 0 {
		return dErrors.Configuration("field weights must not all be zero")
	}

	prev := -1.0
	for _, level := range models.Levels {
		credit, ok := w.Credit[level]
		if !ok {
			return dErrors.Configuration("credit for level %s is not set", level)
		}
		if credit < 0 || credit > 1 {
			return dErrors.Configuration("credit for level %s must be within [0, 1], got %v", level, credit)
		}
		if credit < prev {
			return dErrors.Configuration("credit for level %s must not be lower than the level below it", level)
		}
		prev = credit
	}
	return nil
}

// clone copies the maps so callers cannot mutate a live combiner.
func (w Weights) clone() Weights {
	out := Weights{
		Field:  make(map[models.Field]float64, len(w.Field)),
		Credit: make(map[models.FieldMatchLevel]float64, len(w.Credit)),
	}
	for k, v := range w.Field {
		out.Field[k] = v
	}
	for k, v := range w.Credit {
		out.Credit[k] = v
	}
	return out
}
