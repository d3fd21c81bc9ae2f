// Package compare grades field-by-field agreement between a search record
// and a registry candidate.
//
// Every comparison is pure and total. Values the normalizer could not parse
// arrive empty and grade as Missing; nothing here returns an error.
package compare

import (
	"github.com/agnivade/levenshtein"

	"penmatch/internal/match/models"
)

// maxStrongEditDistance is the largest edit distance between letters-only
// names that still counts as FuzzyStrong when the phonetic keys agree.
const maxStrongEditDistance = 1

// Comparator compares normalized records. It holds no state.
type Comparator struct{}

// New returns a Comparator.
func New() *Comparator {
	return &Comparator{}
}

// CompareAll grades every field of candidate against search, including the
// cross-field passes (nickname, middle name, swapped names).
func (c *Comparator) CompareAll(search, candidate models.NormalizedRecord) models.FieldVector {
	var v models.FieldVector
	for _, f := range models.Fields {
		v[f] = c.Compare(f, search, candidate)
	}

	v[models.FieldGivenName] = givenNameSecondaryPass(v[models.FieldGivenName], search, candidate)
	v = swappedNamesPass(v, search, candidate)
	return v
}

// Compare grades a single field.
func (c *Comparator) Compare(field models.Field, search, candidate models.NormalizedRecord) models.FieldMatchLevel {
	switch field {
	case models.FieldSurname:
		return CompareName(search.Surname, candidate.Surname)
	case models.FieldGivenName:
		return CompareName(search.GivenName, candidate.GivenName)
	case models.FieldDateOfBirth:
		return CompareBirthDate(search.BirthDate, candidate.BirthDate)
	case models.FieldGender:
		return CompareGender(search.Gender, candidate.Gender)
	case models.FieldLocalID:
		return CompareCode(search.LocalID, candidate.LocalID)
	case models.FieldPostalCode:
		return CompareCode(search.PostalCode, candidate.PostalCode)
	case models.FieldMincode:
		return CompareCode(search.Mincode, candidate.Mincode)
	default:
		return models.Missing
	}
}

// CompareName applies the name ladder: exact cleaned string, then phonetic
// key plus small edit distance, then phonetic key alone.
func CompareName(search, candidate models.NameKey) models.FieldMatchLevel {
	if search.IsEmpty() || candidate.IsEmpty() {
		return models.Missing
	}
	if search.Cleaned == candidate.Cleaned {
		return models.Exact
	}
	if search.Phonetic != candidate.Phonetic {
		return models.Mismatch
	}
	if levenshtein.ComputeDistance(search.Alpha, candidate.Alpha) <= maxStrongEditDistance {
		return models.FuzzyStrong
	}
	return models.FuzzyWeak
}

// CompareBirthDate grades two parsed dates. Partial precision on either side
// caps the result at Partial.
func CompareBirthDate(search, candidate models.BirthDate) models.FieldMatchLevel {
	if !search.Known() || !candidate.Known() {
		return models.Missing
	}

	if search.Precision == models.PrecisionFull && candidate.Precision == models.PrecisionFull {
		switch {
		case search == candidate:
			return models.Exact
		case isTransposed(search, candidate):
			return models.FuzzyStrong
		case search.Year == candidate.Year && search.Month == candidate.Month:
			return models.Partial
		default:
			return models.Mismatch
		}
	}

	common := min(search.Precision, candidate.Precision)
	if search.Year != candidate.Year {
		return models.Mismatch
	}
	if common >= models.PrecisionYearMonth && search.Month != candidate.Month {
		return models.Mismatch
	}
	return models.Partial
}

// isTransposed reports whether the dates agree once day and month are swapped.
func isTransposed(a, b models.BirthDate) bool {
	return a.Year == b.Year && a.Day != a.Month && a.Month == b.Day && a.Day == b.Month
}

// CompareGender treats unknown on either side as Missing.
func CompareGender(search, candidate string) models.FieldMatchLevel {
	if search == models.GenderUnknown || candidate == models.GenderUnknown || search == "" || candidate == "" {
		return models.Missing
	}
	if search == candidate {
		return models.Exact
	}
	return models.Mismatch
}

// CompareCode grades identifier-like fields: local ID, postal code, mincode.
func CompareCode(search, candidate string) models.FieldMatchLevel {
	if search == "" || candidate == "" {
		return models.Missing
	}
	if search == candidate {
		return models.Exact
	}
	return models.Mismatch
}
