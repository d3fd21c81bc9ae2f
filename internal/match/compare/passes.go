package compare

import "penmatch/internal/match/models"

// givenNameSecondaryPass lifts a weak given-name grade when the names are
// nickname-equivalent (Bob / Robert) or when one record carries the other's
// given name as its middle name.
func givenNameSecondaryPass(level models.FieldMatchLevel, search, candidate models.NormalizedRecord) models.FieldMatchLevel {
	if level >= models.FuzzyStrong || level == models.Missing {
		return level
	}

	if search.GivenName.Canonical != "" && search.GivenName.Canonical == candidate.GivenName.Canonical {
		return models.FuzzyStrong
	}

	if crossesMiddleName(search, candidate) && level < models.FuzzyWeak {
		return models.FuzzyWeak
	}
	return level
}

func crossesMiddleName(search, candidate models.NormalizedRecord) bool {
	if !candidate.MiddleName.IsEmpty() && CompareName(search.GivenName, candidate.MiddleName) >= models.FuzzyStrong {
		return true
	}
	if !search.MiddleName.IsEmpty() && CompareName(search.MiddleName, candidate.GivenName) >= models.FuzzyStrong {
		return true
	}
	return false
}

// swappedNamesPass detects surname and given name entered in each other's
// slot. Both fields are credited as FuzzyWeak; the swap itself is evidence
// of a data-entry error, so neither can be Exact.
func swappedNamesPass(v models.FieldVector, search, candidate models.NormalizedRecord) models.FieldVector {
	if v[models.FieldSurname] != models.Mismatch || v[models.FieldGivenName] != models.Mismatch {
		return v
	}
	if CompareName(search.Surname, candidate.GivenName) >= models.FuzzyStrong &&
		CompareName(search.GivenName, candidate.Surname) >= models.FuzzyStrong {
		v[models.FieldSurname] = models.FuzzyWeak
		v[models.FieldGivenName] = models.FuzzyWeak
	}
	return v
}
