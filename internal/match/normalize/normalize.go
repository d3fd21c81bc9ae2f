// Package normalize canonicalizes demographic records before comparison.
//
// Normalize is total: malformed input never fails, it degrades to empty
// fields that the comparator later grades as Missing.
package normalize

import (
	"regexp"
	"strings"

	"penmatch/internal/match/models"
)

var (
	postalPattern  = regexp.MustCompile(`^[A-Z][0-9][A-Z][0-9][A-Z][0-9]$`)
	mincodePattern = regexp.MustCompile(`^[0-9]{8}$`)
)

// Normalizer turns raw records into NormalizedRecords. It is immutable after
// construction and safe for concurrent use.
type Normalizer struct {
	nicknames *Nicknames
}

// New builds a Normalizer. A nil dictionary selects the embedded default.
func New(nicknames *Nicknames) *Normalizer {
	if nicknames == nil {
		nicknames = DefaultNicknames()
	}
	return &Normalizer{nicknames: nicknames}
}

// Normalize derives the canonical form of r. Same input, same output.
func (n *Normalizer) Normalize(r models.DemographicRecord) models.NormalizedRecord {
	given := nameKey(r.GivenName)
	given.Canonical = n.canonicalGiven(given)

	middle := nameKey(r.MiddleName)
	middle.Canonical = n.canonicalGiven(middle)

	return models.NormalizedRecord{
		Surname:    nameKey(r.Surname),
		GivenName:  given,
		MiddleName: middle,
		BirthDate:  ParseBirthDate(r.DateOfBirth),
		Gender:     normalizeGender(r.Gender),
		Mincode:    normalizeMincode(r.Mincode),
		LocalID:    normalizeLocalID(r.LocalID),
		PostalCode: normalizePostalCode(r.PostalCode),
		PEN:        normalizeSubmittedPEN(r.SubmittedPEN),
	}
}

// canonicalGiven expands the first token of a given name through the
// nickname dictionary. Unknown names are their own canonical form.
func (n *Normalizer) canonicalGiven(k models.NameKey) string {
	if k.IsEmpty() {
		return ""
	}
	first := k.Cleaned
	if i := strings.IndexAny(first, " -"); i > 0 {
		first = first[:i]
	}
	first = lettersOnly(first)
	if canonical, ok := n.nicknames.Canonical(first); ok {
		return canonical
	}
	return first
}

func normalizeGender(s string) string {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "M", "MALE":
		return models.GenderMale
	case "F", "FEMALE":
		return models.GenderFemale
	case "X":
		return models.GenderX
	default:
		return models.GenderUnknown
	}
}

func normalizePostalCode(s string) string {
	s = strings.ToUpper(stripSeparators(s))
	if !postalPattern.MatchString(s) {
		return ""
	}
	return s
}

func normalizeMincode(s string) string {
	s = stripSeparators(s)
	if !mincodePattern.MatchString(s) {
		return ""
	}
	return s
}

func normalizeLocalID(s string) string {
	return strings.ToUpper(stripSeparators(s))
}

func stripSeparators(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '-', '/':
			return -1
		}
		return r
	}, strings.TrimSpace(s))
}
