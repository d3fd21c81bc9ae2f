// Package registry provides CandidateProvider implementations over the PEN
// registry: an in-memory index, a PostgreSQL store and a Redis read-through
// cache that wraps either.
package registry

import (
	"fmt"
	"strconv"
	"strings"

	"penmatch/internal/match/models"
	"penmatch/internal/match/normalize"
)

// BlockingKeys selects which registry rows are worth comparing. A row is a
// candidate when it shares any populated key with the search record.
type BlockingKeys struct {
	// SurnamePhonetic is matched against the candidate surname key.
	SurnamePhonetic string
	// GivenPhonetic is also matched against the candidate surname key, to
	// catch records with surname and given name swapped.
	GivenPhonetic string
	// LocalID and Mincode must both match.
	LocalID string
	Mincode string
	// PEN is the submitted PEN when its check digit is valid; matched against
	// both PEN and TruePEN.
	PEN string
	// BirthYear and BirthKey (YYYYMMDD) do not select rows. They order the
	// phonetic block so the most plausible rows survive the candidate cap.
	BirthYear int
	BirthKey  string
}

// KeysFor derives the blocking keys of a normalized search record.
func KeysFor(search models.NormalizedRecord) BlockingKeys {
	k := BlockingKeys{
		SurnamePhonetic: search.Surname.Phonetic,
		GivenPhonetic:   search.GivenName.Phonetic,
	}
	if search.LocalID != "" && search.Mincode != "" {
		k.LocalID = search.LocalID
		k.Mincode = search.Mincode
	}
	if search.PEN.Valid {
		k.PEN = search.PEN.Value
	}
	k.BirthYear, k.BirthKey = birthKeys(search.BirthDate)
	return k
}

// HasExactKey reports whether the search carries a PEN or local ID key.
func (k BlockingKeys) HasExactKey() bool {
	return k.PEN != "" || k.LocalID != ""
}

// IsEmpty reports whether no key is populated; such a search has no candidates.
func (k BlockingKeys) IsEmpty() bool {
	return k.SurnamePhonetic == "" && k.GivenPhonetic == "" && k.LocalID == "" && k.PEN == ""
}

// String renders the keys canonically. Used for cache keys.
func (k BlockingKeys) String() string {
	return strings.Join([]string{
		"s=" + k.SurnamePhonetic,
		"g=" + k.GivenPhonetic,
		"l=" + k.LocalID,
		"m=" + k.Mincode,
		"p=" + k.PEN,
		"y=" + strconv.Itoa(k.BirthYear),
		"d=" + k.BirthKey,
	}, "|")
}

// CacheKey is String plus the candidate limit.
func (k BlockingKeys) CacheKey(maxCandidates int) string {
	return k.String() + "|n=" + strconv.Itoa(maxCandidates)
}

// indexKeys are the values a registry row is indexed and ranked under.
type indexKeys struct {
	surnamePhonetic string
	givenPhonetic   string
	localMincode    string
	birthYear       int
	birthKey        string
	pens            []string
}

func rowKeys(n *normalize.Normalizer, c models.CandidateRecord) indexKeys {
	norm := n.Normalize(c.Demographics())
	k := indexKeys{
		surnamePhonetic: norm.Surname.Phonetic,
		givenPhonetic:   norm.GivenName.Phonetic,
	}
	if norm.LocalID != "" && norm.Mincode != "" {
		k.localMincode = norm.LocalID + "/" + norm.Mincode
	}
	k.birthYear, k.birthKey = birthKeys(norm.BirthDate)
	k.pens = append(k.pens, c.PEN)
	if c.TruePEN != "" && c.TruePEN != c.PEN {
		k.pens = append(k.pens, c.TruePEN)
	}
	return k
}

func birthKeys(d models.BirthDate) (year int, key string) {
	if d.Precision >= models.PrecisionYear {
		year = d.Year
	}
	if d.Precision == models.PrecisionFull {
		key = fmt.Sprintf("%04d%02d%02d", d.Year, d.Month, d.Day)
	}
	return year, key
}

// plausibility ranks a phonetic-block row, lower first: the same full birth
// date, then the same birth year, then the rest. A given-name key that agrees
// with either search name breaks ties. PostgresProvider.Lookup mirrors this
// in SQL.
func (k BlockingKeys) plausibility(row indexKeys) (tier, names int) {
	switch {
	case k.BirthKey != "" && row.birthKey == k.BirthKey:
		tier = 0
	case k.BirthYear != 0 && row.birthYear == k.BirthYear:
		tier = 1
	default:
		tier = 2
	}
	names = 1
	if row.givenPhonetic != "" && (row.givenPhonetic == k.GivenPhonetic || row.givenPhonetic == k.SurnamePhonetic) {
		names = 0
	}
	return tier, names
}
