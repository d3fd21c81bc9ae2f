package compare

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"penmatch/internal/match/models"
	"penmatch/internal/match/normalize"
)

var normalizer = normalize.New(nil)

func norm(r models.DemographicRecord) models.NormalizedRecord {
	return normalizer.Normalize(r)
}

func name(raw string) models.NameKey {
	return norm(models.DemographicRecord{Surname: raw}).Surname
}

func TestCompareName(t *testing.T) {
	tests := []struct {
		desc      string
		search    string
		candidate string
		want      models.FieldMatchLevel
	}{
		{"identical", "SMITH", "SMITH", models.Exact},
		{"case and diacritics", "Bélanger", "BELANGER", models.Exact},
		{"phonetic with one edit", "SMITH", "SMYTH", models.FuzzyStrong},
		{"hyphen versus space", "SMITH-JONES", "SMITH JONES", models.FuzzyStrong},
		{"phonetic only", "ROBERT", "RUPERT", models.FuzzyWeak},
		{"different names", "SMITH", "JONES", models.Mismatch},
		{"search empty", "", "SMITH", models.Missing},
		{"candidate empty", "SMITH", "  ", models.Missing},
	}
	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			assert.Equal(t, tt.want, CompareName(name(tt.search), name(tt.candidate)))
		})
	}
}

func TestCompareBirthDate(t *testing.T) {
	d := normalize.ParseBirthDate
	tests := []struct {
		desc      string
		search    string
		candidate string
		want      models.FieldMatchLevel
	}{
		{"exact", "2005-01-01", "20050101", models.Exact},
		{"day month transposed", "2005-03-07", "2005-07-03", models.FuzzyStrong},
		{"same day and month is not a transposition", "2005-03-03", "2005-03-04", models.Partial},
		{"year and month only", "2005-03-07", "2005-03-21", models.Partial},
		{"different year", "2005-03-07", "2006-03-07", models.Mismatch},
		{"search year-month precision", "2005-03", "2005-03-07", models.Partial},
		{"candidate year precision", "2005-03-07", "2005", models.Partial},
		{"partial precision never exceeds partial", "2005-03", "2005-03", models.Partial},
		{"partial precision month differs", "2005-03", "2005-04-01", models.Mismatch},
		{"partial precision year differs", "2004", "2005-04-01", models.Mismatch},
		{"unknown search", "garbage", "2005-03-07", models.Missing},
		{"unknown candidate", "2005-03-07", "", models.Missing},
	}
	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			assert.Equal(t, tt.want, CompareBirthDate(d(tt.search), d(tt.candidate)))
		})
	}
}

func TestCompareGenderAndCodes(t *testing.T) {
	assert.Equal(t, models.Exact, CompareGender(models.GenderMale, models.GenderMale))
	assert.Equal(t, models.Mismatch, CompareGender(models.GenderMale, models.GenderFemale))
	assert.Equal(t, models.Missing, CompareGender(models.GenderUnknown, models.GenderFemale))
	assert.Equal(t, models.Missing, CompareGender("", models.GenderFemale))

	assert.Equal(t, models.Exact, CompareCode("03921234", "03921234"))
	assert.Equal(t, models.Mismatch, CompareCode("03921234", "03921235"))
	assert.Equal(t, models.Missing, CompareCode("", "03921235"))
}

func TestCompareAll(t *testing.T) {
	c := New()
	base := models.DemographicRecord{
		Surname:     "SMITH",
		GivenName:   "JOHN",
		DateOfBirth: "2005-01-01",
		Gender:      "M",
		Mincode:     "03921234",
		LocalID:     "A100",
		PostalCode:  "V8W2B5",
	}

	t.Run("identical records are exact everywhere", func(t *testing.T) {
		v := c.CompareAll(norm(base), norm(base))
		for _, f := range models.Fields {
			assert.Equal(t, models.Exact, v.Get(f), f.String())
		}
	})

	t.Run("absent secondary fields are missing", func(t *testing.T) {
		search := base
		search.LocalID, search.PostalCode, search.Mincode = "", "", ""
		v := c.CompareAll(norm(search), norm(base))
		assert.Equal(t, models.Missing, v.Get(models.FieldLocalID))
		assert.Equal(t, models.Missing, v.Get(models.FieldPostalCode))
		assert.Equal(t, models.Missing, v.Get(models.FieldMincode))
		assert.Equal(t, models.Exact, v.Get(models.FieldSurname))
	})

	t.Run("nickname lifts given name to fuzzy strong", func(t *testing.T) {
		search := base
		search.GivenName = "BILL"
		candidate := base
		candidate.GivenName = "WILLIAM"
		v := c.CompareAll(norm(search), norm(candidate))
		assert.Equal(t, models.FuzzyStrong, v.Get(models.FieldGivenName))
	})

	t.Run("given name found as candidate middle name", func(t *testing.T) {
		search := base
		search.GivenName = "PATRICK"
		candidate := base
		candidate.GivenName = "LIAM"
		candidate.MiddleName = "PATRICK"
		v := c.CompareAll(norm(search), norm(candidate))
		assert.Equal(t, models.FuzzyWeak, v.Get(models.FieldGivenName))
	})

	t.Run("swapped surname and given name", func(t *testing.T) {
		search := base
		search.Surname, search.GivenName = "JOHN", "SMITH"
		v := c.CompareAll(norm(search), norm(base))
		assert.Equal(t, models.FuzzyWeak, v.Get(models.FieldSurname))
		assert.Equal(t, models.FuzzyWeak, v.Get(models.FieldGivenName))
	})

	t.Run("malformed values never panic", func(t *testing.T) {
		junk := models.DemographicRecord{Surname: "###", DateOfBirth: "99999999", Gender: "??", PostalCode: "!!"}
		assert.NotPanics(t, func() {
			v := c.CompareAll(norm(junk), norm(base))
			assert.Equal(t, models.Missing, v.Get(models.FieldSurname))
			assert.Equal(t, models.Missing, v.Get(models.FieldDateOfBirth))
			assert.Equal(t, models.Missing, v.Get(models.FieldGender))
		})
	})
}
