package models

// NameKey carries every derived form of one name field.
type NameKey struct {
	Raw       string
	Cleaned   string // upper-case, diacritics and punctuation stripped; exact comparison
	Alpha     string // letters only; edit distance and phonetic keying
	Phonetic  string // Soundex of Alpha; "" when Alpha is empty
	Canonical string // nickname-expanded legal form; secondary pass only
}

// IsEmpty reports whether the field carried no usable letters.
func (k NameKey) IsEmpty() bool {
	return k.Alpha == ""
}

// DatePrecision records how much of a birth date was supplied.
type DatePrecision int

const (
	PrecisionUnknown DatePrecision = iota
	PrecisionYear
	PrecisionYearMonth
	PrecisionFull
)

func (p DatePrecision) String() string {
	switch p {
	case PrecisionYear:
		return "year"
	case PrecisionYearMonth:
		return "year_month"
	case PrecisionFull:
		return "full"
	default:
		return "unknown"
	}
}

// BirthDate is a parsed date of birth. Components beyond Precision are zero.
type BirthDate struct {
	Year      int
	Month     int
	Day       int
	Precision DatePrecision
}

// Known reports whether any part of the date was parsed.
func (d BirthDate) Known() bool {
	return d.Precision != PrecisionUnknown
}

// Gender codes after normalization.
const (
	GenderMale    = "M"
	GenderFemale  = "F"
	GenderX       = "X"
	GenderUnknown = "U"
)

// SubmittedPEN is the normalized form of a PEN supplied with the search record.
type SubmittedPEN struct {
	Value string
	// Supplied is true when the submitter sent anything in the PEN field.
	Supplied bool
	// Valid is true when Value is nine digits with a correct check digit.
	Valid bool
}

// NormalizedRecord is the canonical form of a DemographicRecord. It is owned
// by a single match request.
type NormalizedRecord struct {
	Surname    NameKey
	GivenName  NameKey
	MiddleName NameKey
	BirthDate  BirthDate
	Gender     string
	Mincode    string
	LocalID    string
	PostalCode string
	PEN        SubmittedPEN
}
