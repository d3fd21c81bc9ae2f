package models

// FieldMatchLevel grades the agreement of one field between the search record
// and a candidate. The numeric order is the total order used for scoring:
// Mismatch < Missing < Partial < FuzzyWeak < FuzzyStrong < Exact.
type FieldMatchLevel int

const (
	Mismatch FieldMatchLevel = iota
	Missing
	Partial
	FuzzyWeak
	FuzzyStrong
	Exact
)

// Levels lists every level from weakest to strongest.
var Levels = []FieldMatchLevel{Mismatch, Missing, Partial, FuzzyWeak, FuzzyStrong, Exact}

func (l FieldMatchLevel) String() string {
	switch l {
	case Exact:
		return "exact"
	case FuzzyStrong:
		return "fuzzy_strong"
	case FuzzyWeak:
		return "fuzzy_weak"
	case Partial:
		return "partial"
	case Missing:
		return "missing"
	case Mismatch:
		return "mismatch"
	default:
		return "invalid"
	}
}

// Valid reports whether l is one of the defined levels.
func (l FieldMatchLevel) Valid() bool {
	return l >= Mismatch && l <= Exact
}

// Cap lowers l to ceiling when l is stronger.
func (l FieldMatchLevel) Cap(ceiling FieldMatchLevel) FieldMatchLevel {
	if l > ceiling {
		return ceiling
	}
	return l
}

// Field identifies a comparable field. The order is fixed and doubles as the
// index into FieldVector.
type Field int

const (
	FieldSurname Field = iota
	FieldGivenName
	FieldDateOfBirth
	FieldGender
	FieldLocalID
	FieldPostalCode
	FieldMincode

	fieldCount
)

// Fields lists every comparable field in vector order.
var Fields = []Field{
	FieldSurname,
	FieldGivenName,
	FieldDateOfBirth,
	FieldGender,
	FieldLocalID,
	FieldPostalCode,
	FieldMincode,
}

// CoreFields are the identity-bearing fields. The numeric algorithm codes are
// derived from these only; the secondary fields go stale as students move.
var CoreFields = []Field{FieldSurname, FieldGivenName, FieldDateOfBirth, FieldGender}

func (f Field) String() string {
	switch f {
	case FieldSurname:
		return "surname"
	case FieldGivenName:
		return "given_name"
	case FieldDateOfBirth:
		return "date_of_birth"
	case FieldGender:
		return "gender"
	case FieldLocalID:
		return "local_id"
	case FieldPostalCode:
		return "postal_code"
	case FieldMincode:
		return "mincode"
	default:
		return "unknown"
	}
}

// ParseField resolves a field name as produced by String.
func ParseField(s string) (Field, bool) {
	for _, f := range Fields {
		if f.String() == s {
			return f, true
		}
	}
	return 0, false
}

// FieldVector holds one level per field, indexed by Field.
type FieldVector [fieldCount]FieldMatchLevel

// Get returns the level for f.
func (v FieldVector) Get(f Field) FieldMatchLevel {
	return v[f]
}

// With returns a copy of v with f set to level.
func (v FieldVector) With(f Field, level FieldMatchLevel) FieldVector {
	v[f] = level
	return v
}

// Count returns how many fields sit exactly at level.
func (v FieldVector) Count(level FieldMatchLevel) int {
	n := 0
	for _, l := range v {
		if l == level {
			n++
		}
	}
	return n
}

// Compared returns the fields where both sides carried a value.
func (v FieldVector) Compared() []Field {
	out := make([]Field, 0, len(v))
	for _, f := range Fields {
		if v[f] != Missing {
			out = append(out, f)
		}
	}
	return out
}

// Weakest returns the lowest level among fields.
func (v FieldVector) Weakest(fields []Field) FieldMatchLevel {
	weakest := Exact
	for _, f := range fields {
		if v[f] < weakest {
			weakest = v[f]
		}
	}
	return weakest
}

// Levels renders the vector as a field-name keyed map for audit payloads.
func (v FieldVector) Levels() map[string]string {
	out := make(map[string]string, len(v))
	for _, f := range Fields {
		out[f.String()] = v[f].String()
	}
	return out
}
