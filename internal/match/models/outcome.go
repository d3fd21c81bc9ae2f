package models

// CandidateOutcome is the scored comparison of one candidate.
// Score is a pure function of Fields and lies in [0, 100].
type CandidateOutcome struct {
	PEN        string
	TruePEN    string
	Sequence   int64
	Fields     FieldVector
	Score      float64
	ExactCount int
	// Vetoed is set when surname and birth date both mismatched.
	Vetoed bool
}
