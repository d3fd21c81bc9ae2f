package models

import "fmt"

// AlgorithmCode identifies which comparison path produced a decision. The
// values are wire constants fixed by downstream consumers.
type AlgorithmCode struct {
	value string
}

var (
	// AlgorithmS1 – every compared field matched exactly.
	AlgorithmS1 = AlgorithmCode{"S1"}
	// AlgorithmS2 – all compared fields but one matched exactly.
	AlgorithmS2 = AlgorithmCode{"S2"}
	// AlgorithmSP – confirmed through local student number and school code.
	AlgorithmSP = AlgorithmCode{"SP"}
	// Algorithm00 to Algorithm51 – fuzzy paths, named by the weakest core field level.
	Algorithm00 = AlgorithmCode{"00"}
	Algorithm20 = AlgorithmCode{"20"}
	Algorithm30 = AlgorithmCode{"30"}
	Algorithm40 = AlgorithmCode{"40"}
	Algorithm50 = AlgorithmCode{"50"}
	Algorithm51 = AlgorithmCode{"51"}
	// AlgorithmNone – no usable candidate; default to issuing a new PEN.
	AlgorithmNone = AlgorithmCode{"9999"}
)

var algorithmCodes = []AlgorithmCode{
	AlgorithmS1, AlgorithmS2, AlgorithmSP,
	Algorithm00, Algorithm20, Algorithm30, Algorithm40, Algorithm50, Algorithm51,
	AlgorithmNone,
}

// ParseAlgorithmCode accepts only the fixed wire values.
func ParseAlgorithmCode(s string) (AlgorithmCode, error) {
	for _, c := range algorithmCodes {
		if c.value == s {
			return c, nil
		}
	}
	return AlgorithmCode{}, fmt.Errorf("unknown algorithm code %q", s)
}

func (c AlgorithmCode) String() string { return c.value }

// IsZero reports whether the code was never assigned.
func (c AlgorithmCode) IsZero() bool { return c.value == "" }

// IsExactFamily reports whether the code is one of the S paths.
func (c AlgorithmCode) IsExactFamily() bool {
	return c == AlgorithmS1 || c == AlgorithmS2 || c == AlgorithmSP
}

// MarshalText renders the wire value.
func (c AlgorithmCode) MarshalText() ([]byte, error) {
	return []byte(c.value), nil
}

// UnmarshalText rejects values outside the closed set.
func (c *AlgorithmCode) UnmarshalText(b []byte) error {
	parsed, err := ParseAlgorithmCode(string(b))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// DecisionClass groups statuses by what downstream systems do with them.
type DecisionClass string

const (
	ClassConfirmed DecisionClass = "confirmed"
	ClassReview    DecisionClass = "review"
	ClassNoMatch   DecisionClass = "no_match"
)

// MatchStatus identifies the decision outcome. The letter encodes how the
// submitted PEN looked (B valid, C absent, D failed its check digit, AA
// confirmed the submitted PEN, F a single questionable candidate) and the
// suffix encodes the class (1 one match, M several, 0 none).
type MatchStatus struct {
	value string
	class DecisionClass
}

var (
	StatusAA = MatchStatus{"AA", ClassConfirmed}
	StatusB0 = MatchStatus{"B0", ClassNoMatch}
	StatusB1 = MatchStatus{"B1", ClassConfirmed}
	StatusBM = MatchStatus{"BM", ClassReview}
	StatusC0 = MatchStatus{"C0", ClassNoMatch}
	StatusC1 = MatchStatus{"C1", ClassConfirmed}
	StatusCM = MatchStatus{"CM", ClassReview}
	StatusD0 = MatchStatus{"D0", ClassNoMatch}
	StatusD1 = MatchStatus{"D1", ClassConfirmed}
	StatusDM = MatchStatus{"DM", ClassReview}
	StatusF1 = MatchStatus{"F1", ClassReview}
)

var matchStatuses = []MatchStatus{
	StatusAA, StatusB0, StatusB1, StatusBM, StatusC0, StatusC1, StatusCM,
	StatusD0, StatusD1, StatusDM, StatusF1,
}

// ParseMatchStatus accepts only the fixed wire values.
func ParseMatchStatus(s string) (MatchStatus, error) {
	for _, st := range matchStatuses {
		if st.value == s {
			return st, nil
		}
	}
	return MatchStatus{}, fmt.Errorf("unknown match status %q", s)
}

func (s MatchStatus) String() string { return s.value }

// Class returns the decision class of the status.
func (s MatchStatus) Class() DecisionClass { return s.class }

// IsZero reports whether the status was never assigned.
func (s MatchStatus) IsZero() bool { return s.value == "" }

// MarshalText renders the wire value.
func (s MatchStatus) MarshalText() ([]byte, error) {
	return []byte(s.value), nil
}

// UnmarshalText rejects values outside the closed set.
func (s *MatchStatus) UnmarshalText(b []byte) error {
	parsed, err := ParseMatchStatus(string(b))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
