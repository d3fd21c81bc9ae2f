package models

import "time"

// DemographicRecord is the inbound search record as submitted by a school or
// district system. Fields are raw strings; normalization happens later.
type DemographicRecord struct {
	Surname       string
	GivenName     string
	MiddleName    string
	DateOfBirth   string // YYYYMMDD, YYYY-MM-DD, YYYYMM, YYYY-MM or YYYY
	Gender        string
	Mincode       string // school code
	LocalID       string // school-issued local student number
	PostalCode    string
	SubmittedPEN  string // PEN the submitter believes the student holds, optional
	TransactionID string
}

// MatchRequest pairs a record with the caller's correlation ID. Transports
// build one per inbound message and echo the ID on the reply.
type MatchRequest struct {
	CorrelationID string
	Record        DemographicRecord
}

// CandidateRecord is a registry entry with its already-issued PEN.
type CandidateRecord struct {
	PEN         string
	Surname     string
	GivenName   string
	MiddleName  string
	DateOfBirth string
	Gender      string
	Mincode     string
	LocalID     string
	PostalCode  string
	// TruePEN is set when this PEN was merged into another one.
	TruePEN string
	// Sequence is the registry insertion ordinal; the final tie-breaker.
	Sequence int64
}

// Demographics projects the candidate onto the same shape as a search record
// so both sides go through one normalizer.
func (c CandidateRecord) Demographics() DemographicRecord {
	return DemographicRecord{
		Surname:     c.Surname,
		GivenName:   c.GivenName,
		MiddleName:  c.MiddleName,
		DateOfBirth: c.DateOfBirth,
		Gender:      c.Gender,
		Mincode:     c.Mincode,
		LocalID:     c.LocalID,
		PostalCode:  c.PostalCode,
	}
}

// IsMerged reports whether the candidate's PEN has been retired in favour of TruePEN.
func (c CandidateRecord) IsMerged() bool {
	return c.TruePEN != "" && c.TruePEN != c.PEN
}

// MatchResult is the single output of one match request.
type MatchResult struct {
	CorrelationID string
	Algorithm     AlgorithmCode
	Status        MatchStatus
	// MatchedPEN is only set for confirmed statuses.
	MatchedPEN string
	// MergedFrom holds the retired PEN when MatchedPEN was resolved through a merge.
	MergedFrom string
	// Outcomes is the ranked candidate list considered, best first.
	Outcomes    []CandidateOutcome
	ProcessedAt time.Time
}

// HasMatch reports whether the result carries a confirmed identifier.
func (r *MatchResult) HasMatch() bool {
	return r != nil && r.MatchedPEN != ""
}
