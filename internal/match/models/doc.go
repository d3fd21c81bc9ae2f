// Package models holds the shared vocabulary of the PEN matching context.
//
// The types here are pure values: no I/O, no context.Context and no clock
// reads. Records flow through the pipeline
//
//	DemographicRecord -> NormalizedRecord -> FieldVector -> CandidateOutcome -> MatchResult
//
// and none of them is mutated once constructed. The enumerations that cross
// the service boundary (AlgorithmCode, MatchStatus) are closed sets; values
// outside the set cannot be parsed.
package models
