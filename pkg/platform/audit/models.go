// Package audit defines the audit trail for match decisions. Events carry
// codes, PENs and a hash of the submitted record, never raw demographics.
package audit

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// EventCategory classifies audit events by retention and routing.
type EventCategory string

const (
	// CategoryCompliance covers decisions that assign or withhold a PEN.
	// These are kept for the registry's retention period.
	CategoryCompliance EventCategory = "compliance"

	// CategoryOperations covers failures and routine activity; these can be
	// sampled or expired early.
	CategoryOperations EventCategory = "operations"
)

// AuditEvent names an auditable action.
type AuditEvent string

const (
	EventPENMatchDecided AuditEvent = "pen_match_decided"
	EventPENMatchFailed  AuditEvent = "pen_match_failed"
)

var eventCategories = map[AuditEvent]EventCategory{
	EventPENMatchDecided: CategoryCompliance,
	EventPENMatchFailed:  CategoryOperations,
}

// IsKnown reports whether e is one of the declared events.
func (e AuditEvent) IsKnown() bool {
	_, ok := eventCategories[e]
	return ok
}

// Category returns the EventCategory for this audit event.
// Unknown events default to CategoryOperations.
func (e AuditEvent) Category() EventCategory {
	if cat, ok := eventCategories[e]; ok {
		return cat
	}
	return CategoryOperations
}

// Event is emitted once per match request. Keep it transport-agnostic so
// stores and sinks can fan out.
type Event struct {
	Category  EventCategory
	Timestamp time.Time
	Action    string
	// CorrelationID is the caller's ID for the match request.
	CorrelationID string
	// RequestID is the transport-level request ID, when different.
	RequestID string
	// ActorID identifies the calling client (JWT subject or consumer group).
	ActorID string
	// Decision is the match status, Algorithm the algorithm code.
	Decision  string
	Algorithm string
	// MatchedPEN is set for confirmed decisions only.
	MatchedPEN    string
	CandidatePENs []string
	TopScore      float64
	// Reason carries the error code for failed requests.
	Reason string
	// SubjectIDHash is a SHA-256 of the submitted record, for traceability
	// without storing demographics.
	SubjectIDHash string
}

// Store persists audit events.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByCorrelationID(ctx context.Context, correlationID string) ([]Event, error)
	ListRecent(ctx context.Context, limit int) ([]Event, error)
}

// HashSubject returns the hex SHA-256 of the given fields joined with a unit
// separator, so equal records always hash equally.
func HashSubject(fields ...string) string {
	sum := sha256.Sum256([]byte(strings.Join(fields, "\x1f")))
	return hex.EncodeToString(sum[:])
}
