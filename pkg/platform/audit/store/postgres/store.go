package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	audit "penmatch/pkg/platform/audit"
)

// Schema creates the audit table. Applied by EnsureSchema at startup and by
// the integration tests.
const Schema = `
CREATE TABLE IF NOT EXISTS pen_match_audit (
	id              UUID PRIMARY KEY,
	category        TEXT NOT NULL,
	timestamp       TIMESTAMPTZ NOT NULL,
	action          TEXT NOT NULL,
	correlation_id  TEXT NOT NULL,
	request_id      TEXT NOT NULL DEFAULT '',
	actor_id        TEXT NOT NULL DEFAULT '',
	decision        TEXT NOT NULL DEFAULT '',
	algorithm       TEXT NOT NULL DEFAULT '',
	matched_pen     TEXT NOT NULL DEFAULT '',
	candidate_pens  TEXT[] NOT NULL DEFAULT '{}',
	top_score       DOUBLE PRECISION NOT NULL DEFAULT 0,
	reason          TEXT NOT NULL DEFAULT '',
	subject_id_hash TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS pen_match_audit_correlation_idx ON pen_match_audit (correlation_id);
`

// Store implements audit.Store on PostgreSQL.
type Store struct {
	db *sql.DB
}

// New creates a PostgreSQL audit store.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Open connects with the lib/pq driver.
func Open(dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open audit database: %w", err)
	}
	return db, nil
}

// EnsureSchema creates the audit table if it does not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("create audit schema: %w", err)
	}
	return nil
}

const selectColumns = `
	category, timestamp, action, correlation_id, request_id, actor_id,
	decision, algorithm, matched_pen, candidate_pens, top_score, reason, subject_id_hash
`

// Append inserts one event. The category is always derived from the action.
func (s *Store) Append(ctx context.Context, event audit.Event) error {
	query := `
		INSERT INTO pen_match_audit (
			id, category, timestamp, action, correlation_id, request_id, actor_id,
			decision, algorithm, matched_pen, candidate_pens, top_score, reason, subject_id_hash
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`
	candidates := event.CandidatePENs
	if candidates == nil {
		candidates = []string{}
	}
	_, err := s.db.ExecContext(ctx, query,
		uuid.New(),
		string(audit.AuditEvent(event.Action).Category()),
		event.Timestamp,
		event.Action,
		event.CorrelationID,
		event.RequestID,
		event.ActorID,
		event.Decision,
		event.Algorithm,
		event.MatchedPEN,
		pq.Array(candidates),
		event.TopScore,
		event.Reason,
		event.SubjectIDHash,
	)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

// ListByCorrelationID returns events for one request, oldest first.
func (s *Store) ListByCorrelationID(ctx context.Context, correlationID string) ([]audit.Event, error) {
	query := `SELECT ` + selectColumns + `
		FROM pen_match_audit
		WHERE correlation_id = $1
		ORDER BY timestamp ASC
	`
	rows, err := s.db.QueryContext(ctx, query, correlationID)
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

// ListRecent returns the N most recent events.
func (s *Store) ListRecent(ctx context.Context, limit int) ([]audit.Event, error) {
	query := `SELECT ` + selectColumns + `
		FROM pen_match_audit
		ORDER BY timestamp DESC
		LIMIT $1
	`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

func scanEvents(rows *sql.Rows) ([]audit.Event, error) {
	var events []audit.Event
	for rows.Next() {
		var (
			category string
			event    audit.Event
		)
		err := rows.Scan(
			&category,
			&event.Timestamp,
			&event.Action,
			&event.CorrelationID,
			&event.RequestID,
			&event.ActorID,
			&event.Decision,
			&event.Algorithm,
			&event.MatchedPEN,
			pq.Array(&event.CandidatePENs),
			&event.TopScore,
			&event.Reason,
			&event.SubjectIDHash,
		)
		if err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		event.Category = audit.EventCategory(category)
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit events: %w", err)
	}
	return events, nil
}
