package registry

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"penmatch/internal/match/models"
	"penmatch/internal/match/normalize"
	"penmatch/pkg/platform/sentinel"
)

// Schema creates the registry table. The phonetic, local-ID and birth-date
// columns are derived on insert so lookups are plain index scans.
const Schema = `
CREATE TABLE IF NOT EXISTS pen_registry (
	seq              BIGSERIAL PRIMARY KEY,
	pen              TEXT NOT NULL UNIQUE,
	surname          TEXT NOT NULL,
	given_name       TEXT NOT NULL DEFAULT '',
	middle_name      TEXT NOT NULL DEFAULT '',
	date_of_birth    TEXT NOT NULL DEFAULT '',
	gender           TEXT NOT NULL DEFAULT '',
	mincode          TEXT NOT NULL DEFAULT '',
	local_id         TEXT NOT NULL DEFAULT '',
	postal_code      TEXT NOT NULL DEFAULT '',
	true_pen         TEXT NOT NULL DEFAULT '',
	surname_phonetic TEXT NOT NULL DEFAULT '',
	local_key        TEXT NOT NULL DEFAULT ''
);
ALTER TABLE pen_registry ADD COLUMN IF NOT EXISTS given_phonetic TEXT NOT NULL DEFAULT '';
ALTER TABLE pen_registry ADD COLUMN IF NOT EXISTS birth_year INTEGER NOT NULL DEFAULT 0;
ALTER TABLE pen_registry ADD COLUMN IF NOT EXISTS birth_key TEXT NOT NULL DEFAULT '';
CREATE INDEX IF NOT EXISTS pen_registry_surname_phonetic_idx ON pen_registry (surname_phonetic);
CREATE INDEX IF NOT EXISTS pen_registry_local_key_idx ON pen_registry (local_key) WHERE local_key <> '';
CREATE INDEX IF NOT EXISTS pen_registry_true_pen_idx ON pen_registry (true_pen) WHERE true_pen <> '';
`

// PostgresProvider reads candidates from PostgreSQL through a pgx pool.
type PostgresProvider struct {
	pool       *pgxpool.Pool
	normalizer *normalize.Normalizer
}

// NewPostgresProvider wraps an open pool.
func NewPostgresProvider(pool *pgxpool.Pool, n *normalize.Normalizer) *PostgresProvider {
	if n == nil {
		n = normalize.New(nil)
	}
	return &PostgresProvider{pool: pool, normalizer: n}
}

// EnsureSchema creates the registry table if missing.
func (p *PostgresProvider) EnsureSchema(ctx context.Context) error {
	if _, err := p.pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("create registry schema: %w", err)
	}
	return nil
}

// Insert adds or replaces registry rows in one batch. Sequence is assigned
// by the database and ignored on input.
func (p *PostgresProvider) Insert(ctx context.Context, records ...models.CandidateRecord) error {
	const query = `
		INSERT INTO pen_registry (
			pen, surname, given_name, middle_name, date_of_birth, gender,
			mincode, local_id, postal_code, true_pen, surname_phonetic, local_key,
			given_phonetic, birth_year, birth_key
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (pen) DO UPDATE SET
			surname = EXCLUDED.surname,
			given_name = EXCLUDED.given_name,
			middle_name = EXCLUDED.middle_name,
			date_of_birth = EXCLUDED.date_of_birth,
			gender = EXCLUDED.gender,
			mincode = EXCLUDED.mincode,
			local_id = EXCLUDED.local_id,
			postal_code = EXCLUDED.postal_code,
			true_pen = EXCLUDED.true_pen,
			surname_phonetic = EXCLUDED.surname_phonetic,
			local_key = EXCLUDED.local_key,
			given_phonetic = EXCLUDED.given_phonetic,
			birth_year = EXCLUDED.birth_year,
			birth_key = EXCLUDED.birth_key
	`
	batch := &pgx.Batch{}
	for _, r := range records {
		keys := rowKeys(p.normalizer, r)
		batch.Queue(query,
			r.PEN, r.Surname, r.GivenName, r.MiddleName, r.DateOfBirth, r.Gender,
			r.Mincode, r.LocalID, r.PostalCode, r.TruePEN, keys.surnamePhonetic, keys.localMincode,
			keys.givenPhonetic, keys.birthYear, keys.birthKey,
		)
	}
	if err := p.pool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("insert registry rows: %w", err)
	}
	return nil
}

const candidateColumns = `seq, pen, surname, given_name, middle_name, date_of_birth, gender,
	mincode, local_id, postal_code, true_pen`

// Lookup returns the PEN and local ID blocks uncapped, then fills the rest of
// maxCandidates from the phonetic surname block ranked the same way as
// MemoryProvider. Connection and query failures are wrapped in
// sentinel.ErrUnavailable.
func (p *PostgresProvider) Lookup(ctx context.Context, search models.NormalizedRecord, maxCandidates int) ([]models.CandidateRecord, error) {
	keys := KeysFor(search)
	if keys.IsEmpty() {
		return nil, nil
	}

	var exact []models.CandidateRecord
	if keys.HasExactKey() {
		localKey := ""
		if keys.LocalID != "" {
			localKey = keys.LocalID + "/" + keys.Mincode
		}
		query := `
			SELECT ` + candidateColumns + `
			FROM pen_registry
			WHERE ($1 <> '' AND (pen = $1 OR true_pen = $1))
			   OR ($2 <> '' AND local_key = $2)
			ORDER BY CASE WHEN $1 <> '' AND (pen = $1 OR true_pen = $1) THEN 0 ELSE 1 END, seq
		`
		var err error
		exact, err = p.query(ctx, query, keys.PEN, localKey)
		if err != nil {
			return nil, err
		}
	}

	var limit any
	if maxCandidates > 0 {
		room := maxCandidates - len(exact)
		if room <= 0 {
			return exact, nil
		}
		limit = room
	}
	if keys.SurnamePhonetic == "" && keys.GivenPhonetic == "" {
		return exact, nil
	}

	taken := make([]int64, 0, len(exact))
	for _, c := range exact {
		taken = append(taken, c.Sequence)
	}
	query := `
		SELECT ` + candidateColumns + `
		FROM pen_registry
		WHERE surname_phonetic <> '' AND surname_phonetic IN ($1, $2)
		  AND NOT (seq = ANY($3))
		ORDER BY
			CASE
				WHEN $4 <> '' AND birth_key = $4 THEN 0
				WHEN $5 <> 0 AND birth_year = $5 THEN 1
				ELSE 2
			END,
			CASE WHEN given_phonetic <> '' AND given_phonetic IN ($1, $2) THEN 0 ELSE 1 END,
			seq
		LIMIT $6
	`
	phonetic, err := p.query(ctx, query,
		keys.SurnamePhonetic, keys.GivenPhonetic, taken, keys.BirthKey, keys.BirthYear, limit,
	)
	if err != nil {
		return nil, err
	}
	return append(exact, phonetic...), nil
}

func (p *PostgresProvider) query(ctx context.Context, query string, args ...any) ([]models.CandidateRecord, error) {
	rows, err := p.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, unavailable(ctx, err)
	}
	records, err := pgx.CollectRows(rows, scanCandidate)
	if err != nil {
		return nil, unavailable(ctx, err)
	}
	return records, nil
}

func scanCandidate(row pgx.CollectableRow) (models.CandidateRecord, error) {
	var c models.CandidateRecord
	err := row.Scan(
		&c.Sequence, &c.PEN, &c.Surname, &c.GivenName, &c.MiddleName, &c.DateOfBirth, &c.Gender,
		&c.Mincode, &c.LocalID, &c.PostalCode, &c.TruePEN,
	)
	return c, err
}

// FindByPEN returns one row or sentinel.ErrNotFound.
func (p *PostgresProvider) FindByPEN(ctx context.Context, pen string) (*models.CandidateRecord, error) {
	query := `SELECT ` + candidateColumns + ` FROM pen_registry WHERE pen = $1`
	rows, err := p.pool.Query(ctx, query, pen)
	if err != nil {
		return nil, unavailable(ctx, err)
	}
	c, err := pgx.CollectExactlyOneRow(rows, scanCandidate)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, unavailable(ctx, err)
	}
	return &c, nil
}

// Health pings the pool.
func (p *PostgresProvider) Health(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

// unavailable keeps context errors visible so callers can tell a timeout
// from an outage.
func unavailable(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("registry query: %w: %w", sentinel.ErrUnavailable, ctxErr)
	}
	return fmt.Errorf("registry query: %w: %w", sentinel.ErrUnavailable, err)
}
