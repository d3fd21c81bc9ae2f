package ports

import (
	"context"

	"penmatch/internal/match/models"
)

// CandidateProvider returns registry records that could plausibly be the
// student described by the search record. Implementations pick their own
// blocking strategy (phonetic surname, birth year, local ID) and must honour
// ctx cancellation; an error means the registry could not be consulted, which
// is distinct from an empty result.
type CandidateProvider interface {
	Lookup(ctx context.Context, search models.NormalizedRecord, maxCandidates int) ([]models.CandidateRecord, error)
}
