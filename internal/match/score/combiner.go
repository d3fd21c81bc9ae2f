// Package score turns per-field match levels into a composite score and a
// deterministic ranking of candidates.
package score

import (
	"math"
	"sort"

	"penmatch/internal/match/models"
)

const (
	MinScore = 0.0
	MaxScore = 100.0
)

// Combiner is immutable after New and safe for concurrent use.
type Combiner struct {
	weights Weights
	total   float64
}

// New validates and copies w.
func New(w Weights) (*Combiner, error) {
	if err := w.Validate(); err != nil {
		return nil, err
	}
	w = w.clone()
	var total float64
	for _, f := range models.Fields {
		total += w.Field[f]
	}
	return &Combiner{weights: w, total: total}, nil
}

// Score computes the composite for a vector. A surname mismatch together
// with a birth-date mismatch vetoes the pair regardless of the other fields.
func (c *Combiner) Score(v models.FieldVector) (score float64, vetoed bool) {
	if v.Get(models.FieldSurname) == models.Mismatch && v.Get(models.FieldDateOfBirth) == models.Mismatch {
		return MinScore, true
	}
	var sum float64
	for _, f := range models.Fields {
		sum += c.weights.Field[f] * c.weights.Credit[v.Get(f)]
	}
	s := MaxScore * sum / c.total
	// Round to 1e-9 so float noise never reorders equal vectors.
	s = math.Round(s*1e9) / 1e9
	return math.Min(MaxScore, math.Max(MinScore, s)), false
}

// Combine scores one candidate's vector.
func (c *Combiner) Combine(candidate models.CandidateRecord, v models.FieldVector) models.CandidateOutcome {
	s, vetoed := c.Score(v)
	return models.CandidateOutcome{
		PEN:        candidate.PEN,
		TruePEN:    candidate.TruePEN,
		Sequence:   candidate.Sequence,
		Fields:     v,
		Score:      s,
		ExactCount: v.Count(models.Exact),
		Vetoed:     vetoed,
	}
}

// Rank orders outcomes best first: higher score, then more Exact fields,
// then earlier registry insertion. The input slice is not modified.
func Rank(outcomes []models.CandidateOutcome) []models.CandidateOutcome {
	ranked := make([]models.CandidateOutcome, len(outcomes))
	copy(ranked, outcomes)
	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.ExactCount != b.ExactCount {
			return a.ExactCount > b.ExactCount
		}
		if a.Sequence != b.Sequence {
			return a.Sequence < b.Sequence
		}
		return a.PEN < b.PEN
	})
	return ranked
}
