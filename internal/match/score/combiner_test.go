package score

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"penmatch/internal/match/models"
	dErrors "penmatch/pkg/domain-errors"
)

func vector(levels ...models.FieldMatchLevel) models.FieldVector {
	var v models.FieldVector
	for i, l := range levels {
		v[i] = l
	}
	return v
}

func allAt(level models.FieldMatchLevel) models.FieldVector {
	var v models.FieldVector
	for _, f := range models.Fields {
		v[f] = level
	}
	return v
}

func newCombiner(t *testing.T) *Combiner {
	t.Helper()
	c, err := New(DefaultWeights())
	require.NoError(t, err)
	return c
}

func TestWeightsValidate(t *testing.T) {
	t.Run("defaults are valid", func(t *testing.T) {
		require.NoError(t, DefaultWeights().Validate())
	})

	tests := []struct {
		desc   string
		mutate func(w *Weights)
	}{
		{"negative field weight", func(w *Weights) { w.Field[models.FieldGender] = -1 }},
		{"missing field weight", func(w *Weights) { delete(w.Field, models.FieldMincode) }},
		{"all weights zero", func(w *Weights) {
			for f := range w.Field {
				w.Field[f] = 0
			}
		}},
		{"credit above one", func(w *Weights) { w.Credit[models.Exact] = 1.5 }},
		{"missing credit", func(w *Weights) { delete(w.Credit, models.Partial) }},
		{"decreasing credits", func(w *Weights) { w.Credit[models.FuzzyWeak] = 0.9 }},
	}
	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			w := DefaultWeights()
			tt.mutate(&w)
			_, err := New(w)
			require.Error(t, err)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeConfiguration))
		})
	}
}

func TestNewCopiesWeights(t *testing.T) {
	w := DefaultWeights()
	c, err := New(w)
	require.NoError(t, err)

	before, _ := c.Score(allAt(models.Exact))
	w.Credit[models.Exact] = 0
	after, _ := c.Score(allAt(models.Exact))
	assert.Equal(t, before, after)
}

func TestScore(t *testing.T) {
	c := newCombiner(t)

	t.Run("all exact is the maximum", func(t *testing.T) {
		s, vetoed := c.Score(allAt(models.Exact))
		assert.Equal(t, MaxScore, s)
		assert.False(t, vetoed)
	})

	t.Run("all mismatch is the minimum", func(t *testing.T) {
		s, vetoed := c.Score(allAt(models.Mismatch))
		assert.Equal(t, MinScore, s)
		assert.True(t, vetoed)
	})

	t.Run("core exact with secondary fields missing", func(t *testing.T) {
		v := vector(models.Exact, models.Exact, models.Exact, models.Exact, models.Missing, models.Missing, models.Missing)
		s, _ := c.Score(v)
		// (30+20+25+5) + 0.25*(10+5+5) = 85
		assert.InDelta(t, 85.0, s, 1e-9)
	})

	t.Run("transposed birth date", func(t *testing.T) {
		v := vector(models.Exact, models.Exact, models.FuzzyStrong, models.Exact, models.Missing, models.Missing, models.Missing)
		s, _ := c.Score(v)
		// 30+20+21.25+5+5 = 81.25
		assert.InDelta(t, 81.25, s, 1e-9)
	})
}

func TestScoreVeto(t *testing.T) {
	c := newCombiner(t)
	v := allAt(models.Exact).
		With(models.FieldSurname, models.Mismatch).
		With(models.FieldDateOfBirth, models.Mismatch)

	s, vetoed := c.Score(v)
	assert.True(t, vetoed)
	assert.Equal(t, MinScore, s)

	// One of the two alone does not veto.
	s, vetoed = c.Score(allAt(models.Exact).With(models.FieldSurname, models.Mismatch))
	assert.False(t, vetoed)
	assert.Greater(t, s, MinScore)
}

func TestScoreIsMonotonic(t *testing.T) {
	c := newCombiner(t)

	// Raising any single field by one level never lowers the score, from
	// every starting level of every field against a mixed background.
	backgrounds := []models.FieldVector{
		allAt(models.Missing),
		allAt(models.Partial),
		vector(models.Exact, models.FuzzyWeak, models.Mismatch, models.Exact, models.Missing, models.Exact, models.Partial),
		vector(models.Mismatch, models.Exact, models.Mismatch, models.Missing, models.Exact, models.Missing, models.Exact),
	}
	for _, bg := range backgrounds {
		for _, f := range models.Fields {
			for _, lower := range models.Levels[:len(models.Levels)-1] {
				higher := lower + 1
				lo, _ := c.Score(bg.With(f, lower))
				hi, _ := c.Score(bg.With(f, higher))
				assert.GreaterOrEqual(t, hi, lo, "field %s from %s to %s", f, lower, higher)
			}
		}
	}
}

func TestCombine(t *testing.T) {
	c := newCombiner(t)
	cand := models.CandidateRecord{PEN: "123456782", TruePEN: "987654324", Sequence: 7}
	v := allAt(models.Exact).With(models.FieldPostalCode, models.Missing)

	out := c.Combine(cand, v)
	assert.Equal(t, "123456782", out.PEN)
	assert.Equal(t, "987654324", out.TruePEN)
	assert.Equal(t, int64(7), out.Sequence)
	assert.Equal(t, v, out.Fields)
	assert.Equal(t, 6, out.ExactCount)
	assert.False(t, out.Vetoed)
}

func TestRank(t *testing.T) {
	outcomes := []models.CandidateOutcome{
		{PEN: "a", Score: 70, ExactCount: 3, Sequence: 1},
		{PEN: "b", Score: 90, ExactCount: 2, Sequence: 5},
		{PEN: "c", Score: 70, ExactCount: 4, Sequence: 9},
		{PEN: "d", Score: 70, ExactCount: 3, Sequence: 0},
		{PEN: "e", Score: 0, Vetoed: true, Sequence: 2},
	}

	ranked := Rank(outcomes)

	var pens []string
	for _, o := range ranked {
		pens = append(pens, o.PEN)
	}
	assert.Equal(t, []string{"b", "c", "d", "a", "e"}, pens)
	assert.Equal(t, "a", outcomes[0].PEN, "input must not be reordered")
}

func TestRankEmpty(t *testing.T) {
	assert.Empty(t, Rank(nil))
}
