// Package classify maps a ranked candidate list to an algorithm code, a
// match status and, for confirmed matches, the matched PEN.
package classify

import (
	"penmatch/internal/match/models"
)

// Decision is the classifier's verdict.
type Decision struct {
	Algorithm models.AlgorithmCode
	Status    models.MatchStatus
	// MatchedPEN is set only for confirmed statuses.
	MatchedPEN string
	// MergedFrom holds the retired PEN when the winner had been merged.
	MergedFrom string
}

// Classifier is immutable after New and safe for concurrent use.
type Classifier struct {
	thresholds Thresholds
}

// New validates t.
func New(t Thresholds) (*Classifier, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return &Classifier{thresholds: t}, nil
}

// Thresholds returns the configured thresholds.
func (c *Classifier) Thresholds() Thresholds {
	return c.thresholds
}

// Classify decides on ranked, which must be best first. The first rule that
// applies wins:
//
//  1. no candidates: 9999 and no match
//  2. top clears AutoConfirm and strictly leads the runner-up by at least
//     Margin: confirmed
//  3. top clears PossibleMatch: review, no PEN
//  4. otherwise: 9999 and no match
func (c *Classifier) Classify(ranked []models.CandidateOutcome, pen models.SubmittedPEN) Decision {
	p := prefixFor(pen)
	if len(ranked) == 0 {
		return Decision{Algorithm: models.AlgorithmNone, Status: p.noMatch}
	}

	top := ranked[0]
	leads := true
	if len(ranked) > 1 {
		runnerUp := ranked[1].Score
		leads = top.Score > runnerUp && top.Score-runnerUp >= c.thresholds.Margin
	}

	if !top.Vetoed && top.Score >= c.thresholds.AutoConfirm && leads {
		d := Decision{
			Algorithm:  confirmPath(top.Fields),
			Status:     p.confirmed,
			MatchedPEN: top.PEN,
		}
		if top.TruePEN != "" && top.TruePEN != top.PEN {
			d.MatchedPEN = top.TruePEN
			d.MergedFrom = top.PEN
		}
		if pen.Valid && (pen.Value == top.PEN || pen.Value == d.MatchedPEN) {
			d.Status = models.StatusAA
		}
		return d
	}

	if !top.Vetoed && top.Score >= c.thresholds.PossibleMatch {
		status := p.review
		if c.countAtLeast(ranked, c.thresholds.PossibleMatch) == 1 {
			status = models.StatusF1
		}
		return Decision{
			Algorithm: NumericCode(top.Fields.Weakest(models.CoreFields)),
			Status:    status,
		}
	}

	return Decision{Algorithm: models.AlgorithmNone, Status: p.noMatch}
}

func (c *Classifier) countAtLeast(ranked []models.CandidateOutcome, threshold float64) int {
	n := 0
	for _, o := range ranked {
		if o.Vetoed || o.Score < threshold {
			// ranked is sorted, nothing below can qualify
			break
		}
		n++
	}
	return n
}

// confirmPath names the comparison path behind a confirmed winner.
func confirmPath(v models.FieldVector) models.AlgorithmCode {
	compared := v.Compared()
	exact := v.Count(models.Exact)
	switch {
	case len(compared) > 0 && exact == len(compared):
		return models.AlgorithmS1
	case len(compared) > 1 && exact == len(compared)-1:
		return models.AlgorithmS2
	case v.Get(models.FieldLocalID) == models.Exact && v.Get(models.FieldMincode) == models.Exact:
		return models.AlgorithmSP
	default:
		return NumericCode(v.Weakest(models.CoreFields))
	}
}

// NumericCode maps the weakest core-field level to its fuzzy-family code.
func NumericCode(weakest models.FieldMatchLevel) models.AlgorithmCode {
	switch weakest {
	case models.Exact:
		return models.Algorithm00
	case models.FuzzyStrong:
		return models.Algorithm20
	case models.FuzzyWeak:
		return models.Algorithm30
	case models.Partial:
		return models.Algorithm40
	case models.Missing:
		return models.Algorithm50
	default:
		return models.Algorithm51
	}
}

type statusFamily struct {
	confirmed models.MatchStatus
	review    models.MatchStatus
	noMatch   models.MatchStatus
}

var (
	familyValidPEN   = statusFamily{models.StatusB1, models.StatusBM, models.StatusB0}
	familyNoPEN      = statusFamily{models.StatusC1, models.StatusCM, models.StatusC0}
	familyInvalidPEN = statusFamily{models.StatusD1, models.StatusDM, models.StatusD0}
)

func prefixFor(pen models.SubmittedPEN) statusFamily {
	switch {
	case pen.Valid:
		return familyValidPEN
	case pen.Supplied:
		return familyInvalidPEN
	default:
		return familyNoPEN
	}
}
