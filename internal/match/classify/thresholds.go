package classify

import (
	dErrors "penmatch/pkg/domain-errors"
)

// Default thresholds on the 0-100 composite scale.
const (
	DefaultAutoConfirm   = 75.0
	DefaultPossibleMatch = 50.0
	DefaultMargin        = 10.0
)

// Thresholds drive the decision procedure.
type Thresholds struct {
	// AutoConfirm is the lowest top score that may be confirmed without review.
	AutoConfirm float64
	// PossibleMatch is the lowest top score that is routed to review.
	PossibleMatch float64
	// Margin is the lead the top candidate needs over the runner-up to confirm.
	Margin float64
}

// DefaultThresholds returns the documented defaults.
func DefaultThresholds() Thresholds {
	return Thresholds{
		AutoConfirm:   DefaultAutoConfirm,
		PossibleMatch: DefaultPossibleMatch,
		Margin:        DefaultMargin,
	}
}

// Validate requires 0 <= PossibleMatch <= AutoConfirm <= 100 and a margin
// within [0, 100].
func (t Thresholds) Validate() error {
	if t.AutoConfirm < 0 || t.AutoConfirm > 100 {
		return dErrors.Configuration("auto-confirm threshold must be within [0, 100], got %v", t.AutoConfirm)
	}
	if t.PossibleMatch < 0 || t.PossibleMatch > 100 {
		return dErrors.Configuration("possible-match threshold must be within [0, 100], got %v", t.PossibleMatch)
	}
	if t.PossibleMatch > t.AutoConfirm {
		return dErrors.Configuration("possible-match threshold %v exceeds auto-confirm threshold %v", t.PossibleMatch, t.AutoConfirm)
	}
	if t.Margin < 0 || t.Margin > 100 {
		return dErrors.Configuration("ambiguity margin must be within [0, 100], got %v", t.Margin)
	}
	return nil
}
