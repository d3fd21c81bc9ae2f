package handler

import (
	"time"

	"penmatch/internal/match/models"
	dErrors "penmatch/pkg/domain-errors"
)

// MatchResponse is the wire form of a MatchResult. It is shared by the HTTP,
// Kafka and NATS transports.
type MatchResponse struct {
	CorrelationID string               `json:"correlation_id"`
	Algorithm     models.AlgorithmCode `json:"algorithm"`
	Status        models.MatchStatus   `json:"status"`
	Class         string               `json:"class"`
	MatchedPEN    string               `json:"matched_pen,omitempty"`
	MergedFrom    string               `json:"merged_from,omitempty"`
	Candidates    []CandidateResponse  `json:"candidates"`
	ProcessedAt   time.Time            `json:"processed_at"`
}

// CandidateResponse summarizes one ranked candidate.
type CandidateResponse struct {
	PEN    string            `json:"pen"`
	Score  float64           `json:"score"`
	Fields map[string]string `json:"fields"`
	Vetoed bool              `json:"vetoed,omitempty"`
}

// FromResult builds the response for result.
func FromResult(result *models.MatchResult) *MatchResponse {
	candidates := make([]CandidateResponse, 0, len(result.Outcomes))
	for _, o := range result.Outcomes {
		candidates = append(candidates, CandidateResponse{
			PEN:    o.PEN,
			Score:  o.Score,
			Fields: o.Fields.Levels(),
			Vetoed: o.Vetoed,
		})
	}
	return &MatchResponse{
		CorrelationID: result.CorrelationID,
		Algorithm:     result.Algorithm,
		Status:        result.Status,
		Class:         string(result.Status.Class()),
		MatchedPEN:    result.MatchedPEN,
		MergedFrom:    result.MergedFrom,
		Candidates:    candidates,
		ProcessedAt:   result.ProcessedAt,
	}
}

// ErrorEnvelope is the message-bus reply for a failed request.
type ErrorEnvelope struct {
	CorrelationID    string `json:"correlation_id"`
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
	Retryable        bool   `json:"retryable"`
}

// ErrorFrom builds the envelope for err. Lookup failures are retryable.
func ErrorFrom(correlationID string, err error) *ErrorEnvelope {
	code := dErrors.CodeOf(err)
	env := &ErrorEnvelope{
		CorrelationID: correlationID,
		Error:         string(code),
		Retryable:     code == dErrors.CodeLookupFailure,
	}
	if code != dErrors.CodeInternal {
		env.ErrorDescription = dErrors.MessageOf(err)
	}
	return env
}
