package handler

import (
	"strings"

	"github.com/google/uuid"

	"penmatch/internal/match/models"
	"penmatch/internal/match/normalize"
	dErrors "penmatch/pkg/domain-errors"
)

// Field length limits, checked before any normalization.
const (
	maxNameLength = 100
	maxCodeLength = 20
)

// MatchRequest is the HTTP request body for POST /pen-match.
type MatchRequest struct {
	CorrelationID string `json:"correlation_id"`
	TransactionID string `json:"transaction_id"`
	Surname       string `json:"surname"`
	GivenName     string `json:"given_name"`
	MiddleName    string `json:"middle_name"`
	DateOfBirth   string `json:"date_of_birth"`
	Gender        string `json:"gender"`
	Mincode       string `json:"mincode"`
	LocalID       string `json:"local_id"`
	PostalCode    string `json:"postal_code"`
	PEN           string `json:"pen"`
}

// Validate checks sizes and mandatory fields, and assigns a correlation ID
// when the caller sent none.
// Implements the Validatable interface for httputil.DecodeAndPrepare.
func (r *MatchRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}

	for _, f := range []struct {
		name  string
		value string
		limit int
	}{
		{"surname", r.Surname, maxNameLength},
		{"given_name", r.GivenName, maxNameLength},
		{"middle_name", r.MiddleName, maxNameLength},
		{"date_of_birth", r.DateOfBirth, maxCodeLength},
		{"gender", r.Gender, maxCodeLength},
		{"mincode", r.Mincode, maxCodeLength},
		{"local_id", r.LocalID, maxCodeLength},
		{"postal_code", r.PostalCode, maxCodeLength},
		{"pen", r.PEN, maxCodeLength},
	} {
		if len(f.value) > f.limit {
			return dErrors.Newf(dErrors.CodeValidation, "%s must be at most %d characters", f.name, f.limit)
		}
	}

	if strings.TrimSpace(r.Surname) == "" {
		return dErrors.New(dErrors.CodeValidation, "surname is required")
	}
	if strings.TrimSpace(r.DateOfBirth) == "" {
		return dErrors.New(dErrors.CodeValidation, "date_of_birth is required")
	}
	if !normalize.ParseBirthDate(r.DateOfBirth).Known() {
		return dErrors.New(dErrors.CodeValidation, "date_of_birth is not a valid date")
	}

	r.CorrelationID = strings.TrimSpace(r.CorrelationID)
	if r.CorrelationID == "" {
		r.CorrelationID = uuid.NewString()
	}
	return nil
}

// ToModel converts the validated body to the service request.
func (r *MatchRequest) ToModel() models.MatchRequest {
	return models.MatchRequest{
		CorrelationID: r.CorrelationID,
		Record: models.DemographicRecord{
			Surname:       r.Surname,
			GivenName:     r.GivenName,
			MiddleName:    r.MiddleName,
			DateOfBirth:   r.DateOfBirth,
			Gender:        r.Gender,
			Mincode:       r.Mincode,
			LocalID:       r.LocalID,
			PostalCode:    r.PostalCode,
			SubmittedPEN:  r.PEN,
			TransactionID: r.TransactionID,
		},
	}
}
