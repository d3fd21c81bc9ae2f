package jwttoken

import (
	authmw "penmatch/pkg/platform/middleware/auth"
)

var _ authmw.JWTValidator = Validator{}

// Validator exposes a JWTService to the auth middleware, which only sees the
// caller identity and its scopes.
type Validator struct {
	service *JWTService
}

func NewValidator(service *JWTService) Validator {
	return Validator{service: service}
}

func (v Validator) ValidateToken(tokenString string) (*authmw.JWTClaims, error) {
	claims, err := v.service.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}
	return &authmw.JWTClaims{
		ClientID: claims.ClientID,
		Scopes:   claims.Scopes(),
		JTI:      claims.ID,
	}, nil
}
