package jwttoken

import (
	"barangay/pkg/platform/middleware/auth"
)

func ToMiddlewareClaims(claims *ActorClaims) *auth.ActorClaims {
	return &auth.ActorClaims{
		ActorID: claims.Subject,
		Role:    claims.Role,
	}
}

// ActorTokenAdapter satisfies auth.TokenValidator.
type ActorTokenAdapter struct {
	service *ActorTokenService
}

func NewActorTokenAdapter(service *ActorTokenService) *ActorTokenAdapter {
	return &ActorTokenAdapter{service: service}
}

func (a *ActorTokenAdapter) ValidateToken(tokenString string) (*auth.ActorClaims, error) {
	claims, err := a.service.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}
	return ToMiddlewareClaims(claims), nil
}
