package jwttoken

import (
	"devbank/internal/platform/middleware"
)

// ToMiddlewareClaims converts token claims into the middleware's view.
func ToMiddlewareClaims(claims *Claims) *middleware.OperatorClaims {
	return &middleware.OperatorClaims{
		Operator: claims.Operator,
		JTI:      claims.ID,
	}
}

// JWTServiceAdapter adapts JWTService to the middleware validator interface.
type JWTServiceAdapter struct {
	service *JWTService
}

func NewJWTServiceAdapter(service *JWTService) *JWTServiceAdapter {
	return &JWTServiceAdapter{service: service}
}

func (a *JWTServiceAdapter) ValidateToken(tokenString string) (*middleware.OperatorClaims, error) {
	claims, err := a.service.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}
	return ToMiddlewareClaims(claims), nil
}
