// Package jwttoken issues and validates the operator tokens that gate the
// admin endpoints. Tokens are HS256-signed with the operator's base58 address
// as subject.
package jwttoken

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"devbank/pkg/domain"
	dErrors "devbank/pkg/domain-errors"
)

// Claims represents the JWT claims for operator tokens.
type Claims struct {
	Operator string `json:"operator"`
	jwt.RegisteredClaims
}

// JWTService handles JWT creation and validation.
type JWTService struct {
	signingKey []byte
	issuer     string
	audience   string
}

func NewJWTService(signingKey string, issuer string, audience string) *JWTService {
	return &JWTService{
		signingKey: []byte(signingKey),
		issuer:     issuer,
		audience:   audience,
	}
}

// GenerateOperatorToken mints a token authenticating the operator address.
func (s *JWTService) GenerateOperatorToken(operator domain.Address, expiresIn time.Duration) (string, error) {
	newToken := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Operator: operator.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   operator.String(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiresIn)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    s.issuer,
			Audience:  []string{s.audience},
			ID:        uuid.NewString(),
		},
	})

	signedToken, err := newToken.SignedString(s.signingKey)
	if err != nil {
		return "", err
	}
	return signedToken, nil
}

func (s *JWTService) ValidateToken(tokenString string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return s.signingKey, nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "token has expired")
		}
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}

	if !parsed.Valid {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token claims")
	}
	if claims.Operator == "" {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "token carries no operator identity")
	}

	return claims, nil
}

// ExtractOperatorFromToken validates the token and parses its operator
// address.
func (s *JWTService) ExtractOperatorFromToken(tokenString string) (domain.Address, error) {
	claims, err := s.ValidateToken(tokenString)
	if err != nil {
		return domain.Address{}, err
	}
	operator, err := domain.ParseAddress(claims.Operator)
	if err != nil {
		return domain.Address{}, dErrors.New(dErrors.CodeUnauthorized, "token operator address is invalid")
	}
	return operator, nil
}
