package auth

import (
	"errors"

	jwt "github.com/golang-jwt/jwt/v5"
)

// Role enumerates caller roles as issued by the external auth service.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleStaff   Role = "staff"
	RoleService Role = "service"
)

// Claims describes the JWT payload issued by the auth collaborator.
type Claims struct {
	SubjectID string `json:"sub"`
	Role      Role   `json:"role"`
	jwt.RegisteredClaims
}

// TokenVerifier validates JWT tokens. Issuance belongs to the external auth
// service; this engine only verifies HS256 signatures and role claims.
type TokenVerifier struct {
	secret []byte
}

// NewTokenVerifier builds a verifier.
func NewTokenVerifier(secret string) *TokenVerifier {
	return &TokenVerifier{secret: []byte(secret)}
}

// ParseToken validates and returns claims.
func (tv *TokenVerifier) ParseToken(tokenStr string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return tv.secret, nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, errors.New("invalid token claims")
	}
	return claims, nil
}
