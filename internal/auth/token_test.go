package auth

import (
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func signToken(t *testing.T, method jwt.SigningMethod, claims Claims, secret string) string {
	t.Helper()
	token := jwt.NewWithClaims(method, claims)
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func TestParseToken(t *testing.T) {
	claims := Claims{
		SubjectID: "svc-ticketing",
		Role:      RoleService,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	tokenStr := signToken(t, jwt.SigningMethodHS256, claims, testSecret)

	verifier := NewTokenVerifier(testSecret)
	parsed, err := verifier.ParseToken(tokenStr)
	require.NoError(t, err)
	assert.Equal(t, "svc-ticketing", parsed.SubjectID)
	assert.Equal(t, RoleService, parsed.Role)
}

func TestParseTokenWrongSecret(t *testing.T) {
	tokenStr := signToken(t, jwt.SigningMethodHS256, Claims{SubjectID: "u1", Role: RoleStaff}, "other-secret")

	verifier := NewTokenVerifier(testSecret)
	_, err := verifier.ParseToken(tokenStr)
	assert.Error(t, err)
}

func TestParseTokenExpired(t *testing.T) {
	claims := Claims{
		SubjectID: "u1",
		Role:      RoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	}
	tokenStr := signToken(t, jwt.SigningMethodHS256, claims, testSecret)

	verifier := NewTokenVerifier(testSecret)
	_, err := verifier.ParseToken(tokenStr)
	assert.Error(t, err)
}
