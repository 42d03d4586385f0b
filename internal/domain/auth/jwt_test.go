package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTService_RoundTrip(t *testing.T) {
	svc := NewJWTService(DefaultJWTConfig("secret"))

	token, exp, err := svc.GenerateAccessToken("u-1", "ana@example.com", []string{"cashier"}, false)
	require.NoError(t, err)
	assert.True(t, exp.After(time.Now()))

	user, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "u-1", user.UserID)
	assert.Equal(t, "ana@example.com", user.Email)
	assert.Equal(t, []string{"cashier"}, user.Roles)
}

func TestJWTService_RejectsWrongSecret(t *testing.T) {
	issuer := NewJWTService(DefaultJWTConfig("one"))
	validator := NewJWTService(DefaultJWTConfig("two"))

	token, _, err := issuer.GenerateAccessToken("u-1", "", nil, false)
	require.NoError(t, err)

	_, err = validator.ValidateToken(token)
	assert.Error(t, err)
}

func TestJWTService_RejectsExpired(t *testing.T) {
	cfg := DefaultJWTConfig("secret")
	cfg.AccessTokenTTL = -time.Minute
	svc := NewJWTService(cfg)

	token, _, err := svc.GenerateAccessToken("u-1", "", nil, false)
	require.NoError(t, err)

	_, err = svc.ValidateToken(token)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)
}

func TestJWTService_FallsBackToSubject(t *testing.T) {
	cfg := DefaultJWTConfig("secret")
	claims := jwt.RegisteredClaims{
		Issuer:    cfg.Issuer,
		Subject:   "svc-import",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(cfg.Secret))
	require.NoError(t, err)

	user, err := NewJWTService(cfg).ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "svc-import", user.UserID)
}

func TestJWTService_RejectsNoneAlgorithm(t *testing.T) {
	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"uid": "u-1", "iss": "salesledger"}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = NewJWTService(DefaultJWTConfig("secret")).ValidateToken(token)
	assert.Error(t, err)
}
