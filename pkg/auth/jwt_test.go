package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTService_RoundTrip(t *testing.T) {
	svc, err := NewJWTService("secret", 1)
	require.NoError(t, err)

	token, err := svc.GenerateToken(42, RoleStudent)
	require.NoError(t, err)

	claims, err := svc.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, uint(42), claims.UserID)
	assert.Equal(t, RoleStudent, claims.Role)
	assert.Equal(t, "42", claims.Subject)
}

func TestJWTService_RejectsForeignSignature(t *testing.T) {
	issuerSvc, _ := NewJWTService("other-secret", 1)
	svc, _ := NewJWTService("secret", 1)

	token, err := issuerSvc.GenerateToken(1, RoleAdmin)
	require.NoError(t, err)

	_, err = svc.ParseToken(token)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestJWTService_Expired(t *testing.T) {
	svc, _ := NewJWTService("secret", 1)
	claims := &JWTCustomClaims{
		UserID: 1,
		Role:   RoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	require.NoError(t, err)

	_, err = svc.ParseToken(token)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestJWTService_Malformed(t *testing.T) {
	svc, _ := NewJWTService("secret", 1)

	_, err := svc.ParseToken("not-a-token")
	assert.ErrorIs(t, err, ErrTokenMalformed)
}

func TestJWTService_UnknownRole(t *testing.T) {
	svc, _ := NewJWTService("secret", 1)

	_, err := svc.GenerateToken(1, "superuser")
	assert.Error(t, err)

	_, err = NewJWTService("", 1)
	assert.Error(t, err, "Пустой секрет недопустим")
}
