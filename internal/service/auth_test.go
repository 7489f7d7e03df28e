package service_test

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pageza/larder/backend/internal/models"
	"github.com/pageza/larder/backend/internal/service"
)

func TestTokenRoundTrip(t *testing.T) {
	auth := service.NewAuthService("test-secret")
	user := &models.User{ID: uuid.New(), Username: "chef"}

	token, err := auth.GenerateToken(user)
	require.NoError(t, err)

	claims, err := auth.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, "chef", claims.Username)
}

func TestValidateTokenRejectsForeignSecret(t *testing.T) {
	token, err := service.NewAuthService("other").GenerateToken(&models.User{ID: uuid.New()})
	require.NoError(t, err)

	_, err = service.NewAuthService("test-secret").ValidateToken(token)
	assert.ErrorIs(t, err, service.ErrInvalidToken)
}

func TestValidateTokenAcceptsSubjectOnly(t *testing.T) {
	id := uuid.New()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   id.String(),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
	})
	signed, err := token.SignedString([]byte("test-secret"))
	require.NoError(t, err)

	claims, err := service.NewAuthService("test-secret").ValidateToken(signed)
	require.NoError(t, err)
	assert.Equal(t, id, claims.UserID)
}

func TestValidateTokenRejectsExpired(t *testing.T) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   uuid.NewString(),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
	})
	signed, err := token.SignedString([]byte("test-secret"))
	require.NoError(t, err)

	_, err = service.NewAuthService("test-secret").ValidateToken(signed)
	assert.ErrorIs(t, err, service.ErrInvalidToken)
}
