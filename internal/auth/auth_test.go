package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := HashPassword("hunter2")
	require.NoError(t, err)

	assert.True(t, CheckPassword("hunter2", hash))
	assert.False(t, CheckPassword("wrong", hash))
}

func TestLoginAndValidate(t *testing.T) {
	hash, err := HashPassword("hunter2")
	require.NoError(t, err)

	svc := NewService("test-secret", hash, time.Hour)

	token, err := svc.Login("hunter2")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.True(t, claims.IsAdmin)
	assert.Equal(t, "admin", claims.Subject)
}

func TestLoginWrongPassword(t *testing.T) {
	hash, err := HashPassword("hunter2")
	require.NoError(t, err)

	svc := NewService("test-secret", hash, time.Hour)
	_, err = svc.Login("letmein")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLoginWithoutConfiguredHash(t *testing.T) {
	svc := NewService("test-secret", "", time.Hour)
	_, err := svc.Login("")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestValidateGarbageToken(t *testing.T) {
	svc := NewService("test-secret", "", time.Hour)
	_, err := svc.ValidateToken("not.a.token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateTokenFromOtherSecret(t *testing.T) {
	hash, err := HashPassword("hunter2")
	require.NoError(t, err)

	issuer := NewService("secret-a", hash, time.Hour)
	token, err := issuer.Login("hunter2")
	require.NoError(t, err)

	verifier := NewService("secret-b", hash, time.Hour)
	_, err = verifier.ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
