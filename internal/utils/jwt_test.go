package utils

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAccessTokenClaims(t *testing.T) {
	const secret = "test-secret"
	tok, err := NewAccessToken(secret, 42, "LIBRARIAN", 15)
	require.NoError(t, err)
	require.NotEmpty(t, tok.Token)

	parsed, err := jwt.Parse(tok.Token, func(tk *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	})
	require.NoError(t, err)
	require.True(t, parsed.Valid)

	claims, ok := parsed.Claims.(jwt.MapClaims)
	require.True(t, ok)
	assert.Equal(t, float64(42), claims["sub"])
	assert.Equal(t, "LIBRARIAN", claims["role"])

	exp := int64(claims["exp"].(float64))
	assert.InDelta(t, time.Now().Add(15*time.Minute).Unix(), exp, 5)
}

func TestNewAccessTokenRejectsWrongSecret(t *testing.T) {
	tok, err := NewAccessToken("secret-a", 1, "STUDENT", 5)
	require.NoError(t, err)

	_, err = jwt.Parse(tok.Token, func(tk *jwt.Token) (interface{}, error) {
		return []byte("secret-b"), nil
	})
	assert.Error(t, err)
}

func TestNewRefreshToken(t *testing.T) {
	a, err := NewRefreshToken(7)
	require.NoError(t, err)
	b, err := NewRefreshToken(7)
	require.NoError(t, err)

	assert.Len(t, a.Raw, 96) // 48 random bytes, hex encoded
	assert.NotEqual(t, a.Raw, b.Raw)
	assert.WithinDuration(t, time.Now().UTC().Add(7*24*time.Hour), a.Exp, 5*time.Second)
}

func TestHashRefreshRaw(t *testing.T) {
	h1 := HashRefreshRaw("some-token")
	h2 := HashRefreshRaw("some-token")
	h3 := HashRefreshRaw("other-token")

	assert.Len(t, h1, 64) // sha256 hex
	assert.Equal(t, h1, h2)
	assert.NotEqual(t, h1, h3)
}
