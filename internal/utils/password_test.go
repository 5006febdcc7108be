package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"golang.org/x/crypto/bcrypt"
)

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := HashPassword("hunter2", bcrypt.MinCost)
	require.NoError(t, err)
	require.NotEqual(t, "hunter2", hash)

	assert.True(t, VerifyPassword(hash, "hunter2"))
	assert.False(t, VerifyPassword(hash, "hunter3"))
	assert.False(t, VerifyPassword("not-a-bcrypt-hash", "hunter2"))
}
