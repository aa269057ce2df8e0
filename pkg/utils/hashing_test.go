package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashPassword(t *testing.T) {
	hash, err := HashPassword("secret1")
	require.NoError(t, err)
	assert.NotEqual(t, "secret1", hash)

	assert.NoError(t, ComparePasswords(hash, "secret1"))
	assert.Error(t, ComparePasswords(hash, "secret2"))
}

func TestHashPassword_TooLong(t *testing.T) {
	_, err := HashPassword(strings.Repeat("a", 73))
	assert.ErrorIs(t, err, ErrPasswordTooLong)

	// 37 two-byte runes: short in characters, long in bytes.
	_, err = HashPassword(strings.Repeat("é", 37))
	assert.ErrorIs(t, err, ErrPasswordTooLong)

	_, err = HashPassword(strings.Repeat("a", 72))
	assert.NoError(t, err)
}

func TestGenerateSecureToken(t *testing.T) {
	a, err := GenerateSecureToken(10)
	require.NoError(t, err)
	b, err := GenerateSecureToken(10)
	require.NoError(t, err)

	assert.Len(t, a, 16)
	assert.Regexp(t, `^[A-Z2-7]+$`, a)
	assert.NotEqual(t, a, b)

	_, err = GenerateSecureToken(0)
	assert.Error(t, err)
}
