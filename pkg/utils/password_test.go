package utils_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"gin-oracle-auth/pkg/utils"
)

func TestHashPassword(t *testing.T) {
	const pw = "secret123"

	h1, err := utils.HashPassword(pw)
	require.NoError(t, err)
	h2, err := utils.HashPassword(pw)
	require.NoError(t, err)

	assert.NotEqual(t, pw, h1)
	assert.NotEqual(t, h1, h2, "salt must differ between hashes")

	cost, err := bcrypt.Cost([]byte(h1))
	require.NoError(t, err)
	assert.Equal(t, utils.PasswordCost, cost)
}

func TestCheckPassword(t *testing.T) {
	h, err := utils.HashPassword("secret123")
	require.NoError(t, err)

	assert.True(t, utils.CheckPassword("secret123", h))
	for _, wrong := range []string{"", "secret12", "secret1234", "SECRET123", "secret123 "} {
		assert.False(t, utils.CheckPassword(wrong, h), wrong)
	}
	assert.False(t, utils.CheckPassword("secret123", "not-a-bcrypt-hash"))
}

func TestHashPassword_TooLong(t *testing.T) {
	_, err := utils.HashPassword(strings.Repeat("x", 73))
	assert.ErrorIs(t, err, bcrypt.ErrPasswordTooLong)
}
