package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestHashAndVerify(t *testing.T) {
	h := PasswordHasher{Cost: bcrypt.MinCost}

	hash, err := h.Hash("pw12345")
	require.NoError(t, err)

	assert.NotEqual(t, "pw12345", hash)
	assert.True(t, h.Verify("pw12345", hash))
	assert.False(t, h.Verify("pw12346", hash))
	assert.False(t, h.Verify("pw12345", "not-a-hash"))
}

func TestHashRejectsLongPassword(t *testing.T) {
	h := PasswordHasher{Cost: bcrypt.MinCost}

	_, err := h.Hash(strings.Repeat("x", 73))
	assert.ErrorIs(t, err, ErrPasswordTooLong)
}
