package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashPassword_Verify(t *testing.T) {
	hash, err := HashPassword("SecurePass123")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(hash, "$argon2id$v=19$m=65536,t=1,p=4$"))

	ok, err := VerifyPassword("SecurePass123", hash)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = VerifyPassword("WrongPass123", hash)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestHashPassword_UniqueSalts(t *testing.T) {
	h1, err := HashPassword("same-password")
	require.NoError(t, err)
	h2, err := HashPassword("same-password")
	require.NoError(t, err)

	assert.NotEqual(t, h1, h2)
}

func TestHashPassword_Unicode(t *testing.T) {
	hash, err := HashPassword("şifre-パスワード-🔐")
	require.NoError(t, err)

	ok, err := VerifyPassword("şifre-パスワード-🔐", hash)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestVerifyPassword_InvalidHashFormat(t *testing.T) {
	tests := []struct {
		name    string
		hash    string
		wantErr error
	}{
		{"empty", "", ErrInvalidHash},
		{"bcrypt", "$2a$10$abcdefghijklmnopqrstuv", ErrInvalidHash},
		{"bad params", "$argon2id$v=19$m=x,t=1,p=4$c2FsdA$aGFzaA", ErrInvalidHash},
		{"bad salt", "$argon2id$v=19$m=65536,t=1,p=4$!!!$aGFzaA", ErrInvalidHash},
		{"old version", "$argon2id$v=16$m=65536,t=1,p=4$c2FsdA$aGFzaA", ErrIncompatibleVersion},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ok, err := VerifyPassword("password", tc.hash)
			assert.ErrorIs(t, err, tc.wantErr)
			assert.False(t, ok)
		})
	}
}
