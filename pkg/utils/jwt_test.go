package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTManager_GenerateAndParse(t *testing.T) {
	m := NewJWTManager("test-secret", "chatbot-test")

	pair, err := m.GenerateTokenPair("user-1", "alice@example.com", 15*time.Minute, 7*24*time.Hour)
	require.NoError(t, err)
	require.NotEmpty(t, pair.AccessToken)
	require.NotEmpty(t, pair.RefreshToken)

	claims, err := m.ParseToken(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "alice@example.com", claims.Email)
	assert.Equal(t, "access", claims.Type)
	assert.Equal(t, "chatbot-test", claims.Issuer)

	refreshClaims, err := m.ParseToken(pair.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, "refresh", refreshClaims.Type)
}

func TestJWTManager_ParseExpired(t *testing.T) {
	m := NewJWTManager("test-secret", "chatbot-test")

	token, err := m.GenerateToken("user-1", "alice@example.com", "access", -time.Minute)
	require.NoError(t, err)

	_, err = m.ParseToken(token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestJWTManager_ParseWrongSecret(t *testing.T) {
	m := NewJWTManager("secret-a", "chatbot-test")
	other := NewJWTManager("secret-b", "chatbot-test")

	token, err := m.GenerateToken("user-1", "alice@example.com", "access", time.Minute)
	require.NoError(t, err)

	_, err = other.ParseToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestRandomToken(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 10; i++ {
		tok, err := RandomToken(32)
		require.NoError(t, err)
		assert.Len(t, tok, 32)
		assert.False(t, seen[tok], "tokens should not repeat")
		seen[tok] = true
		for _, r := range tok {
			assert.Contains(t, tokenCharset, string(r))
		}
	}
}
