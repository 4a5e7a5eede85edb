package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("test-secret")

func mintToken(t *testing.T, sub string, ttl time.Duration) string {
	t.Helper()
	now := time.Now()
	tok, err := AccessClaims{
		Sub: sub,
		Iat: now.Unix(),
		Exp: now.Add(ttl).Unix(),
	}.SignedString(testSecret)
	require.NoError(t, err)
	return tok
}

func TestTokenRoundTrip(t *testing.T) {
	tok := mintToken(t, "42", time.Hour)

	claims, err := ParseAndValidate(tok, testSecret)
	require.NoError(t, err)

	id, err := claims.UserID()
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)
}

func TestTokenWrongSecret(t *testing.T) {
	tok := mintToken(t, "42", time.Hour)

	_, err := ParseAndValidate(tok, []byte("other-secret"))
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestTokenExpired(t *testing.T) {
	tok := mintToken(t, "42", -time.Minute)

	_, err := ParseAndValidate(tok, testSecret)
	assert.Error(t, err)
}

func TestTokenMalformed(t *testing.T) {
	for _, tok := range []string{"", "abc", "a.b", "a.b.c.d"} {
		_, err := ParseAndValidate(tok, testSecret)
		assert.Error(t, err, "token %q", tok)
	}
}

func TestTokenBadSubject(t *testing.T) {
	for _, sub := range []string{"", "abc", "-1", "0"} {
		tok := mintToken(t, sub, time.Hour)
		claims, err := ParseAndValidate(tok, testSecret)
		require.NoError(t, err)

		_, err = claims.UserID()
		assert.ErrorIs(t, err, ErrTokenInvalid, "subject %q", sub)
	}
}
