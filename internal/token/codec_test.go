package token

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"go-auth-service/internal/model"
)

func testAccount(secret string) model.Account {
	return model.Account{
		ID:          "7c9e6679-7425-40de-944b-e07fc1f90ae7",
		Email:       "a@x.com",
		Username:    "alice",
		TokenSecret: secret,
	}
}

func TestAccessTokenRoundTrip(t *testing.T) {
	codec := NewCodec(15*time.Minute, 168*time.Hour)
	account := testAccount("access-secret-1")

	signed, err := codec.SignAccess(account)
	require.NoError(t, err)
	require.NotEmpty(t, signed)

	claims, err := codec.VerifyAccess(signed, account.TokenSecret)
	require.NoError(t, err)
	require.Equal(t, account.ID, claims.Subject)
	require.Equal(t, account.Email, claims.Email)
	require.Equal(t, account.Username, claims.Username)
	require.Equal(t, TypeAccess, claims.Type)
}

func TestRefreshTokenRoundTrip(t *testing.T) {
	codec := NewCodec(15*time.Minute, 168*time.Hour)
	account := testAccount("refresh-secret-1")

	signed, err := codec.SignRefresh(account, 3)
	require.NoError(t, err)

	claims, err := codec.VerifyRefresh(signed, account.TokenSecret)
	require.NoError(t, err)
	require.Equal(t, account.ID, claims.Subject)
	require.Equal(t, 3, claims.Version)
	require.Equal(t, TypeRefresh, claims.Type)
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	codec := NewCodec(15*time.Minute, 168*time.Hour)

	// A token signed for one account must never verify under another
	// account's secret.
	signed, err := codec.SignAccess(testAccount("secret-account-a"))
	require.NoError(t, err)

	_, err = codec.VerifyAccess(signed, "secret-account-b")
	require.Error(t, err)
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	codec := NewCodec(-1*time.Minute, -1*time.Minute)
	account := testAccount("expired-secret")

	signed, err := codec.SignAccess(account)
	require.NoError(t, err)

	_, err = codec.VerifyAccess(signed, account.TokenSecret)
	require.Error(t, err)
}

func TestVerifyRejectsWrongTokenType(t *testing.T) {
	codec := NewCodec(15*time.Minute, 168*time.Hour)
	account := testAccount("typ-secret")

	refresh, err := codec.SignRefresh(account, 0)
	require.NoError(t, err)
	access, err := codec.SignAccess(account)
	require.NoError(t, err)

	_, err = codec.VerifyAccess(refresh, account.TokenSecret)
	require.Error(t, err)
	_, err = codec.VerifyRefresh(access, account.TokenSecret)
	require.Error(t, err)
}

func TestPeekDecodesWithoutSecret(t *testing.T) {
	codec := NewCodec(15*time.Minute, 168*time.Hour)
	account := testAccount("peek-secret")

	signed, err := codec.SignRefresh(account, 1)
	require.NoError(t, err)

	peeked, err := codec.Peek(signed)
	require.NoError(t, err)
	require.Equal(t, account.ID, peeked.Subject)
	require.Equal(t, TypeRefresh, peeked.Type)
}

func TestPeekStillDecodesExpiredTokens(t *testing.T) {
	// Peek is structural only; expiry is verify's concern.
	codec := NewCodec(-1*time.Minute, -1*time.Minute)
	account := testAccount("peek-expired-secret")

	signed, err := codec.SignAccess(account)
	require.NoError(t, err)

	peeked, err := codec.Peek(signed)
	require.NoError(t, err)
	require.Equal(t, account.ID, peeked.Subject)
}

func TestPeekRejectsMalformedTokens(t *testing.T) {
	codec := NewCodec(15*time.Minute, 168*time.Hour)

	for _, tokenString := range []string{"", "not-a-token", "a.b", "a.b.c.d"} {
		_, err := codec.Peek(tokenString)
		require.Error(t, err, "token %q", tokenString)
	}
}
