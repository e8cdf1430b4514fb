package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHMACVerifierRoundTrip(t *testing.T) {
	secret := "testsecret123456789012345678901234"
	raw, err := MintHS256(secret, map[string]interface{}{
		"sub":       "u1",
		"account":   "acct-1",
		"superuser": true,
	})
	require.NoError(t, err)

	v := NewHMACVerifier(secret)
	tok, err := v.Verify(context.Background(), raw)
	require.NoError(t, err)

	var claims map[string]interface{}
	require.NoError(t, tok.Claims(&claims))
	require.Equal(t, "u1", claims["sub"])
	require.Equal(t, "acct-1", claims["account"])
	require.Equal(t, true, claims["superuser"])
}

func TestHMACVerifierRejectsWrongSecret(t *testing.T) {
	raw, err := MintHS256("secret-a", map[string]interface{}{"sub": "u1"})
	require.NoError(t, err)

	_, err = NewHMACVerifier("secret-b").Verify(context.Background(), raw)
	require.Error(t, err)
}

func TestInsecureVerifierParsesClaimsWithoutSignatureCheck(t *testing.T) {
	raw, err := MintHS256("whatever", map[string]interface{}{"sub": "u1"})
	require.NoError(t, err)

	tok, err := NewInsecureVerifier().Verify(context.Background(), raw)
	require.NoError(t, err)
	var claims map[string]interface{}
	require.NoError(t, tok.Claims(&claims))
	require.Equal(t, "u1", claims["sub"])
}

func TestInsecureVerifierRejectsGarbage(t *testing.T) {
	_, err := NewInsecureVerifier().Verify(context.Background(), "not-a-jwt")
	require.Error(t, err)
}
