package auth

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"testing"
	"time"

	"github.com/gatherly/server/internal/testauth"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

const (
	testAudience = "https://api.test"
	testRoles    = "https://api.test/roles"
)

func newTestValidator(t *testing.T) (*Validator, *testauth.Issuer) {
	t.Helper()
	issuer := newTestIssuer(t)
	keys := NewKeySet(issuer.JWKSURL(), 60, time.Second)
	return NewValidator(keys, testAudience, issuer.URL()), issuer
}

func TestVerifyValidToken(t *testing.T) {
	validator, issuer := newTestValidator(t)

	token, err := issuer.Token(testauth.TokenOptions{Subject: "auth0|user-1", Roles: []string{"admin"}})
	require.NoError(t, err)

	claims, err := validator.Verify(context.Background(), token)
	require.NoError(t, err)
	require.Equal(t, "auth0|user-1", claims.Subject)
	require.Equal(t, issuer.URL(), claims.Issuer)
	require.Contains(t, claims.Audience, testAudience)
	require.Contains(t, claims.Custom, testRoles)
}

func TestVerifyMissingToken(t *testing.T) {
	validator, _ := newTestValidator(t)
	_, err := validator.Verify(context.Background(), "  ")
	require.ErrorIs(t, err, ErrMissingToken)
}

func TestVerifyMalformedToken(t *testing.T) {
	validator, _ := newTestValidator(t)
	_, err := validator.Verify(context.Background(), "not-a-jwt")
	require.ErrorIs(t, err, ErrMalformedToken)
}

func TestVerifyWrongAudience(t *testing.T) {
	validator, issuer := newTestValidator(t)

	token, err := issuer.Token(testauth.TokenOptions{Audience: "https://other.test"})
	require.NoError(t, err)

	_, err = validator.Verify(context.Background(), token)
	require.ErrorIs(t, err, ErrInvalidAudience)
}

func TestVerifyWrongIssuer(t *testing.T) {
	validator, issuer := newTestValidator(t)

	token, err := issuer.Token(testauth.TokenOptions{Issuer: "https://evil.test"})
	require.NoError(t, err)

	_, err = validator.Verify(context.Background(), token)
	require.ErrorIs(t, err, ErrInvalidIssuer)
}

func TestVerifyExpiredToken(t *testing.T) {
	validator, issuer := newTestValidator(t)

	token, err := issuer.Token(testauth.TokenOptions{ExpiresIn: -time.Hour})
	require.NoError(t, err)

	_, err = validator.Verify(context.Background(), token)
	require.ErrorIs(t, err, ErrTokenExpired)
}

func TestVerifyWrongSigningKey(t *testing.T) {
	validator, issuer := newTestValidator(t)

	rogue, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	// Same kid as the published key, signed by someone else entirely.
	token, err := issuer.Token(testauth.TokenOptions{SignWith: rogue})
	require.NoError(t, err)

	_, err = validator.Verify(context.Background(), token)
	require.ErrorIs(t, err, ErrInvalidSignature)
}

func TestVerifyUnknownKeyID(t *testing.T) {
	validator, issuer := newTestValidator(t)

	token, err := issuer.Token(testauth.TokenOptions{KeyID: "retired-kid"})
	require.NoError(t, err)

	_, err = validator.Verify(context.Background(), token)
	require.ErrorIs(t, err, ErrKeyNotFound)
}

func TestVerifyRejectsSymmetricAlgorithm(t *testing.T) {
	validator, issuer := newTestValidator(t)

	// HS256 token signed with the audience string: the classic
	// algorithm-confusion probe. Must be rejected on algorithm alone.
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "user-1",
		"aud": testAudience,
		"iss": issuer.URL(),
		"iat": jwt.NewNumericDate(now),
		"exp": jwt.NewNumericDate(now.Add(time.Hour)),
	})
	token.Header["kid"] = issuer.KeyID()
	signed, err := token.SignedString([]byte(testAudience))
	require.NoError(t, err)

	_, err = validator.Verify(context.Background(), signed)
	require.ErrorIs(t, err, ErrUnsupportedAlgorithm)
}

func TestVerifyAcrossKeyRotation(t *testing.T) {
	validator, issuer := newTestValidator(t)

	before, err := issuer.Token(testauth.TokenOptions{})
	require.NoError(t, err)
	_, err = validator.Verify(context.Background(), before)
	require.NoError(t, err)

	require.NoError(t, issuer.Rotate())

	after, err := issuer.Token(testauth.TokenOptions{})
	require.NoError(t, err)
	_, err = validator.Verify(context.Background(), after)
	require.NoError(t, err)

	// The pre-rotation token's kid is no longer published.
	_, err = validator.Verify(context.Background(), before)
	require.Error(t, err)
}

func TestTokenFromHeader(t *testing.T) {
	if _, err := TokenFromHeader("nope"); err == nil {
		t.Fatalf("expected error for malformed header")
	}
	if _, err := TokenFromHeader(""); err == nil {
		t.Fatalf("expected error for empty header")
	}
	token, err := TokenFromHeader("Bearer abc.def.ghi")
	require.NoError(t, err)
	require.Equal(t, "abc.def.ghi", token)

	token, err = TokenFromHeader("bearer abc")
	require.NoError(t, err)
	require.Equal(t, "abc", token)
}
