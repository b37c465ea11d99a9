// Package testauth provides a fake token issuer for tests and local
// development. It mints RS256 tokens and serves the matching JWKS document
// from an in-process HTTP server, so token verification can be exercised
// end to end without a real identity provider.
//
// This package should NEVER be used in production code.
package testauth

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Issuer is a fake identity provider. The zero value is not usable; build
// one with NewIssuer and Close it when done.
type Issuer struct {
	Audience   string
	RolesClaim string

	mu     sync.RWMutex
	key    *rsa.PrivateKey
	keyID  string
	server *httptest.Server

	fetches atomic.Int64
}

// NewIssuer generates a signing key pair and starts the JWKS server.
func NewIssuer(audience, rolesClaim string) (*Issuer, error) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return nil, err
	}

	issuer := &Issuer{
		Audience:   audience,
		RolesClaim: rolesClaim,
		key:        key,
		keyID:      newKeyID(),
	}
	issuer.server = httptest.NewServer(http.HandlerFunc(issuer.serveJWKS))
	return issuer, nil
}

func (i *Issuer) Close() {
	i.server.Close()
}

// URL is the issuer identifier, used as the expected iss claim.
func (i *Issuer) URL() string {
	return i.server.URL
}

func (i *Issuer) JWKSURL() string {
	return i.server.URL + "/.well-known/jwks.json"
}

// KeyID returns the kid of the current signing key.
func (i *Issuer) KeyID() string {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.keyID
}

// FetchCount reports how many times the JWKS document has been served.
// Useful for asserting cache and rate-limit behavior.
func (i *Issuer) FetchCount() int64 {
	return i.fetches.Load()
}

// Rotate replaces the signing key pair, simulating issuer key rotation.
// Tokens minted before Rotate no longer verify against the served JWKS.
func (i *Issuer) Rotate() error {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return err
	}
	i.mu.Lock()
	i.key = key
	i.keyID = newKeyID()
	i.mu.Unlock()
	return nil
}

// TokenOptions controls the minted token. Zero values fall back to issuer
// defaults; set them explicitly to mint deliberately broken tokens.
type TokenOptions struct {
	Subject   string
	Roles     []string
	Audience  string
	Issuer    string
	KeyID     string
	ExpiresIn time.Duration
	// SignWith overrides the signing key, for invalid-signature cases.
	SignWith *rsa.PrivateKey
}

// Token mints a signed RS256 token.
func (i *Issuer) Token(opts TokenOptions) (string, error) {
	i.mu.RLock()
	key := i.key
	keyID := i.keyID
	i.mu.RUnlock()

	if opts.SignWith != nil {
		key = opts.SignWith
	}
	if opts.KeyID != "" {
		keyID = opts.KeyID
	}
	audience := opts.Audience
	if audience == "" {
		audience = i.Audience
	}
	issuerURL := opts.Issuer
	if issuerURL == "" {
		issuerURL = i.server.URL
	}
	expiresIn := opts.ExpiresIn
	if expiresIn == 0 {
		expiresIn = time.Hour
	}
	subject := opts.Subject
	if subject == "" {
		subject = "test-user"
	}

	now := time.Now()
	claims := jwt.MapClaims{
		"sub": subject,
		"aud": audience,
		"iss": issuerURL,
		"iat": jwt.NewNumericDate(now),
		"exp": jwt.NewNumericDate(now.Add(expiresIn)),
	}
	if opts.Roles != nil {
		claims[i.RolesClaim] = opts.Roles
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = keyID
	return token.SignedString(key)
}

func (i *Issuer) serveJWKS(w http.ResponseWriter, r *http.Request) {
	i.fetches.Add(1)

	i.mu.RLock()
	public := &i.key.PublicKey
	keyID := i.keyID
	i.mu.RUnlock()

	doc := map[string]any{
		"keys": []map[string]string{{
			"kty": "RSA",
			"use": "sig",
			"alg": "RS256",
			"kid": keyID,
			"n":   base64.RawURLEncoding.EncodeToString(public.N.Bytes()),
			"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(public.E)).Bytes()),
		}},
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(doc)
}

func newKeyID() string {
	buf := make([]byte, 8)
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}
