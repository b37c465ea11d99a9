package auth

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"sync"
	"time"

	"github.com/gatherly/server/internal/metrics"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"
)

// KeySet caches the issuer's published RSA signing keys, keyed by kid.
// It is process-wide state shared by all requests: lookups are read-mostly,
// refreshes are rate-limited globally, and concurrent cache misses reuse a
// single in-flight fetch instead of each hitting the issuer.
type KeySet struct {
	jwksURL string
	client  *http.Client
	limiter *rate.Limiter
	group   singleflight.Group

	mu   sync.RWMutex
	keys map[string]*rsa.PublicKey
}

// NewKeySet builds a key set cache for the given JWKS document URL.
// fetchesPerMinute bounds refreshes process-wide; timeout bounds each fetch.
func NewKeySet(jwksURL string, fetchesPerMinute int, timeout time.Duration) *KeySet {
	if fetchesPerMinute <= 0 {
		fetchesPerMinute = 5
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &KeySet{
		jwksURL: jwksURL,
		client:  &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(fetchesPerMinute)), fetchesPerMinute),
		keys:    make(map[string]*rsa.PublicKey),
	}
}

// GetSigningKey resolves a kid to its RSA public key, fetching the JWKS
// document on a cache miss. Unknown kids after a fresh fetch return
// ErrKeyNotFound; fetch failures and rate-limit exhaustion return errors
// wrapping ErrKeyUnavailable.
func (s *KeySet) GetSigningKey(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	if kid == "" {
		return nil, ErrUnknownKeyID
	}

	s.mu.RLock()
	key, ok := s.keys[kid]
	s.mu.RUnlock()
	if ok {
		return key, nil
	}

	if err := s.refresh(ctx); err != nil {
		return nil, err
	}

	s.mu.RLock()
	key, ok = s.keys[kid]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: kid %q", ErrKeyNotFound, kid)
	}
	return key, nil
}

// refresh fetches the JWKS document once per group of concurrent callers.
// The rate limiter is consulted inside the singleflight callback so a
// burst of misses costs one limiter token, not one per caller.
func (s *KeySet) refresh(ctx context.Context) error {
	_, err, _ := s.group.Do("refresh", func() (any, error) {
		if !s.limiter.Allow() {
			metrics.JWKSFetches.WithLabelValues("rate_limited").Inc()
			return nil, fmt.Errorf("%w: refresh rate limit exceeded", ErrKeyUnavailable)
		}
		keys, err := s.fetch(ctx)
		if err != nil {
			metrics.JWKSFetches.WithLabelValues("error").Inc()
			return nil, err
		}
		metrics.JWKSFetches.WithLabelValues("ok").Inc()
		s.mu.Lock()
		s.keys = keys
		s.mu.Unlock()
		return nil, nil
	})
	return err
}

type jwksDocument struct {
	Keys []jsonWebKey `json:"keys"`
}

type jsonWebKey struct {
	Kty string `json:"kty"`
	Kid string `json:"kid"`
	Use string `json:"use"`
	Alg string `json:"alg"`
	N   string `json:"n"`
	E   string `json:"e"`
}

func (s *KeySet) fetch(ctx context.Context) (map[string]*rsa.PublicKey, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.jwksURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", ErrKeyUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: fetch %s: %v", ErrKeyUnavailable, s.jwksURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: fetch %s: status %d", ErrKeyUnavailable, s.jwksURL, resp.StatusCode)
	}

	var doc jwksDocument
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: decode jwks: %v", ErrKeyUnavailable, err)
	}

	keys := make(map[string]*rsa.PublicKey, len(doc.Keys))
	for _, jwk := range doc.Keys {
		if jwk.Kty != "RSA" || jwk.Kid == "" {
			continue
		}
		if jwk.Use != "" && jwk.Use != "sig" {
			continue
		}
		key, err := jwk.publicKey()
		if err != nil {
			// Skip unparseable entries rather than poisoning the whole set.
			continue
		}
		keys[jwk.Kid] = key
	}
	if len(keys) == 0 {
		return nil, fmt.Errorf("%w: jwks document has no usable RSA keys", ErrKeyUnavailable)
	}
	return keys, nil
}

func (k jsonWebKey) publicKey() (*rsa.PublicKey, error) {
	nBytes, err := base64.RawURLEncoding.DecodeString(k.N)
	if err != nil {
		return nil, fmt.Errorf("decode modulus: %w", err)
	}
	eBytes, err := base64.RawURLEncoding.DecodeString(k.E)
	if err != nil {
		return nil, fmt.Errorf("decode exponent: %w", err)
	}

	e := new(big.Int).SetBytes(eBytes)
	if !e.IsInt64() || e.Int64() <= 0 {
		return nil, fmt.Errorf("invalid exponent")
	}
	return &rsa.PublicKey{
		N: new(big.Int).SetBytes(nBytes),
		E: int(e.Int64()),
	}, nil
}
