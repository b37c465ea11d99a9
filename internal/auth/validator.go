package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the verified claim set of an accepted token. Produced fresh
// per request, never persisted.
type Claims struct {
	Subject  string
	Issuer   string
	Audience []string
	// Custom holds the full decoded claim map, including any namespaced
	// claims (e.g. the configured role list).
	Custom map[string]any
}

// Validator verifies bearer tokens against a remote key set. The expected
// audience, issuer, and algorithm are pinned at construction.
type Validator struct {
	keys     *KeySet
	audience string
	issuer   string
	parser   *jwt.Parser
}

const signingAlgorithm = "RS256"

func NewValidator(keys *KeySet, audience, issuer string) *Validator {
	return &Validator{
		keys:     keys,
		audience: audience,
		issuer:   issuer,
		parser: jwt.NewParser(
			jwt.WithAudience(audience),
			jwt.WithIssuer(issuer),
			jwt.WithExpirationRequired(),
		),
	}
}

// Verify checks the token's signature, algorithm, audience, issuer, and
// time bounds. Any deviation is an authentication failure; callers must
// never treat a rejection as anonymous access.
func (v *Validator) Verify(ctx context.Context, tokenString string) (*Claims, error) {
	if strings.TrimSpace(tokenString) == "" {
		return nil, ErrMissingToken
	}

	claims := jwt.MapClaims{}
	parsed, err := v.parser.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		// Pin the algorithm before touching key material. Accepting the
		// header's alg would open the usual HS256/RS256 confusion hole.
		if token.Method.Alg() != signingAlgorithm {
			return nil, ErrUnsupportedAlgorithm
		}
		kid, _ := token.Header["kid"].(string)
		return v.keys.GetSigningKey(ctx, kid)
	})
	if err != nil {
		return nil, mapTokenError(err)
	}
	if !parsed.Valid {
		return nil, ErrInvalidToken
	}

	subject, err := claims.GetSubject()
	if err != nil || subject == "" {
		return nil, ErrInvalidToken
	}
	issuer, _ := claims.GetIssuer()
	audience, _ := claims.GetAudience()

	return &Claims{
		Subject:  subject,
		Issuer:   issuer,
		Audience: audience,
		Custom:   map[string]any(claims),
	}, nil
}

// mapTokenError collapses jwt parser errors onto the package taxonomy.
// Key set errors pass through so callers can distinguish an unreachable
// issuer (server-side problem) from a bad token.
func mapTokenError(err error) error {
	switch {
	case errors.Is(err, ErrKeyUnavailable):
		return err
	case errors.Is(err, ErrKeyNotFound), errors.Is(err, ErrUnknownKeyID):
		return err
	case errors.Is(err, ErrUnsupportedAlgorithm):
		return ErrUnsupportedAlgorithm
	case errors.Is(err, jwt.ErrTokenMalformed):
		return ErrMalformedToken
	case errors.Is(err, jwt.ErrTokenExpired), errors.Is(err, jwt.ErrTokenNotValidYet):
		return ErrTokenExpired
	case errors.Is(err, jwt.ErrTokenInvalidAudience):
		return ErrInvalidAudience
	case errors.Is(err, jwt.ErrTokenInvalidIssuer):
		return ErrInvalidIssuer
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return ErrInvalidSignature
	default:
		return ErrInvalidToken
	}
}

// TokenFromHeader extracts the bearer token from an Authorization header.
func TokenFromHeader(authHeader string) (string, error) {
	parts := strings.Fields(authHeader)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", ErrMissingToken
	}
	return strings.TrimSpace(parts[1]), nil
}
