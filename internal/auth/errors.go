package auth

import "errors"

// Token verification failures. Every one of these is an authentication
// failure at the HTTP boundary; none may be downgraded to anonymous access.
var (
	ErrMissingToken         = errors.New("missing token")
	ErrMalformedToken       = errors.New("malformed token")
	ErrInvalidToken         = errors.New("invalid token")
	ErrInvalidSignature     = errors.New("invalid token signature")
	ErrInvalidAudience      = errors.New("invalid token audience")
	ErrInvalidIssuer        = errors.New("invalid token issuer")
	ErrUnsupportedAlgorithm = errors.New("unsupported signing algorithm")
	ErrTokenExpired         = errors.New("token expired")
	ErrUnknownKeyID         = errors.New("token has no key id")
)

// Key set failures. ErrKeyUnavailable covers fetch failures and refresh
// rate-limit exhaustion; ErrKeyNotFound means the issuer does not publish
// the requested key id.
var (
	ErrKeyUnavailable = errors.New("signing key unavailable")
	ErrKeyNotFound    = errors.New("signing key not found")
)

// ErrForbidden is an authorization failure: authenticated, but the
// required role is missing from the namespaced claim.
var ErrForbidden = errors.New("forbidden")
