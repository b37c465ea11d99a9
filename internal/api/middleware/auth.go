package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gatherly/server/internal/api/problem"
	"github.com/gatherly/server/internal/auth"
	"github.com/gatherly/server/internal/metrics"
	"github.com/rs/zerolog"
)

type contextKeyAuth string

const claimsKey contextKeyAuth = "authClaims"

// TokenVerifier is satisfied by *auth.Validator.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (*auth.Claims, error)
}

// RequireAuth validates the bearer token and attaches the verified claims
// to the request context. Every failure short-circuits with 401; a request
// with a bad token is never handled as anonymous.
func RequireAuth(verifier TokenVerifier, env string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if verifier == nil {
				problem.Write(w, r, http.StatusUnauthorized, problem.TypeUnauthorized, "Unauthorized", problem.ErrUnauthorized, env)
				return
			}

			token, err := auth.TokenFromHeader(r.Header.Get("Authorization"))
			if err != nil {
				metrics.AuthOutcomes.WithLabelValues("missing").Inc()
				problem.Write(w, r, http.StatusUnauthorized, problem.TypeUnauthorized, "Missing bearer token", err, env)
				return
			}

			claims, err := verifier.Verify(r.Context(), token)
			if err != nil {
				outcome := "rejected"
				if errors.Is(err, auth.ErrKeyUnavailable) {
					outcome = "key_unavailable"
				}
				metrics.AuthOutcomes.WithLabelValues(outcome).Inc()
				problem.Write(w, r, http.StatusUnauthorized, problem.TypeUnauthorized, "Invalid token", err, env)
				return
			}
			metrics.AuthOutcomes.WithLabelValues("ok").Inc()

			ctx := contextWithClaims(r.Context(), claims)
			reqLogger := zerolog.Ctx(ctx).With().Str("sub", claims.Subject).Logger()
			ctx = reqLogger.WithContext(ctx)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole runs after RequireAuth and denies callers whose namespaced
// role claim lacks the required role. Matching the upstream API contract,
// a missing role answers 401 with a role-specific message, not 403.
func RequireRole(authorizer *auth.Authorizer, role string, env string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := Claims(r)
			if claims == nil {
				problem.Write(w, r, http.StatusUnauthorized, problem.TypeUnauthorized, "Unauthorized", problem.ErrUnauthorized, env)
				return
			}
			if err := authorizer.RequireRole(claims, role); err != nil {
				title := fmt.Sprintf("Not authorized for %s access", role)
				problem.Write(w, r, http.StatusUnauthorized, problem.TypeForbidden, title, err, env)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func contextWithClaims(ctx context.Context, claims *auth.Claims) context.Context {
	return context.WithValue(ctx, claimsKey, claims)
}

// Claims returns the verified claims attached by RequireAuth, or nil.
func Claims(r *http.Request) *auth.Claims {
	if r == nil {
		return nil
	}
	if claims, ok := r.Context().Value(claimsKey).(*auth.Claims); ok {
		return claims
	}
	return nil
}
