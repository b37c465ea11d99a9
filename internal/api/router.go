package api

import (
	"net/http"
	"sort"
	"strings"

	"github.com/gatherly/server/internal/api/handlers"
	"github.com/gatherly/server/internal/api/middleware"
	"github.com/gatherly/server/internal/auth"
	"github.com/gatherly/server/internal/config"
	"github.com/gatherly/server/internal/domain/events"
	"github.com/gatherly/server/internal/domain/rsvps"
	"github.com/gatherly/server/internal/metrics"
	"github.com/rs/zerolog"
)

// Deps carries the constructed services the router wires together.
// Handlers hold services, not repositories, so tests can swap storage for
// in-memory fakes.
type Deps struct {
	Config     config.Config
	Logger     zerolog.Logger
	Events     *events.Service
	Rsvps      *rsvps.Service
	Verifier   middleware.TokenVerifier
	Authorizer *auth.Authorizer
	Health     *handlers.HealthChecker
}

// NewRouter builds the full HTTP surface: the API routes with their
// auth requirements, plus health and metrics endpoints. Every route past
// the public event list runs behind token verification; the admin routes
// additionally require the admin role.
func NewRouter(deps Deps) http.Handler {
	env := deps.Config.Environment

	eventsHandler := handlers.NewEventsHandler(deps.Events, env)
	rsvpsHandler := handlers.NewRsvpsHandler(deps.Rsvps, env)

	requireAuth := middleware.RequireAuth(deps.Verifier, env)
	requireAdmin := middleware.RequireRole(deps.Authorizer, auth.RoleAdmin, env)
	rateLimit := middleware.RateLimit(deps.Config.RateLimit)
	tierUser := middleware.WithRateLimitTierHandler(middleware.TierUser)
	tierAdmin := middleware.WithRateLimitTierHandler(middleware.TierAdmin)

	// Tier markers must wrap the limiter so it sees the right tier; the
	// limiter in turn wraps auth so an abusive client is throttled before
	// it costs a token verification.
	public := func(h http.Handler) http.Handler {
		return rateLimit(h)
	}
	authed := func(h http.Handler) http.Handler {
		return tierUser(rateLimit(requireAuth(h)))
	}
	adminOnly := func(h http.Handler) http.Handler {
		return tierAdmin(rateLimit(requireAuth(requireAdmin(h))))
	}

	mux := http.NewServeMux()

	if deps.Health != nil {
		mux.Handle("/healthz", deps.Health.Live())
		mux.Handle("/readyz", deps.Health.Ready())
	}
	mux.Handle("/metrics", metrics.Handler())

	mux.Handle("/api/events", methodMux(map[string]http.Handler{
		http.MethodGet: public(http.HandlerFunc(eventsHandler.List)),
	}))
	mux.Handle("/api/events/admin", methodMux(map[string]http.Handler{
		http.MethodGet: adminOnly(http.HandlerFunc(eventsHandler.ListAll)),
	}))
	mux.Handle("/api/event/new", methodMux(map[string]http.Handler{
		http.MethodPost: adminOnly(http.HandlerFunc(eventsHandler.Create)),
	}))
	mux.Handle("/api/event/{id}", methodMux(map[string]http.Handler{
		http.MethodGet: authed(http.HandlerFunc(eventsHandler.Get)),
		http.MethodPut: adminOnly(http.HandlerFunc(eventsHandler.Update)),
	}))
	mux.Handle("/api/event/{eventId}/rsvps", methodMux(map[string]http.Handler{
		http.MethodGet: authed(http.HandlerFunc(rsvpsHandler.ListByEvent)),
	}))
	mux.Handle("/api/rsvp/new", methodMux(map[string]http.Handler{
		http.MethodPost: authed(http.HandlerFunc(rsvpsHandler.Create)),
	}))
	mux.Handle("/api/rsvp/{id}", methodMux(map[string]http.Handler{
		http.MethodPut: authed(http.HandlerFunc(rsvpsHandler.Edit)),
	}))

	// Outermost first: correlation and tracing wrap everything so request
	// ids and spans cover the whole lifecycle.
	var handler http.Handler = mux
	handler = middleware.RequestLogging(deps.Logger)(handler)
	handler = metrics.Middleware(handler)
	handler = middleware.Tracing(handler)
	handler = middleware.CorrelationID(deps.Logger)(handler)
	return handler
}

func methodMux(handlers map[string]http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if handler, ok := handlers[r.Method]; ok {
			handler.ServeHTTP(w, r)
			return
		}
		w.Header().Set("Allow", allowedMethods(handlers))
		w.WriteHeader(http.StatusMethodNotAllowed)
	})
}

func allowedMethods(handlers map[string]http.Handler) string {
	methods := make([]string, 0, len(handlers))
	for method := range handlers {
		methods = append(methods, method)
	}
	sort.Strings(methods)
	return strings.Join(methods, ", ")
}
