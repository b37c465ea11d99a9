package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Namespace for all Gatherly metrics
const namespace = "gatherly"

// Registry is the global Prometheus registry for all metrics
var Registry = prometheus.NewRegistry()

// AppInfo exposes application version information as labels (always 1)
var AppInfo = promauto.With(Registry).NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "app_info",
		Help:      "Application version information (always set to 1, version info in labels)",
	},
	[]string{"version", "commit", "build_date"},
)

// AuthOutcomes counts token verification results by outcome
// (ok, missing, rejected, key_unavailable).
var AuthOutcomes = promauto.With(Registry).NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "auth_outcomes_total",
		Help:      "Token verification outcomes",
	},
	[]string{"outcome"},
)

// JWKSFetches counts key set refresh attempts by result.
var JWKSFetches = promauto.With(Registry).NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "jwks_fetches_total",
		Help:      "JWKS refresh attempts by result",
	},
	[]string{"result"},
)

// RsvpConflicts counts duplicate RSVP submissions rejected.
var RsvpConflicts = promauto.With(Registry).NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "rsvp_conflicts_total",
		Help:      "Duplicate RSVP submissions rejected",
	},
)

// Init registers process collectors and records version info.
func Init(version, gitCommit, buildDate string) {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	AppInfo.WithLabelValues(version, gitCommit, buildDate).Set(1)
}
