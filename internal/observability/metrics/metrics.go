package metrics

import "github.com/prometheus/client_golang/prometheus"

// Username check resolution paths.
const (
	PathIndexAbsent    = "index_absent"
	PathCacheTaken     = "cache_taken"
	PathCacheAvailable = "cache_available"
	PathStoreTaken     = "store_taken"
	PathStoreAvailable = "store_available"
	PathError          = "error"
)

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	UsernameChecksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "username_checks_total",
			Help: "Username availability checks by resolution path.",
		},
		[]string{"path"},
	)

	RegistrationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_registrations_total",
			Help: "Registration attempts by result.",
		},
		[]string{"result"},
	)

	LoginsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_logins_total",
			Help: "Login attempts by result.",
		},
		[]string{"result"},
	)

	OneTimeCodesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_one_time_codes_total",
			Help: "One-time code operations by operation and result.",
		},
		[]string{"op", "result"},
	)

	SessionsIssuedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_sessions_issued_total",
			Help: "Sessions issued, by whether the server-side mirror was recorded.",
		},
		[]string{"mirrored"},
	)
)

// MustRegister registers all collectors with the default registry. Call once
// from main; tests use the collectors unregistered.
func MustRegister() {
	prometheus.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDurationSeconds,
		UsernameChecksTotal,
		RegistrationsTotal,
		LoginsTotal,
		OneTimeCodesTotal,
		SessionsIssuedTotal,
	)
}
