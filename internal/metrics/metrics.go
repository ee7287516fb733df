// Package metrics exposes Prometheus counters for the login, archival and
// rate-limiting paths. A Metrics value owns its own registry so tests and
// multiple app instances never collide on global registration. All methods
// are safe to call on a nil *Metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Login attempt outcomes.
const (
	LoginSuccess = "success"
	LoginFailure = "failure"
	LoginBlocked = "blocked"
)

// Metrics holds the application's collectors.
type Metrics struct {
	registry        *prometheus.Registry
	loginAttempts   *prometheus.CounterVec
	archiveRuns     *prometheus.CounterVec
	archivedEntries prometheus.Counter
	skippedEntries  prometheus.Counter
	rateLimited     *prometheus.CounterVec
	sessionsPurged  prometheus.Counter
}

// New creates and registers all collectors, plus the Go runtime and process
// collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		loginAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mealboard",
			Name:      "login_attempts_total",
			Help:      "Login attempts by result (success, failure, blocked).",
		}, []string{"result"}),
		archiveRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mealboard",
			Name:      "archive_runs_total",
			Help:      "Archival passes by outcome (ok, error).",
		}, []string{"outcome"}),
		archivedEntries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "mealboard",
			Name:      "archived_entries_total",
			Help:      "Plan entries copied into history.",
		}),
		skippedEntries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "mealboard",
			Name:      "archive_skipped_total",
			Help:      "Plan entries skipped because another pass archived them first.",
		}),
		rateLimited: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mealboard",
			Name:      "rate_limited_requests_total",
			Help:      "Requests rejected by a transport rate limiter.",
		}, []string{"limiter"}),
		sessionsPurged: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "mealboard",
			Name:      "sessions_purged_total",
			Help:      "Expired or revoked session rows deleted.",
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.loginAttempts,
		m.archiveRuns,
		m.archivedEntries,
		m.skippedEntries,
		m.rateLimited,
		m.sessionsPurged,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// LoginAttempt counts one login attempt with the given result.
func (m *Metrics) LoginAttempt(result string) {
	if m == nil {
		return
	}
	m.loginAttempts.WithLabelValues(result).Inc()
}

// ArchiveRun records the outcome of one archival pass.
func (m *Metrics) ArchiveRun(archived, skipped int, err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.archiveRuns.WithLabelValues("error").Inc()
	} else {
		m.archiveRuns.WithLabelValues("ok").Inc()
	}
	m.archivedEntries.Add(float64(archived))
	m.skippedEntries.Add(float64(skipped))
}

// RateLimited counts a request rejected by the named limiter.
func (m *Metrics) RateLimited(limiter string) {
	if m == nil {
		return
	}
	m.rateLimited.WithLabelValues(limiter).Inc()
}

// SessionsPurged adds n deleted session rows.
func (m *Metrics) SessionsPurged(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.sessionsPurged.Add(float64(n))
}
