// Package metrics exposes Prometheus metrics for the enrollment and
// verification pipeline, with an optional HTTP scrape endpoint.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Label values for the modality dimension.
const (
	ModalityKeystroke = "keystroke"
	ModalityVoice     = "voice"
)

// Label values for the outcome dimension.
const (
	OutcomeAccepted = "accepted"
	OutcomeRejected = "rejected"
	OutcomeError    = "error"
)

// Metrics holds the pipeline's instrument set on a private registry so
// tests can run several instances without collisions.
type Metrics struct {
	registry *prometheus.Registry

	enrollmentsTotal   *prometheus.CounterVec
	verificationsTotal *prometheus.CounterVec
	trainingDuration   prometheus.Histogram
	verifyDuration     *prometheus.HistogramVec
	activeSessions     prometheus.Gauge
	integrityFailures  prometheus.Counter
}

// New creates and registers the instrument set.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		registry: reg,
		enrollmentsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cadenced",
			Name:      "enrollments_total",
			Help:      "Completed enrollment attempts by modality and outcome.",
		}, []string{"modality", "outcome"}),
		verificationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cadenced",
			Name:      "verifications_total",
			Help:      "Verification attempts by modality and outcome.",
		}, []string{"modality", "outcome"}),
		trainingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "cadenced",
			Name:      "training_duration_seconds",
			Help:      "Wall-clock duration of model training runs.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
		}),
		verifyDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "cadenced",
			Name:      "verification_duration_seconds",
			Help:      "Wall-clock duration of verification calls.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 10),
		}, []string{"modality"}),
		activeSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "cadenced",
			Name:      "active_enrollment_sessions",
			Help:      "Enrollment sessions currently collecting or training.",
		}),
		integrityFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "cadenced",
			Name:      "store_integrity_failures_total",
			Help:      "Stored records rejected for a tag mismatch.",
		}),
	}

	reg.MustRegister(
		m.enrollmentsTotal,
		m.verificationsTotal,
		m.trainingDuration,
		m.verifyDuration,
		m.activeSessions,
		m.integrityFailures,
	)
	return m
}

// ObserveEnrollment records one finished enrollment attempt. Safe on a
// nil receiver so instrumentation stays optional.
func (m *Metrics) ObserveEnrollment(modality, outcome string) {
	if m == nil {
		return
	}
	m.enrollmentsTotal.WithLabelValues(modality, outcome).Inc()
}

// ObserveVerification records one verification attempt and its duration.
func (m *Metrics) ObserveVerification(modality, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.verificationsTotal.WithLabelValues(modality, outcome).Inc()
	m.verifyDuration.WithLabelValues(modality).Observe(elapsed.Seconds())
}

// ObserveTraining records one training run's duration.
func (m *Metrics) ObserveTraining(elapsed time.Duration) {
	if m == nil {
		return
	}
	m.trainingDuration.Observe(elapsed.Seconds())
}

// SessionStarted increments the active session gauge.
func (m *Metrics) SessionStarted() {
	if m == nil {
		return
	}
	m.activeSessions.Inc()
}

// SessionEnded decrements the active session gauge.
func (m *Metrics) SessionEnded() {
	if m == nil {
		return
	}
	m.activeSessions.Dec()
}

// ObserveIntegrityFailure counts one rejected store record.
func (m *Metrics) ObserveIntegrityFailure() {
	if m == nil {
		return
	}
	m.integrityFailures.Inc()
}

// Handler returns the scrape endpoint for this instrument set.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Gatherer exposes the underlying registry for tests.
func (m *Metrics) Gatherer() prometheus.Gatherer {
	return m.registry
}

// Serve starts the scrape endpoint on addr in a background goroutine
// and returns the server for shutdown.
func (m *Metrics) Serve(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go srv.ListenAndServe()
	return srv
}
