package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus instruments for the relay. All recording
// methods are nil-safe so components can run without metrics in tests.
type Metrics struct {
	RelaysSent        *prometheus.CounterVec
	RelayFailures     *prometheus.CounterVec
	HoneypotTrips     *prometheus.CounterVec
	ThrottledRequests *prometheus.CounterVec
	ValidationErrors  *prometheus.CounterVec
	StoreErrors       prometheus.Counter
	AuthProbes        *prometheus.CounterVec
}

// New creates and registers all relay metrics.
func New() *Metrics {
	return &Metrics{
		RelaysSent: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "relay_notifications_sent_total",
			Help: "Notifications successfully dispatched to the mail provider",
		}, []string{"form"}),
		RelayFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "relay_notifications_failed_total",
			Help: "Notifications that failed at the mail provider",
		}, []string{"form"}),
		HoneypotTrips: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "relay_honeypot_trips_total",
			Help: "Submissions dropped because the honeypot field was filled",
		}, []string{"form"}),
		ThrottledRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "relay_throttled_requests_total",
			Help: "Requests rejected by the sliding-window rate limiter",
		}, []string{"form"}),
		ValidationErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "relay_validation_errors_total",
			Help: "Submissions rejected by payload validation",
		}, []string{"form"}),
		StoreErrors: promauto.NewCounter(prometheus.CounterOpts{
			Name: "relay_ratelimit_store_errors_total",
			Help: "Rate-limit store failures that triggered the fail-open path",
		}),
		AuthProbes: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "relay_auth_probes_total",
			Help: "Auth probe outcomes by result",
		}, []string{"outcome"}),
	}
}

func (m *Metrics) RecordRelaySent(form string) {
	if m != nil {
		m.RelaysSent.WithLabelValues(form).Inc()
	}
}

func (m *Metrics) RecordRelayFailure(form string) {
	if m != nil {
		m.RelayFailures.WithLabelValues(form).Inc()
	}
}

func (m *Metrics) RecordHoneypotTrip(form string) {
	if m != nil {
		m.HoneypotTrips.WithLabelValues(form).Inc()
	}
}

func (m *Metrics) RecordThrottled(form string) {
	if m != nil {
		m.ThrottledRequests.WithLabelValues(form).Inc()
	}
}

func (m *Metrics) RecordValidationError(form string) {
	if m != nil {
		m.ValidationErrors.WithLabelValues(form).Inc()
	}
}

func (m *Metrics) RecordStoreError() {
	if m != nil {
		m.StoreErrors.Inc()
	}
}

func (m *Metrics) RecordAuthProbe(outcome string) {
	if m != nil {
		m.AuthProbes.WithLabelValues(outcome).Inc()
	}
}
