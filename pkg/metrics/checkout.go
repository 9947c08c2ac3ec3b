package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Commit attempt outcomes.
const (
	CommitSaved    = "saved"
	CommitFailed   = "failed"
	CommitNotReady = "not_ready"
	CommitJoined   = "joined"
	CommitReplayed = "replayed"
)

// Notification dispatch outcomes.
const (
	NotifySent   = "sent"
	NotifyFailed = "failed"
)

// CheckoutMetrics tracks the checkout session registry and order commits.
// A nil *CheckoutMetrics is valid and records nothing.
type CheckoutMetrics struct {
	sessionsActive prometheus.Gauge
	commitAttempts *prometheus.CounterVec
	commitDuration prometheus.Histogram
	notifications  *prometheus.CounterVec
}

// NewCheckoutMetrics registers the checkout metrics on the provided registerer.
func NewCheckoutMetrics(reg prometheus.Registerer) *CheckoutMetrics {
	if reg == nil {
		return &CheckoutMetrics{}
	}
	sessions := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "checkout_sessions_active",
		Help: "Checkout sessions currently held in memory.",
	})
	attempts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_commit_attempts_total",
		Help: "Order commit attempts by outcome.",
	}, []string{"result"})
	duration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "checkout_commit_duration_seconds",
		Help:    "Time spent persisting an order.",
		Buckets: prometheus.DefBuckets,
	})
	notifications := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_notifications_total",
		Help: "Order confirmation dispatches by outcome.",
	}, []string{"result"})
	reg.MustRegister(sessions, attempts, duration, notifications)
	return &CheckoutMetrics{
		sessionsActive: sessions,
		commitAttempts: attempts,
		commitDuration: duration,
		notifications:  notifications,
	}
}

func (m *CheckoutMetrics) SetActiveSessions(n int) {
	if m == nil || m.sessionsActive == nil {
		return
	}
	m.sessionsActive.Set(float64(n))
}

func (m *CheckoutMetrics) IncCommit(result string) {
	if m == nil || m.commitAttempts == nil {
		return
	}
	m.commitAttempts.WithLabelValues(normalizeLabel(result)).Inc()
}

func (m *CheckoutMetrics) ObserveCommit(d time.Duration) {
	if m == nil || m.commitDuration == nil {
		return
	}
	m.commitDuration.Observe(d.Seconds())
}

func (m *CheckoutMetrics) IncNotification(result string) {
	if m == nil || m.notifications == nil {
		return
	}
	m.notifications.WithLabelValues(normalizeLabel(result)).Inc()
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
