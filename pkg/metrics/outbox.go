package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Outbox publish and e-mail delivery outcomes.
const (
	OutboxPublished    = "published"
	OutboxRetry        = "retry"
	OutboxDeadLettered = "dead_lettered"

	EmailSent      = "sent"
	EmailFailed    = "failed"
	EmailDuplicate = "duplicate"
	EmailDropped   = "dropped"

	JobSucceeded = "succeeded"
	JobFailed    = "failed"
)

// PipelineMetrics covers the asynchronous side of order notifications: the
// outbox publisher, the e-mail worker and its retention jobs.
type PipelineMetrics struct {
	outbox      *prometheus.CounterVec
	emails      *prometheus.CounterVec
	jobs        *prometheus.CounterVec
	jobDuration *prometheus.HistogramVec
}

func NewPipelineMetrics(reg prometheus.Registerer) *PipelineMetrics {
	if reg == nil {
		return &PipelineMetrics{}
	}
	outbox := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "outbox_events_total",
		Help: "Outbox rows handled by the publisher, by topic and result.",
	}, []string{"topic", "result"})
	emails := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "notification_emails_total",
		Help: "Order confirmation e-mails handled by the worker.",
	}, []string{"result"})
	jobs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "maintenance_job_runs_total",
		Help: "Maintenance job runs by job and result.",
	}, []string{"job", "result"})
	jobDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "maintenance_job_duration_seconds",
		Help:    "Maintenance job run time.",
		Buckets: prometheus.DefBuckets,
	}, []string{"job"})
	reg.MustRegister(outbox, emails, jobs, jobDuration)
	return &PipelineMetrics{outbox: outbox, emails: emails, jobs: jobs, jobDuration: jobDuration}
}

func (m *PipelineMetrics) IncOutbox(topic, result string) {
	if m == nil || m.outbox == nil {
		return
	}
	m.outbox.WithLabelValues(normalizeLabel(topic), normalizeLabel(result)).Inc()
}

func (m *PipelineMetrics) IncEmail(result string) {
	if m == nil || m.emails == nil {
		return
	}
	m.emails.WithLabelValues(normalizeLabel(result)).Inc()
}

func (m *PipelineMetrics) ObserveJob(job, result string, d time.Duration) {
	if m == nil || m.jobs == nil {
		return
	}
	m.jobs.WithLabelValues(normalizeLabel(job), normalizeLabel(result)).Inc()
	m.jobDuration.WithLabelValues(normalizeLabel(job)).Observe(d.Seconds())
}
