// Package metrics exposes conversation counters for Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Reply outcomes.
const (
	OutcomeOK        = "ok"
	OutcomeFailed    = "failed"
	OutcomeCancelled = "cancelled"
	OutcomeRejected  = "rejected"
)

// Metrics holds the collectors on a private registry. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	registry      *prometheus.Registry
	messages      *prometheus.CounterVec
	replies       *prometheus.CounterVec
	replyDuration prometheus.Histogram
	exports       *prometheus.CounterVec
}

// New registers the collectors on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		messages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "artifactchat_messages_total",
			Help: "Messages appended to the conversation.",
		}, []string{"sender"}),
		replies: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "artifactchat_replies_total",
			Help: "Reply attempts by outcome.",
		}, []string{"outcome"}),
		replyDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "artifactchat_reply_duration_seconds",
			Help:    "Time from a reply starting to it being appended.",
			Buckets: []float64{0.1, 0.5, 1, 1.5, 2, 5, 10, 30, 60},
		}),
		exports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "artifactchat_exports_total",
			Help: "Conversation exports by outcome.",
		}, []string{"outcome"}),
	}
	m.registry.MustRegister(m.messages, m.replies, m.replyDuration, m.exports)
	return m
}

func (m *Metrics) MessageAppended(sender string) {
	if m == nil {
		return
	}
	m.messages.WithLabelValues(sender).Inc()
}

// ReplyFinished counts a reply outcome. The duration is observed only for
// replies that ran.
func (m *Metrics) ReplyFinished(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.replies.WithLabelValues(outcome).Inc()
	if outcome == OutcomeOK || outcome == OutcomeFailed {
		m.replyDuration.Observe(d.Seconds())
	}
}

func (m *Metrics) Exported(err error) {
	if m == nil {
		return
	}
	outcome := OutcomeOK
	if err != nil {
		outcome = OutcomeFailed
	}
	m.exports.WithLabelValues(outcome).Inc()
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
