package metrics

import "github.com/prometheus/client_golang/prometheus"

// IntakeMetrics exposes counters/histograms for the lead funnel.
type IntakeMetrics struct {
	submissionsTotal *prometheus.CounterVec
	rateLimitedTotal prometheus.Counter
	suggestFallback  *prometheus.CounterVec
	alertTotal       *prometheus.CounterVec
	intakeLatency    prometheus.Histogram
}

func NewIntakeMetrics(reg prometheus.Registerer) *IntakeMetrics {
	m := &IntakeMetrics{
		submissionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "leadline",
			Subsystem: "intake",
			Name:      "submissions_total",
			Help:      "Total lead form submissions by outcome",
		}, []string{"outcome"}),
		rateLimitedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "leadline",
			Subsystem: "intake",
			Name:      "rate_limited_total",
			Help:      "Submissions rejected by the sliding-window rate limiter",
		}),
		suggestFallback: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "leadline",
			Subsystem: "suggest",
			Name:      "fallback_total",
			Help:      "DM suggestions that fell back to the template",
		}, []string{"provider"}),
		alertTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "leadline",
			Subsystem: "notify",
			Name:      "alert_total",
			Help:      "Owner alerts attempted by channel and status",
		}, []string{"channel", "status"}),
		intakeLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "leadline",
			Subsystem: "intake",
			Name:      "latency_seconds",
			Help:      "End-to-end latency of lead submission handling",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.submissionsTotal, m.rateLimitedTotal, m.suggestFallback, m.alertTotal, m.intakeLatency)
	return m
}

func (m *IntakeMetrics) RecordSubmission(outcome string) {
	if m == nil {
		return
	}
	m.submissionsTotal.WithLabelValues(outcome).Inc()
}

func (m *IntakeMetrics) RecordRateLimited() {
	if m == nil {
		return
	}
	m.rateLimitedTotal.Inc()
}

func (m *IntakeMetrics) RecordSuggestFallback(provider string) {
	if m == nil {
		return
	}
	m.suggestFallback.WithLabelValues(provider).Inc()
}

func (m *IntakeMetrics) RecordAlert(channel, status string) {
	if m == nil {
		return
	}
	m.alertTotal.WithLabelValues(channel, status).Inc()
}

func (m *IntakeMetrics) ObserveIntakeLatency(seconds float64) {
	if m == nil {
		return
	}
	m.intakeLatency.Observe(seconds)
}
