package metrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds the pipeline's prometheus collectors
type Metrics struct {
	Invocations          *prometheus.CounterVec
	Duration             prometheus.Histogram
	RowsRedacted         prometheus.Counter
	NotificationFailures prometheus.Counter
}

// New creates and registers the pipeline collectors
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Invocations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "remediator",
			Name:      "invocations_total",
			Help:      "Pipeline invocations by outcome.",
		}, []string{"outcome"}),
		Duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "remediator",
			Name:      "invocation_duration_seconds",
			Help:      "End-to-end duration of one pipeline invocation.",
			Buckets:   prometheus.DefBuckets,
		}),
		RowsRedacted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "remediator",
			Name:      "rows_redacted_total",
			Help:      "Tabular rows processed by the redaction engine.",
		}),
		NotificationFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "remediator",
			Name:      "notification_failures_total",
			Help:      "Notifications that could not be delivered after retries.",
		}),
	}

	reg.MustRegister(m.Invocations, m.Duration, m.RowsRedacted, m.NotificationFailures)
	return m
}
