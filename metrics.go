package bsplice

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics collects counters about nested requests. A nil *Metrics records nothing.
type Metrics struct {
	subrequests  *prometheus.CounterVec
	duration     *prometheus.HistogramVec
	unterminated prometheus.Counter
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)

	return &Metrics{
		subrequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bsplice",
			Name:      "subrequests_total",
			Help:      "Nested requests by source and outcome.",
		}, []string{"source", "outcome"}),
		duration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "bsplice",
			Name:      "subrequest_duration_seconds",
			Help:      "Time from accepting a nested request until it finished.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"source"}),
		unterminated: f.NewCounter(prometheus.CounterOpts{
			Namespace: "bsplice",
			Name:      "unterminated_streams_total",
			Help:      "Main responses that were closed without an end-of-stream marker reaching the output.",
		}),
	}
}

func (m *Metrics) rejected(source string) {
	if m == nil {
		return
	}

	m.subrequests.WithLabelValues(source, "rejected").Inc()
}

func (m *Metrics) finished(source string, err error, took time.Duration) {
	if m == nil {
		return
	}

	outcome := "ok"
	if err != nil {
		outcome = "error"
	}

	m.subrequests.WithLabelValues(source, outcome).Inc()
	m.duration.WithLabelValues(source).Observe(took.Seconds())
}

func (m *Metrics) unterminatedStream() {
	if m == nil {
		return
	}

	m.unterminated.Inc()
}
