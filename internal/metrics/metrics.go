package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	// OutcomeSuccess labels calls and triages that produced real content.
	OutcomeSuccess = "success"
	// OutcomeDegraded labels triages answered with sentinel or error text.
	OutcomeDegraded = "degraded"
	// OutcomeRejected labels requests refused by validation.
	OutcomeRejected = "rejected"
	// OutcomeError labels failed upstream calls.
	OutcomeError = "error"
)

var (
	triagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "santai",
			Name:      "triages_total",
			Help:      "Total number of triage requests, partitioned by kind and outcome.",
		},
		[]string{"kind", "outcome"},
	)

	triageDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "santai",
			Name:      "triage_seconds",
			Help:      "End-to-end triage latency in seconds.",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 120},
		},
		[]string{"kind"},
	)

	upstreamCallSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "santai",
			Name:      "upstream_call_seconds",
			Help:      "Latency of calls to the detector, model and reputation services.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60, 120},
		},
		[]string{"service", "outcome"},
	)
)

// Register attaches santai collectors to the supplied Prometheus registerer.
func Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		triagesTotal,
		triageDurationSeconds,
		upstreamCallSeconds,
	}

	for _, collector := range collectors {
		if err := reg.Register(collector); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
				continue
			}
			return err
		}
	}
	return nil
}

// ObserveTriage records one triage request.
func ObserveTriage(kind, outcome string, duration time.Duration) {
	triagesTotal.WithLabelValues(kind, outcome).Inc()
	if outcome == OutcomeRejected {
		return
	}
	if duration < 0 {
		duration = 0
	}
	triageDurationSeconds.WithLabelValues(kind).Observe(duration.Seconds())
}

// ObserveUpstream records one external call.
func ObserveUpstream(service string, err error, duration time.Duration) {
	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeError
	}
	if duration < 0 {
		duration = 0
	}
	upstreamCallSeconds.WithLabelValues(service, outcome).Observe(duration.Seconds())
}
