package worker

import "github.com/prometheus/client_golang/prometheus"

const (
	outcomeSubmitted = "submitted"
	outcomeCompleted = "completed"
	outcomeRejected  = "rejected"
	outcomeFailed    = "unreachable"
	outcomeTimeout   = "timeout"
)

type Metrics struct {
	dispatches   *prometheus.CounterVec
	syncDuration *prometheus.HistogramVec
}

// NewMetrics registers the dispatcher collectors on reg. A nil reg keeps
// them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		dispatches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "openvdm_worker_dispatches_total",
				Help: "Jobs submitted to the worker pool by job name, mode and outcome",
			},
			[]string{"job", "mode", "outcome"},
		),
		syncDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "openvdm_worker_sync_duration_seconds",
				Help:    "Time spent waiting for synchronous job results",
				Buckets: prometheus.ExponentialBuckets(0.25, 2, 10),
			},
			[]string{"job"},
		),
	}

	if reg != nil {
		reg.MustRegister(m.dispatches, m.syncDuration)
	}
	return m
}

func (m *Metrics) observe(job, mode, outcome string) {
	if m == nil {
		return
	}
	m.dispatches.WithLabelValues(job, mode, outcome).Inc()
}

func (m *Metrics) observeDuration(job string, seconds float64) {
	if m == nil {
		return
	}
	m.syncDuration.WithLabelValues(job).Observe(seconds)
}
