package apiclient

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	inflight prometheus.Gauge
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		inflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "sis_console_api_inflight_requests",
			Help: "Requests to the SIS API currently in flight.",
		}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sis_console_api_requests_total",
			Help: "Completed requests to the SIS API by method and outcome.",
		}, []string{"method", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "sis_console_api_request_duration_seconds",
			Help:    "Latency of logical requests to the SIS API, replays included.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method"}),
	}
	if reg != nil {
		reg.MustRegister(m.inflight, m.requests, m.duration)
	}
	return m
}

func (m *Metrics) setInflight(n int) {
	if m == nil {
		return
	}
	m.inflight.Set(float64(n))
}

func (m *Metrics) observe(method, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(method, outcome).Inc()
	m.duration.WithLabelValues(method).Observe(elapsed.Seconds())
}
