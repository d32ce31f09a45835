package guard

import "github.com/prometheus/client_golang/prometheus"

type Metrics struct {
	decisions *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sis_console_navigation_decisions_total",
			Help: "Route guard decisions by outcome.",
		}, []string{"outcome"}),
	}
	if reg != nil {
		reg.MustRegister(m.decisions)
	}
	return m
}

func (m *Metrics) observe(outcome State) {
	if m == nil {
		return
	}
	m.decisions.WithLabelValues(string(outcome)).Inc()
}
