package collector

import (
	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	cycles      *prometheus.CounterVec
	duration    prometheus.Histogram
	devices     *prometheus.CounterVec
	lastSuccess prometheus.Gauge
	sinkErrors  *prometheus.CounterVec
}

// NewMetrics registers the collector metrics on registerer, or on the default
// registerer when nil.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		cycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "energy_collector_cycles_total",
			Help: "Collection cycles by final status.",
		}, []string{"status"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "energy_collector_cycle_duration_seconds",
			Help:    "Wall time of one collection cycle.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}),
		devices: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "energy_collector_devices_total",
			Help: "Per-device outcomes inside collection cycles.",
		}, []string{"result"}),
		lastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "energy_collector_last_success_timestamp_seconds",
			Help: "Unix time of the last cycle that finished with status success.",
		}),
		sinkErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "energy_collector_sink_errors_total",
			Help: "Readings a sink failed to publish.",
		}, []string{"sink"}),
	}

	registerer.MustRegister(m.cycles, m.duration, m.devices, m.lastSuccess, m.sinkErrors)
	return m
}

func (m *Metrics) observeCycle(s Summary) {
	if m == nil {
		return
	}
	m.cycles.WithLabelValues(string(s.Status)).Inc()
	m.duration.Observe(float64(s.Duration) / 1000)
	m.devices.WithLabelValues("collected").Add(float64(s.Collected))
	m.devices.WithLabelValues("failed").Add(float64(len(s.Errors)))
	if s.Status == StatusSuccess {
		m.lastSuccess.Set(float64(s.StartedAt.Unix()))
	}
}

func (m *Metrics) sinkFailed(name string) {
	if m == nil {
		return
	}
	m.sinkErrors.WithLabelValues(name).Inc()
}
