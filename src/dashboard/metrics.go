package dashboard

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics 看板自身的指标，每个Server一个独立的registry
type Metrics struct {
	registry    *prometheus.Registry
	renders     *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	rows        prometheus.Gauge
	loadErrors  prometheus.Counter
	badRequests *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		renders: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vocdashboard",
			Name:      "renders_total",
			Help:      "Number of rendered dashboard views.",
		}, []string{"view"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "vocdashboard",
			Name:      "render_duration_seconds",
			Help:      "Time spent filtering and aggregating one view.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"view"}),
		rows: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "vocdashboard",
			Name:      "dataset_rows",
			Help:      "Rows in the loaded dataset.",
		}),
		loadErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "vocdashboard",
			Name:      "load_errors_total",
			Help:      "Dataset load failures.",
		}),
		badRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vocdashboard",
			Name:      "bad_requests_total",
			Help:      "Requests rejected because of invalid query parameters.",
		}, []string{"view"}),
	}
	m.registry.MustRegister(
		m.renders,
		m.duration,
		m.rows,
		m.loadErrors,
		m.badRequests,
		collectors.NewGoCollector(),
	)
	return m
}

// Handler /metrics
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// observe 返回结束计时的函数
func (m *Metrics) observe(view string) func() {
	timer := prometheus.NewTimer(m.duration.WithLabelValues(view))
	return func() {
		timer.ObserveDuration()
		m.renders.WithLabelValues(view).Inc()
	}
}
