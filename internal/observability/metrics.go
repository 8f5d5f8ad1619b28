package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the collectors shared by the importer and the read API.
type Metrics struct {
	ImportRuns     *prometheus.CounterVec
	ImportDuration *prometheus.HistogramVec
	RowsLoaded     *prometheus.GaugeVec
	HTTPRequests   *prometheus.CounterVec
	HTTPDuration   *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ImportRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "import_runs_total",
				Help: "Import runs by pipeline and result",
			},
			[]string{"pipeline", "result"},
		),
		ImportDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "import_duration_seconds",
				Help:    "Wall-clock duration of import runs",
				Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
			},
			[]string{"pipeline"},
		),
		RowsLoaded: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "import_rows_loaded",
				Help: "Rows written by the last successful import",
			},
			[]string{"pipeline"},
		),
		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "HTTP requests by route and status code",
			},
			[]string{"route", "code"},
		),
		HTTPDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency by route",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"route"},
		),
	}
	reg.MustRegister(m.ImportRuns, m.ImportDuration, m.RowsLoaded, m.HTTPRequests, m.HTTPDuration)
	return m
}

// ObserveRun records one finished import.
func (m *Metrics) ObserveRun(pipeline, result string, elapsed time.Duration, rows int64) {
	m.ImportRuns.WithLabelValues(pipeline, result).Inc()
	m.ImportDuration.WithLabelValues(pipeline).Observe(elapsed.Seconds())
	if result == "success" {
		m.RowsLoaded.WithLabelValues(pipeline).Set(float64(rows))
	}
}

// Instrument wraps h, labelling samples with a fixed route name.
func (m *Metrics) Instrument(route string, h http.Handler) http.Handler {
	labels := prometheus.Labels{"route": route}
	return promhttp.InstrumentHandlerDuration(m.HTTPDuration.MustCurryWith(labels),
		promhttp.InstrumentHandlerCounter(m.HTTPRequests.MustCurryWith(labels), h))
}

// Handler serves the exposition format for g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
