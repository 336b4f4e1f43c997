package strut

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the request instruments the dispatcher feeds. Labels use
// the route template rather than the raw path so cardinality stays
// bounded no matter what clients send.
type Metrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewMetrics registers the request instruments on reg and returns the
// handle to pass to WithMetrics.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		requests: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Requests served, by method, route template, and status.",
		}, []string{"method", "template", "status"}),
		duration: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Request latency in seconds, by method and route template.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "template"}),
	}
}

func (m *Metrics) observe(method, template string, status int, d time.Duration) {
	m.requests.WithLabelValues(method, template, strconv.Itoa(status)).Inc()
	m.duration.WithLabelValues(method, template).Observe(d.Seconds())
}
