package client

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// metrics records the request lifecycle. A nil *metrics records nothing.
type metrics struct {
	requestsTotal    *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
	requestsInFlight *prometheus.GaugeVec
	bytesTotal       *prometheus.CounterVec
}

func newMetrics(reg prometheus.Registerer) *metrics {
	return &metrics{
		requestsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "reqadapter_requests_total",
				Help: "Total number of settled requests by outcome",
			},
			[]string{"method", "outcome"},
		),
		requestDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "reqadapter_request_duration_seconds",
				Help:    "Time from dispatch to settlement in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "outcome"},
		),
		requestsInFlight: promauto.With(reg).NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "reqadapter_requests_in_flight",
				Help: "Number of dispatched requests not yet settled",
			},
			[]string{"method"},
		),
		bytesTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "reqadapter_transferred_bytes_total",
				Help: "Request and response body bytes by direction",
			},
			[]string{"direction"},
		),
	}
}

func (m *metrics) started(method string) {
	if m == nil {
		return
	}
	m.requestsInFlight.WithLabelValues(method).Inc()
}

// settled records a finished request. outcome is "ok" or an error kind.
func (m *metrics) settled(method, outcome string, dispatched bool, d time.Duration) {
	if m == nil {
		return
	}
	if dispatched {
		m.requestsInFlight.WithLabelValues(method).Dec()
	}
	m.requestsTotal.WithLabelValues(method, outcome).Inc()
	m.requestDuration.WithLabelValues(method, outcome).Observe(d.Seconds())
}

func (m *metrics) transferred(direction string, n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.bytesTotal.WithLabelValues(direction).Add(float64(n))
}
