// Package metrics registers the service's prometheus collectors.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	Registry *prometheus.Registry

	BookingsCreated   prometheus.Counter
	BookingsCancelled prometheus.Counter
	BookingsRejected  *prometheus.CounterVec // by error kind
	Cascades          *prometheus.CounterVec // by role and outcome
	RateFetches       *prometheus.CounterVec // by outcome
	PanicsRecovered   prometheus.Counter
	RequestDuration   *prometheus.HistogramVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)
	return &Metrics{
		Registry: reg,
		BookingsCreated: f.NewCounter(prometheus.CounterOpts{
			Name: "tripgenie_bookings_created_total",
			Help: "Itinerary bookings created.",
		}),
		BookingsCancelled: f.NewCounter(prometheus.CounterOpts{
			Name: "tripgenie_bookings_cancelled_total",
			Help: "Itinerary bookings cancelled by tourists.",
		}),
		BookingsRejected: f.NewCounterVec(prometheus.CounterOpts{
			Name: "tripgenie_bookings_rejected_total",
			Help: "Booking and cancellation attempts refused, by reason.",
		}, []string{"kind"}),
		Cascades: f.NewCounterVec(prometheus.CounterOpts{
			Name: "tripgenie_account_cascades_total",
			Help: "Account deletions with their dependent content.",
		}, []string{"role", "outcome"}),
		RateFetches: f.NewCounterVec(prometheus.CounterOpts{
			Name: "tripgenie_rate_fetches_total",
			Help: "Exchange-rate table fetches.",
		}, []string{"outcome"}),
		PanicsRecovered: f.NewCounter(prometheus.CounterOpts{
			Name: "tripgenie_http_panics_recovered_total",
			Help: "HTTP requests recovered from an internal panic.",
		}),
		RequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "tripgenie_http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: []float64{0.001, 0.01, 0.1, 0.3, 0.6, 1, 3, 6},
		}, []string{"method", "status"}),
	}
}

// Handler serves the registry in the OpenMetrics format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

// ObserveRequest records one request's latency.
func (m *Metrics) ObserveRequest(method string, status int, elapsed time.Duration) {
	m.RequestDuration.WithLabelValues(method, strconv.Itoa(status)).Observe(elapsed.Seconds())
}
