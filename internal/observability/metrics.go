// README: Prometheus metrics for bookings, matching, and HTTP traffic.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	BookingsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "metrosync", Name: "bookings_created_total",
		Help: "Bookings accepted into PENDING",
	})
	BookingTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "metrosync", Name: "booking_transitions_total",
			Help: "Booking state transitions applied",
		},
		[]string{"to"},
	)
	RouteMatches = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "metrosync", Name: "route_matches_total",
		Help: "Routes returned by matcher queries",
	})

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "metrosync", Name: "http_requests_total",
			Help: "Total HTTP requests handled",
		},
		[]string{"method", "path", "status"},
	)
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "metrosync", Name: "http_request_duration_seconds",
			Help:    "HTTP request latency distribution",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
