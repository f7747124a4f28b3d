package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "fare_booking"

var (
	ProviderCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "provider_calls_total", Help: "Provider calls by operation and result"},
		[]string{"op", "result"},
	)
	ProviderCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "provider_call_duration_seconds",
			Help:      "Provider call latency distribution",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 180},
		},
		[]string{"op"},
	)

	SearchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "searches_total", Help: "Searches by outcome"},
		[]string{"outcome"},
	)
	EnrichmentFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{Namespace: namespace, Name: "enrichment_failures_total", Help: "Routes that fell back to price tiers"},
	)
	BookingsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "bookings_total", Help: "Booking attempts by outcome"},
		[]string{"outcome"},
	)
	OffersConsumedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "offers_consumed_total", Help: "Offer consume attempts by result"},
		[]string{"result"},
	)

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "http_requests_total", Help: "Total HTTP requests handled"},
		[]string{"method", "path", "status"},
	)
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency distribution",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
