package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	BookingsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bookings_total",
		Help: "Total number of confirmed bookings",
	})

	BookingsRejectedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bookings_rejected_total",
		Help: "Total number of rejected booking attempts",
	}, []string{"reason"})

	CancellationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cancellations_total",
		Help: "Total number of cancelled reservations",
	})

	CapacityRejectionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "capacity_rejections_total",
		Help: "Booking attempts rejected because remaining capacity was too low",
	})

	PriceComputationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "price_computations_total",
		Help: "Total number of dynamic price computations",
	})

	PriceTicksPublishedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "price_ticks_published_total",
		Help: "Price movements published to the tick feed",
	})

	CacheHitsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cache_hits_total",
		Help: "Cache hits by key kind",
	}, []string{"kind"})

	CacheMissesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cache_misses_total",
		Help: "Cache misses by key kind",
	}, []string{"kind"})

	BookingLockLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "booking_lock_latency_seconds",
		Help:    "Time spent inside the per-event booking critical section",
		Buckets: prometheus.DefBuckets,
	})

	EventRemainingCapacity = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "event_remaining_capacity",
		Help: "Remaining sellable tickets per event",
	}, []string{"event_id"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)
