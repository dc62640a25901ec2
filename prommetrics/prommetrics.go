// Package prommetrics exports the vireo engine's observer hooks as
// Prometheus metrics: request counts and latencies, retry schedules, and
// cache hit rates.
package prommetrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	vireo "github.com/vireolabs/vireo-go"
)

// Observer implements vireo.Observer on top of Prometheus collectors.
//
//	metrics := prommetrics.New(prometheus.DefaultRegisterer)
//	config := vireo.DefaultConfig().WithObserver(metrics)
type Observer struct {
	requestsInFlight prometheus.Gauge
	requestDuration  *prometheus.HistogramVec
	retriesScheduled *prometheus.CounterVec
	cacheOperations  *prometheus.CounterVec
}

// New creates an observer registering its collectors with reg.
func New(reg prometheus.Registerer) *Observer {
	factory := promauto.With(reg)

	return &Observer{
		requestsInFlight: factory.NewGauge(prometheus.GaugeOpts{
			Name: "vireo_requests_in_flight",
			Help: "Number of attempts currently dispatched",
		}),
		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "vireo_request_duration_seconds",
			Help:    "Attempt duration in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		}, []string{"method", "path", "result"}),
		retriesScheduled: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "vireo_retries_scheduled_total",
			Help: "Total number of retries scheduled after failed attempts",
		}, []string{"method", "path"}),
		cacheOperations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "vireo_cache_lookups_total",
			Help: "Total number of cache-first lookups by result",
		}, []string{"result"}),
	}
}

// OnRequestStart tracks the attempt as in flight.
func (o *Observer) OnRequestStart(id string, method vireo.Method, path string) {
	o.requestsInFlight.Inc()
}

// OnRequestEnd records the attempt's duration and result.
func (o *Observer) OnRequestEnd(id string, method vireo.Method, path string, duration time.Duration, err error) {
	o.requestsInFlight.Dec()

	result := "ok"
	if err != nil {
		result = "error"
	}
	o.requestDuration.WithLabelValues(string(method), path, result).Observe(duration.Seconds())
}

// OnRetryScheduled counts the scheduled retry.
func (o *Observer) OnRetryScheduled(id string, method vireo.Method, path string, attemptsLeft uint, delay time.Duration, err error) {
	o.retriesScheduled.WithLabelValues(string(method), path).Inc()
}

// OnCacheHit counts the hit.
func (o *Observer) OnCacheHit(key string) {
	o.cacheOperations.WithLabelValues("hit").Inc()
}

// OnCacheMiss counts the miss.
func (o *Observer) OnCacheMiss(key string) {
	o.cacheOperations.WithLabelValues("miss").Inc()
}
