// Package metrics holds the prometheus collectors of the service.
package metrics

import (
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTPRequests counts served requests by method, route and status.
	HTTPRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bcards_http_requests_total",
		Help: "Total number of HTTP requests processed",
	}, []string{"method", "route", "status"})

	// HTTPDuration observes request latency by method and route.
	HTTPDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "bcards_http_request_duration_seconds",
		Help:    "Latency of HTTP requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})

	// BizNumberConflicts counts card inserts rejected for a taken bizNumber.
	BizNumberConflicts = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "bcards_biznumber_conflicts_total",
		Help: "Card creations that lost a bizNumber race and were retried",
	})

	// LikeToggles counts like toggles by resulting state.
	LikeToggles = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bcards_like_toggles_total",
		Help: "Card like toggles by resulting state",
	}, []string{"state"})
)

// Register adds every collector to reg and returns the handler that exposes
// it. Collectors already present in reg are accepted.
func Register(reg *prometheus.Registry) (http.Handler, error) {
	for _, c := range []prometheus.Collector{HTTPRequests, HTTPDuration, BizNumberConflicts, LikeToggles} {
		if err := reg.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if !errors.As(err, &are) {
				return nil, err
			}
		}
	}
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{}), nil
}
