package rest

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Counters exported for Prometheus scraping; served by cmd binaries when
// started with the monitor flag.
var (
	reqTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nosana_api_requests_total",
		Help: "Deployment Manager API requests by method and status code.",
	}, []string{"method", "code"})

	retryTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "nosana_api_retries_total",
		Help: "Deployment Manager API request retries.",
	})
)
