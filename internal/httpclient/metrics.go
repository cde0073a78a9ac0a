package httpclient

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recipelens_http_client_requests_total",
			Help: "Total number of outbound HTTP attempts by method and status",
		},
		[]string{"method", "status"},
	)

	retriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recipelens_http_client_retries_total",
			Help: "Total number of outbound HTTP retries",
		},
		[]string{"method"},
	)

	dedupedRequests = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "recipelens_http_client_deduplicated_total",
			Help: "Total number of GET calls served by an identical in-flight request",
		},
	)
)
