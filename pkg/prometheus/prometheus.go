package prometheus

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	HTTPRequestTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_request_total",
		Help: "Number of http requests by path and result code.",
	}, []string{"path", "code"})

	HTTPRequestDurationSeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Latency of http requests by path and result code.",
		Buckets: prometheus.DefBuckets,
	}, []string{"path", "code"})

	// RefreshTotal counts refresh token redemptions by auth kind and outcome
	// (rotated, invalid, expired, breach).
	RefreshTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "refresh_token_redemption_total",
		Help: "Number of refresh token redemptions by auth kind and outcome.",
	}, []string{"kind", "outcome"})

	ProviderTokenRefreshTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "provider_token_refresh_total",
		Help: "Number of provider token refreshes by provider and outcome.",
	}, []string{"provider", "outcome"})
)

func NewRegistry() *prometheus.Registry {
	registry := prometheus.NewRegistry()

	// default collectors
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	registry.MustRegister(HTTPRequestTotal, HTTPRequestDurationSeconds, RefreshTotal, ProviderTokenRefreshTotal)
	return registry
}

func NewHandler() http.Handler {
	return promhttp.HandlerFor(NewRegistry(), promhttp.HandlerOpts{})
}
