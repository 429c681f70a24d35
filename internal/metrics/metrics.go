// Package metrics holds the prometheus collectors shared by the bot and the API.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	CommandsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "subdonic_commands_total", Help: "Chat commands dispatched"},
		[]string{"command"},
	)
	CatalogRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "subdonic_catalog_requests_total", Help: "Catalog requests by operation and outcome"},
		[]string{"op", "outcome"},
	)
	Sessions = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "subdonic_sessions", Help: "Guild sessions alive"},
	)
	TracksStarted = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "subdonic_tracks_started_total", Help: "Tracks handed to a player"},
	)
	IdleDisconnects = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "subdonic_idle_disconnects_total", Help: "Voice disconnects after the idle grace period"},
	)
	ProxyRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "subdonic_proxy_requests_total", Help: "Catalog proxy requests by endpoint and status code"},
		[]string{"endpoint", "code"},
	)
)

func init() {
	prometheus.MustRegister(CommandsTotal, CatalogRequests, Sessions, TracksStarted, IdleDisconnects, ProxyRequests)
}

// Catalog outcomes.
const (
	OutcomeOK        = "ok"
	OutcomeHTTPError = "http_error"
	OutcomeDecode    = "decode_error"
	OutcomeTransport = "transport_error"
)

// ObserveProxy counts one proxied request.
func ObserveProxy(endpoint string, code int) {
	ProxyRequests.WithLabelValues(endpoint, strconv.Itoa(code)).Inc()
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
