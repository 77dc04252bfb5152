// Package promexport exposes the engine's OTEL metrics on a Prometheus
// /metrics endpoint, used by cmd/finagent's --debug mode.
package promexport

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/sdk/metric"
)

// NewMeterProvider builds an OTEL MeterProvider backed by a Prometheus
// exporter, registered against a dedicated registry so it never collides
// with other Prometheus collectors the host process might register.
func NewMeterProvider() (*metric.MeterProvider, *prometheus.Registry, error) {
	registry := prometheus.NewRegistry()
	exporter, err := otelprom.New(otelprom.WithRegisterer(registry))
	if err != nil {
		return nil, nil, err
	}
	provider := metric.NewMeterProvider(metric.WithReader(exporter))
	return provider, registry, nil
}

// Handler returns an http.Handler serving the registry's metrics in the
// Prometheus text exposition format.
func Handler(registry *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
