package observability

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// Prometheus collectors scraped from /metrics. The OTel instruments go to the
// OTLP exporter instead.
var (
	rpcRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "calculator",
		Name:      "rpc_requests_total",
		Help:      "RPC requests handled, by procedure, transport and status code.",
	}, []string{"procedure", "transport", "code"})

	rpcDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "calculator",
		Name:      "rpc_duration_seconds",
		Help:      "RPC handling latency, by procedure and transport.",
		Buckets:   []float64{.0005, .001, .005, .01, .05, .1, .5, 1},
	}, []string{"procedure", "transport"})
)

// InitMetrics installs a global OTLP meter provider.
func InitMetrics(ctx context.Context) (func(context.Context) error, error) {

	exporter, err := otlpmetrichttp.New(ctx)
	if err != nil {
		return nil, err
	}

	res, err := newResource(ctx)
	if err != nil {
		return nil, err
	}

	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(
			sdkmetric.NewPeriodicReader(exporter),
		),
	)

	otel.SetMeterProvider(provider)

	return provider.Shutdown, nil
}

// ObserveRPC records one handled RPC on the Prometheus collectors.
func ObserveRPC(procedure, transport, code string, seconds float64) {
	rpcRequests.WithLabelValues(procedure, transport, code).Inc()
	rpcDuration.WithLabelValues(procedure, transport).Observe(seconds)
}

func PrometheusHandler() http.Handler {
	return promhttp.Handler()
}
