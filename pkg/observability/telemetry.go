package observability

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	promhttp "github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/zap"
)

// Telemetry bundles the process-wide metric handles: the OpenTelemetry meter
// provider and the HTTP handler that exposes its Prometheus registry.
type Telemetry struct {
	MeterProvider *metric.MeterProvider
	handler       http.Handler
}

// InitTelemetry initializes OpenTelemetry metrics backed by a dedicated
// Prometheus registry and installs the global meter provider.
func InitTelemetry(serviceName string) (*Telemetry, error) {
	registry := prometheus.NewRegistry()

	exporter, err := otelprom.New(
		otelprom.WithRegisterer(registry),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
	}

	meterProvider := metric.NewMeterProvider(
		metric.WithReader(exporter),
	)
	otel.SetMeterProvider(meterProvider)

	return &Telemetry{
		MeterProvider: meterProvider,
		handler:       promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
	}, nil
}

// GinHandler returns a Gin handler serving the Prometheus scrape endpoint
func (t *Telemetry) GinHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if t.handler == nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "metrics handler not initialized",
			})
			return
		}
		t.handler.ServeHTTP(c.Writer, c.Request)
	}
}

// Shutdown flushes and stops the meter provider
func (t *Telemetry) Shutdown(ctx context.Context) error {
	if t.MeterProvider == nil {
		return nil
	}
	return t.MeterProvider.Shutdown(ctx)
}

// InitLogger initializes the structured logger for the given environment and
// installs it as the zap global.
func InitLogger(env, service string) (*zap.Logger, error) {
	var logger *zap.Logger
	var err error

	if env == "production" {
		logger, err = zap.NewProduction()
	} else {
		logger, err = zap.NewDevelopment()
	}

	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	logger = logger.With(zap.String("service", service))
	zap.ReplaceGlobals(logger)

	return logger, nil
}
