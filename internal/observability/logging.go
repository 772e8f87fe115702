package observability

import (
	"context"

	"go.opentelemetry.io/contrib/bridges/otelzap"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploghttp"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// otlpLogLevel is the lowest level exported over OTLP. Debug output stays on
// the local core only.
const otlpLogLevel = zapcore.InfoLevel

// InitLogging tees Logger into an OTLP log pipeline. It must run after
// InitLogger, whose core it wraps.
func InitLogging(ctx context.Context) (func(context.Context) error, error) {

	exporter, err := otlploghttp.New(ctx)
	if err != nil {
		return nil, err
	}

	res, err := newResource(ctx)
	if err != nil {
		return nil, err
	}

	provider := sdklog.NewLoggerProvider(
		sdklog.WithResource(res),
		sdklog.WithProcessor(
			sdklog.NewBatchProcessor(exporter),
		),
	)

	otelCore, err := zapcore.NewIncreaseLevelCore(
		otelzap.NewCore(ServiceName(), otelzap.WithLoggerProvider(provider)),
		otlpLogLevel,
	)
	if err != nil {
		return nil, err
	}

	Logger = zap.New(zapcore.NewTee(Logger.Core(), otelCore))

	return provider.Shutdown, nil
}
