package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// GRPCRequestIDKey is the metadata key carrying the request id over gRPC.
const GRPCRequestIDKey = "x-request-id"

var rpcTracer = otel.Tracer("rpc")

// UnaryServerInterceptor is the gRPC counterpart of the HTTP middleware
// chain: request id, server span, Prometheus metrics and a completion log.
func UnaryServerInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	requestID := ""
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if v := md.Get(GRPCRequestIDKey); len(v) > 0 && ValidRequestID(v[0]) {
			requestID = v[0]
		}
	}
	if requestID == "" {
		requestID = NewRequestID()
	}
	ctx = ContextWithRequestID(ctx, requestID)
	_ = grpc.SetHeader(ctx, metadata.Pairs(GRPCRequestIDKey, requestID))

	ctx, span := rpcTracer.Start(ctx, info.FullMethod,
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(
			attribute.String("rpc.system", "grpc"),
			attribute.String("rpc.method", info.FullMethod),
			attribute.String("request.id", requestID),
		),
	)
	defer span.End()

	start := time.Now()
	resp, err := handler(ctx, req)
	elapsed := time.Since(start)

	code := status.Code(err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, code.String())
	}
	ObserveRPC(info.FullMethod, "grpc", code.String(), elapsed.Seconds())

	LoggerWithTrace(ctx).Info("rpc completed",
		zap.String("method", info.FullMethod),
		zap.String("code", code.String()),
		zap.String("request_id", requestID),
		zap.Duration("duration", elapsed),
	)

	return resp, err
}
