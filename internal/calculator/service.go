package calculator

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"go-chi-calculator/internal/observability"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// tracer is the calculator's dedicated OpenTelemetry tracer.
var tracer = otel.Tracer("calculator")

var errDivideByZero = errors.New("division by zero")

// Evaluate applies op to a and b. Division by zero yields a service-level
// error response rather than an Inf or NaN result.
func Evaluate(op Operator, a, b float64) CalcResponse {
	switch op {
	case OpAdd:
		return CalcResponse{Result: a + b}
	case OpSubtract:
		return CalcResponse{Result: a - b}
	case OpMultiply:
		return CalcResponse{Result: a * b}
	case OpDivide:
		if b == 0 {
			return CalcResponse{Result: 0, Error: DivideByZeroMessage}
		}
		return CalcResponse{Result: a / b}
	}
	return CalcResponse{Error: ErrUnknownOperator.Error()}
}

// Service is the server-side Calculator. It is stateless apart from its
// metric instruments and safe for concurrent use.
type Service struct {
	metrics *instruments
}

var _ Calculator = (*Service)(nil)

// NewService creates a Service whose instruments are registered on the
// global OTel meter provider.
func NewService() (*Service, error) {
	m, err := newInstruments(otel.Meter("calculator"))
	if err != nil {
		return nil, err
	}
	return &Service{metrics: m}, nil
}

func (s *Service) Add(ctx context.Context, a, b float64) (CalcResponse, error) {
	return s.compute(ctx, OpAdd, a, b)
}

func (s *Service) Subtract(ctx context.Context, a, b float64) (CalcResponse, error) {
	return s.compute(ctx, OpSubtract, a, b)
}

func (s *Service) Multiply(ctx context.Context, a, b float64) (CalcResponse, error) {
	return s.compute(ctx, OpMultiply, a, b)
}

// Divide returns a service-level error when b is zero.
func (s *Service) Divide(ctx context.Context, a, b float64) (CalcResponse, error) {
	return s.compute(ctx, OpDivide, a, b)
}

// compute is the shared implementation for all binary operations: it opens a
// child span, validates the operands, records metrics and writes a
// trace-correlated log line.
func (s *Service) compute(ctx context.Context, op Operator, a, b float64) (CalcResponse, error) {
	opName := op.String()
	logger := observability.LoggerWithTrace(ctx)
	requestID := observability.RequestIDFromContext(ctx)

	ctx, span := tracer.Start(ctx, fmt.Sprintf("calculator.%s", opName),
		trace.WithAttributes(
			attribute.String("calculator.operation", opName),
			attribute.String("request.id", requestID),
		),
	)
	defer span.End()

	if !finite(a) || !finite(b) {
		err := fmt.Errorf("%w: a=%g b=%g", ErrInvalidOperand, a, b)
		observability.RecordError(ctx, span, logger, s.metrics.errors, opName, "invalid numeric input", err)
		return CalcResponse{}, err
	}

	span.SetAttributes(
		attribute.Float64("calculator.operand.a", a),
		attribute.Float64("calculator.operand.b", b),
	)

	start := time.Now()
	resp := Evaluate(op, a, b)
	elapsed := float64(time.Since(start).Microseconds()) / 1000.0 // ms

	attrs := metric.WithAttributes(attribute.String("operation", opName))
	s.metrics.ops.Add(ctx, 1, attrs)
	s.metrics.duration.Record(ctx, elapsed, attrs)

	if resp.Failed() {
		// Reported in-band; the call itself still succeeds.
		observability.RecordError(ctx, span, logger, s.metrics.errors, opName, resp.Error,
			fmt.Errorf("%w: %g / %g", errDivideByZero, a, b))
		return resp, nil
	}

	s.metrics.result.Record(ctx, resp.Result, attrs)

	span.AddEvent("computation.complete", trace.WithAttributes(
		attribute.Float64("result", resp.Result),
		attribute.Float64("duration_ms", elapsed),
	))
	span.SetAttributes(attribute.Float64("calculator.result", resp.Result))
	span.SetStatus(codes.Ok, "")

	logger.Info("calculator operation completed",
		zap.String("operation", opName),
		zap.Float64("a", a),
		zap.Float64("b", b),
		zap.Float64("result", resp.Result),
		zap.String("request_id", requestID),
		zap.Float64("duration_ms", elapsed),
	)

	return resp, nil
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
