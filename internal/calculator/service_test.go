package calculator

import (
	"context"
	"errors"
	"math"
	"testing"

	"go-chi-calculator/internal/observability"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	svc, err := NewService()
	if err != nil {
		t.Fatalf("NewService() error = %v", err)
	}
	return svc
}

func TestServiceArithmetic(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	tests := []struct {
		name string
		op   Operator
		a, b float64
		want float64
	}{
		{"add positives", OpAdd, 5, 3, 8},
		{"add negatives", OpAdd, -5, -3, -8},
		{"add mixed signs", OpAdd, 5, -3, 2},
		{"add zero", OpAdd, 0, 5, 5},
		{"add decimals", OpAdd, 1.5, 2.5, 4},
		{"subtract positives", OpSubtract, 5, 3, 2},
		{"subtract negatives", OpSubtract, -5, -3, -2},
		{"subtract mixed signs", OpSubtract, 5, -3, 8},
		{"subtract zero", OpSubtract, 5, 0, 5},
		{"subtract decimals", OpSubtract, 3.5, 1.5, 2},
		{"multiply positives", OpMultiply, 5, 3, 15},
		{"multiply negatives", OpMultiply, -5, -3, 15},
		{"multiply mixed signs", OpMultiply, 5, -3, -15},
		{"multiply zero", OpMultiply, 5, 0, 0},
		{"multiply decimals", OpMultiply, 2.5, 4, 10},
		{"divide positives", OpDivide, 6, 3, 2},
		{"divide negatives", OpDivide, -6, -3, 2},
		{"divide mixed signs", OpDivide, 6, -3, -2},
		{"divide decimals", OpDivide, 7.5, 2.5, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := Invoke(ctx, svc, tt.op, tt.a, tt.b)
			if err != nil {
				t.Fatalf("%s() error = %v", tt.op.Method(), err)
			}
			if resp.Result != tt.want {
				t.Errorf("%s() = %v, want %v", tt.op.Method(), resp.Result, tt.want)
			}
			if resp.Error != "" {
				t.Errorf("%s() error message = %q, want empty", tt.op.Method(), resp.Error)
			}
		})
	}
}

func TestServiceDivideByZeroIsServiceLevel(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	old := observability.Logger
	observability.Logger = zap.New(core)
	t.Cleanup(func() { observability.Logger = old })

	svc := newTestService(t)

	for _, b := range []float64{0, math.Copysign(0, -1)} {
		resp, err := svc.Divide(context.Background(), 5, b)
		if err != nil {
			t.Fatalf("Divide() error = %v, want nil: division by zero is not a transport failure", err)
		}
		if resp.Result != 0 {
			t.Errorf("Divide() result = %v, want 0", resp.Result)
		}
		if resp.Error != DivideByZeroMessage {
			t.Errorf("Divide() error message = %q, want %q", resp.Error, DivideByZeroMessage)
		}
	}

	if got := logs.FilterMessage(DivideByZeroMessage).Len(); got != 2 {
		t.Fatalf("expected 2 error log entries, got %d", got)
	}
}

func TestServiceRejectsNonFiniteOperands(t *testing.T) {
	svc := newTestService(t)

	for _, v := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		_, err := svc.Add(context.Background(), v, 1)
		if !errors.Is(err, ErrInvalidOperand) {
			t.Fatalf("Add(%v, 1) error = %v, want ErrInvalidOperand", v, err)
		}
	}
}

func TestServiceLogsCompletion(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	old := observability.Logger
	observability.Logger = zap.New(core)
	t.Cleanup(func() { observability.Logger = old })

	svc := newTestService(t)
	ctx := observability.ContextWithRequestID(context.Background(), "req-7")

	if _, err := svc.Multiply(ctx, 2, 21); err != nil {
		t.Fatalf("Multiply() error = %v", err)
	}

	entries := logs.FilterMessage("calculator operation completed").All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 completion log, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["operation"] != "multiply" {
		t.Errorf("operation field = %#v", fields["operation"])
	}
	if fields["result"] != float64(42) {
		t.Errorf("result field = %#v", fields["result"])
	}
	if fields["request_id"] != "req-7" {
		t.Errorf("request_id field = %#v", fields["request_id"])
	}
}

func TestEvaluateUnknownOperator(t *testing.T) {
	resp := Evaluate(Operator(99), 1, 2)
	if !resp.Failed() {
		t.Fatalf("expected failure for unknown operator, got %+v", resp)
	}
}

func BenchmarkServiceAdd(b *testing.B) {
	svc, err := NewService()
	if err != nil {
		b.Fatal(err)
	}
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := svc.Add(ctx, 5, 3); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkServiceDivide(b *testing.B) {
	svc, err := NewService()
	if err != nil {
		b.Fatal(err)
	}
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := svc.Divide(ctx, 6, 3); err != nil {
			b.Fatal(err)
		}
	}
}
