// Package calculatortest provides a scriptable calculator.Calculator for tests.
package calculatortest

import (
	"context"
	"sync"

	"go-chi-calculator/internal/calculator"
)

// Call records one invocation of a Stub.
type Call struct {
	Op   calculator.Operator
	A, B float64
}

// Stub records every call. Handler decides each response; when nil the real
// arithmetic from calculator.Evaluate is used.
type Stub struct {
	Handler func(ctx context.Context, call Call) (calculator.CalcResponse, error)

	mu    sync.Mutex
	calls []Call
}

var _ calculator.Calculator = (*Stub)(nil)

func (s *Stub) Add(ctx context.Context, a, b float64) (calculator.CalcResponse, error) {
	return s.do(ctx, Call{calculator.OpAdd, a, b})
}

func (s *Stub) Subtract(ctx context.Context, a, b float64) (calculator.CalcResponse, error) {
	return s.do(ctx, Call{calculator.OpSubtract, a, b})
}

func (s *Stub) Multiply(ctx context.Context, a, b float64) (calculator.CalcResponse, error) {
	return s.do(ctx, Call{calculator.OpMultiply, a, b})
}

func (s *Stub) Divide(ctx context.Context, a, b float64) (calculator.CalcResponse, error) {
	return s.do(ctx, Call{calculator.OpDivide, a, b})
}

// Calls returns a copy of the recorded invocations in order.
func (s *Stub) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Call(nil), s.calls...)
}

func (s *Stub) do(ctx context.Context, c Call) (calculator.CalcResponse, error) {
	s.mu.Lock()
	s.calls = append(s.calls, c)
	s.mu.Unlock()

	if s.Handler != nil {
		return s.Handler(ctx, c)
	}
	return calculator.Evaluate(c.Op, c.A, c.B), nil
}
