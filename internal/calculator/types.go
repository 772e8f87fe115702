package calculator

import (
	"context"
	"errors"
)

// DivideByZeroMessage is the service-level error returned by Divide when b is zero.
const DivideByZeroMessage = "除数不能为零"

// ErrInvalidOperand is returned when an operand is NaN or infinite.
var ErrInvalidOperand = errors.New("invalid numeric operand")

// CalcRequest is the request message for every binary operation.
type CalcRequest struct {
	A float64 `json:"a"`
	B float64 `json:"b"`
}

// CalcResponse carries either a result or a service-level error message.
// An empty Error means success.
type CalcResponse struct {
	Result float64 `json:"result"`
	Error  string  `json:"error,omitempty"`
}

// Failed reports whether the response carries a service-level error.
func (r CalcResponse) Failed() bool {
	return r.Error != ""
}

// Calculator is the remote calculation contract. Implementations return a
// non-nil error only when the call itself failed; domain failures such as
// division by zero travel inside CalcResponse.
type Calculator interface {
	Add(ctx context.Context, a, b float64) (CalcResponse, error)
	Subtract(ctx context.Context, a, b float64) (CalcResponse, error)
	Multiply(ctx context.Context, a, b float64) (CalcResponse, error)
	Divide(ctx context.Context, a, b float64) (CalcResponse, error)
}

// Invoke calls the method of c matching op.
func Invoke(ctx context.Context, c Calculator, op Operator, a, b float64) (CalcResponse, error) {
	switch op {
	case OpAdd:
		return c.Add(ctx, a, b)
	case OpSubtract:
		return c.Subtract(ctx, a, b)
	case OpMultiply:
		return c.Multiply(ctx, a, b)
	case OpDivide:
		return c.Divide(ctx, a, b)
	default:
		return CalcResponse{}, ErrUnknownOperator
	}
}
