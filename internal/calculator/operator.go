package calculator

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownOperator is returned for operators outside the supported set.
var ErrUnknownOperator = errors.New("unknown operator")

// Operator selects one of the four binary operations. The zero value is OpAdd.
type Operator int

const (
	OpAdd Operator = iota
	OpSubtract
	OpMultiply
	OpDivide
)

// Operators lists every operator in display order.
var Operators = []Operator{OpAdd, OpSubtract, OpMultiply, OpDivide}

var operatorInfo = [...]struct {
	name   string
	method string
	symbol string
}{
	OpAdd:      {"add", "Add", "+"},
	OpSubtract: {"subtract", "Subtract", "-"},
	OpMultiply: {"multiply", "Multiply", "×"},
	OpDivide:   {"divide", "Divide", "÷"},
}

// Valid reports whether o is one of the four supported operators.
func (o Operator) Valid() bool {
	return o >= OpAdd && o <= OpDivide
}

// String returns the lower-case operation name, e.g. "add".
func (o Operator) String() string {
	if !o.Valid() {
		return fmt.Sprintf("Operator(%d)", int(o))
	}
	return operatorInfo[o].name
}

// Method returns the RPC method name, e.g. "Add".
func (o Operator) Method() string {
	if !o.Valid() {
		return ""
	}
	return operatorInfo[o].method
}

// Symbol returns the display symbol.
func (o Operator) Symbol() string {
	if !o.Valid() {
		return "?"
	}
	return operatorInfo[o].symbol
}

// ParseOperator accepts a display symbol, a common ASCII alias or an
// operation name (case-insensitive).
func ParseOperator(s string) (Operator, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "+", "add", "plus":
		return OpAdd, nil
	case "-", "−", "subtract", "sub", "minus":
		return OpSubtract, nil
	case "×", "*", "x", "multiply", "mul", "times":
		return OpMultiply, nil
	case "÷", "/", "divide", "div":
		return OpDivide, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownOperator, s)
}
