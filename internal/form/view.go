package form

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"go-chi-calculator/internal/calculator"
)

// Display strings shown by front ends.
const (
	FirstPlaceholder  = "请输入第一个数字"
	SecondPlaceholder = "请输入第二个数字"

	PromptText  = "请输入两个数字开始计算"
	LoadingText = "计算中..."

	// ErrorPrefix precedes every rendered error.
	ErrorPrefix = "错误: "
	// TransportFailureMessage replaces the underlying transport error, which
	// is logged but never shown.
	TransportFailureMessage = "计算失败"
)

// Phase is the controller's position in its state machine.
type Phase int

const (
	PhaseEmpty Phase = iota
	PhasePending
	PhaseInFlight
	PhaseSuccess
	PhaseFailed
	PhaseTransportError
)

var phaseNames = [...]string{
	PhaseEmpty:          "empty",
	PhasePending:        "pending",
	PhaseInFlight:       "in-flight",
	PhaseSuccess:        "success",
	PhaseFailed:         "failed",
	PhaseTransportError: "transport-error",
}

func (p Phase) String() string {
	if p < 0 || int(p) >= len(phaseNames) {
		return fmt.Sprintf("Phase(%d)", int(p))
	}
	return phaseNames[p]
}

// Settled reports whether p holds an outcome.
func (p Phase) Settled() bool {
	return p == PhaseSuccess || p == PhaseFailed || p == PhaseTransportError
}

// View is an immutable snapshot of the form for rendering.
type View struct {
	First    string
	Second   string
	Operator calculator.Operator
	Phase    Phase
	Loading  bool
	Text     string
}

// outcome is a settled call together with the inputs it was issued for.
type outcome struct {
	first, second string
	op            calculator.Operator
	resp          calculator.CalcResponse
	transportErr  bool
}

func (o *outcome) text() string {
	switch {
	case o.transportErr:
		return ErrorPrefix + TransportFailureMessage
	case o.resp.Failed():
		return ErrorPrefix + o.resp.Error
	}
	return fmt.Sprintf("%s %s %s = %s", o.first, o.op.Symbol(), o.second, FormatNumber(o.resp.Result))
}

// ParseOperand parses user input as a finite decimal number. Blank input,
// malformed input, hex and underscore-separated forms, NaN and infinities all
// report ok == false.
func ParseOperand(s string) (v float64, ok bool) {
	s = strings.TrimSpace(s)
	if s == "" || strings.IndexFunc(s, notDecimal) >= 0 {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

func notDecimal(r rune) bool {
	switch {
	case r >= '0' && r <= '9':
		return false
	case r == '.', r == 'e', r == 'E', r == '+', r == '-':
		return false
	}
	return true
}

// FormatNumber renders f the way a browser prints a JavaScript number:
// shortest round-trip digits, fixed notation between 1e-6 and 1e21 and
// exponent notation outside it.
func FormatNumber(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	case f == 0:
		return "0"
	}

	if abs := math.Abs(f); abs >= 1e21 || abs < 1e-6 {
		s := strconv.FormatFloat(f, 'e', -1, 64)
		s = strings.Replace(s, "e+0", "e+", 1)
		s = strings.Replace(s, "e-0", "e-", 1)
		return s
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}
