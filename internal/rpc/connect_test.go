package rpc

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-chi-calculator/internal/calculator"
	"go-chi-calculator/internal/calculator/calculatortest"
	"go-chi-calculator/internal/testutil"
)

func newConnectRouter(t *testing.T, svc calculator.Calculator) http.Handler {
	t.Helper()
	r := chi.NewRouter()
	NewHandler(svc).RegisterRoutes(r)
	return r
}

func newService(t *testing.T) *calculator.Service {
	t.Helper()
	svc, err := calculator.NewService()
	require.NoError(t, err)
	return svc
}

func TestConnectHandlerOperations(t *testing.T) {
	h := newConnectRouter(t, newService(t))

	tests := []struct {
		op   calculator.Operator
		body string
		want calculator.CalcResponse
	}{
		{calculator.OpAdd, `{"a":5,"b":3}`, calculator.CalcResponse{Result: 8}},
		{calculator.OpSubtract, `{"a":5,"b":3}`, calculator.CalcResponse{Result: 2}},
		{calculator.OpMultiply, `{"a":5,"b":3}`, calculator.CalcResponse{Result: 15}},
		{calculator.OpDivide, `{"a":6,"b":3}`, calculator.CalcResponse{Result: 2}},
		{calculator.OpDivide, `{"a":5,"b":0}`, calculator.CalcResponse{Error: calculator.DivideByZeroMessage}},
		{calculator.OpAdd, `{}`, calculator.CalcResponse{Result: 0}},
	}

	for _, tc := range tests {
		t.Run(tc.op.Method()+" "+tc.body, func(t *testing.T) {
			w := testutil.ExecuteRequest(testutil.NewJSONRequest(t, Procedure(tc.op), tc.body), h)
			testutil.CheckResponseCode(t, http.StatusOK, w.Code)
			assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

			var got calculator.CalcResponse
			testutil.DecodeJSONBody(t, w.Body, &got)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestConnectHandlerRejectsNonJSON(t *testing.T) {
	h := newConnectRouter(t, newService(t))

	req := testutil.NewJSONRequest(t, Procedure(calculator.OpAdd), `{"a":1,"b":2}`)
	req.Header.Set("Content-Type", "application/proto")
	w := testutil.ExecuteRequest(req, h)

	testutil.CheckResponseCode(t, http.StatusUnsupportedMediaType, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Accept-Post"))
}

func TestConnectHandlerAcceptsCharsetParameter(t *testing.T) {
	h := newConnectRouter(t, newService(t))

	req := testutil.NewJSONRequest(t, Procedure(calculator.OpAdd), `{"a":1,"b":2}`)
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	w := testutil.ExecuteRequest(req, h)

	testutil.CheckResponseCode(t, http.StatusOK, w.Code)
}

func TestConnectHandlerErrors(t *testing.T) {
	h := newConnectRouter(t, newService(t))

	tests := []struct {
		name    string
		body    string
		timeout string
		status  int
		code    Code
	}{
		{name: "malformed body", body: `{"a":`, status: http.StatusBadRequest, code: CodeInvalidArgument},
		{name: "non-numeric operand", body: `{"a":"five","b":1}`, status: http.StatusBadRequest, code: CodeInvalidArgument},
		{name: "NaN operand", body: `{"a":"NaN","b":1}`, status: http.StatusBadRequest, code: CodeInvalidArgument},
		{name: "infinite operand", body: `{"a":1,"b":"-Infinity"}`, status: http.StatusBadRequest, code: CodeInvalidArgument},
		{name: "bad timeout", body: `{"a":1,"b":1}`, timeout: "soon", status: http.StatusBadRequest, code: CodeInvalidArgument},
		{name: "timeout too long", body: `{"a":1,"b":1}`, timeout: "12345678901", status: http.StatusBadRequest, code: CodeInvalidArgument},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := testutil.NewJSONRequest(t, Procedure(calculator.OpAdd), tc.body)
			if tc.timeout != "" {
				req.Header.Set(timeoutHeader, tc.timeout)
			}
			w := testutil.ExecuteRequest(req, h)
			testutil.CheckResponseCode(t, tc.status, w.Code)

			var got Error
			testutil.DecodeJSONBody(t, w.Body, &got)
			assert.Equal(t, tc.code, got.Code)
			assert.NotEmpty(t, got.Message)
		})
	}
}

func TestConnectHandlerHonoursTimeoutHeader(t *testing.T) {
	stub := &calculatortest.Stub{
		Handler: func(ctx context.Context, _ calculatortest.Call) (calculator.CalcResponse, error) {
			<-ctx.Done()
			return calculator.CalcResponse{}, ctx.Err()
		},
	}
	h := newConnectRouter(t, stub)

	req := testutil.NewJSONRequest(t, Procedure(calculator.OpAdd), `{"a":1,"b":1}`)
	req.Header.Set(timeoutHeader, "20")

	start := time.Now()
	w := testutil.ExecuteRequest(req, h)
	assert.Less(t, time.Since(start), 5*time.Second)

	testutil.CheckResponseCode(t, http.StatusGatewayTimeout, w.Code)
	var got Error
	testutil.DecodeJSONBody(t, w.Body, &got)
	assert.Equal(t, CodeDeadlineExceeded, got.Code)
}

func TestConnectHandlerRejectsGet(t *testing.T) {
	h := newConnectRouter(t, newService(t))

	req := testutil.NewJSONRequest(t, Procedure(calculator.OpAdd), "")
	req.Method = http.MethodGet
	w := testutil.ExecuteRequest(req, h)

	testutil.CheckResponseCode(t, http.StatusMethodNotAllowed, w.Code)
}

func TestConnectHandlerUnknownProcedure(t *testing.T) {
	h := newConnectRouter(t, newService(t))

	w := testutil.ExecuteRequest(testutil.NewJSONRequest(t, "/"+ServiceName+"/Modulo", `{}`), h)
	testutil.CheckResponseCode(t, http.StatusNotFound, w.Code)
}

func TestProcedure(t *testing.T) {
	paths := make([]string, 0, len(calculator.Operators))
	for _, op := range calculator.Operators {
		paths = append(paths, Procedure(op))
	}
	assert.Equal(t, strings.Join([]string{
		"/calculator.v1.CalculatorService/Add",
		"/calculator.v1.CalculatorService/Subtract",
		"/calculator.v1.CalculatorService/Multiply",
		"/calculator.v1.CalculatorService/Divide",
	}, ","), strings.Join(paths, ","))
}
