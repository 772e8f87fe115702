package rpc

import (
	"context"
	"encoding/json"
	"mime"
	"net/http"
	"strconv"
	"time"

	"go-chi-calculator/internal/calculator"
	"go-chi-calculator/internal/handlers"
	"go-chi-calculator/internal/observability"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// ServiceName is the fully-qualified RPC service name shared by the Connect
// and gRPC transports.
const ServiceName = "calculator.v1.CalculatorService"

const (
	protocolVersionHeader = "Connect-Protocol-Version"
	timeoutHeader         = "Connect-Timeout-Ms"

	maxRequestBytes = 64 << 10
)

// Procedure returns the RPC path for op, e.g.
// "/calculator.v1.CalculatorService/Add".
func Procedure(op calculator.Operator) string {
	return "/" + ServiceName + "/" + op.Method()
}

// Handler serves the calculator over the Connect unary JSON protocol.
type Handler struct {
	svc calculator.Calculator
}

func NewHandler(svc calculator.Calculator) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts one POST route per operation under /<ServiceName>.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/"+ServiceName, func(r chi.Router) {
		for _, op := range calculator.Operators {
			r.With(observability.RPCMetricsMiddleware).Post("/"+op.Method(), h.unary(op))
		}
	})
}

func (h *Handler) unary(op calculator.Operator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		logger := observability.LoggerWithTrace(ctx)

		if !isJSON(r.Header.Get("Content-Type")) {
			w.Header().Set("Accept-Post", "application/json")
			w.WriteHeader(http.StatusUnsupportedMediaType)
			return
		}

		ctx, cancel, timeoutErr := withConnectTimeout(ctx, r.Header.Get(timeoutHeader))
		if timeoutErr != nil {
			writeError(w, timeoutErr)
			return
		}
		defer cancel()

		var req calculator.CalcRequest
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes)).Decode(&req); err != nil {
			logger.Warn("invalid request body",
				zap.String("procedure", Procedure(op)),
				zap.Error(err),
				zap.String("request_id", observability.RequestIDFromContext(ctx)),
			)
			writeError(w, &Error{Code: CodeInvalidArgument, Message: "invalid request body: " + err.Error()})
			return
		}

		resp, err := calculator.Invoke(ctx, h.svc, op, req.A, req.B)
		if err != nil {
			writeError(w, errorFromService(err))
			return
		}

		handlers.WriteJSON(w, http.StatusOK, resp)
	}
}

func writeError(w http.ResponseWriter, err *Error) {
	handlers.WriteError(w, err.Code.HTTPStatus(), string(err.Code), err.Message)
}

func isJSON(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mediaType == "application/json"
}

// withConnectTimeout bounds ctx by the Connect-Timeout-Ms header, which is
// at most ten digits of positive milliseconds.
func withConnectTimeout(ctx context.Context, header string) (context.Context, context.CancelFunc, *Error) {
	if header == "" {
		return ctx, func() {}, nil
	}
	ms, err := strconv.ParseInt(header, 10, 64)
	if err != nil || ms <= 0 || len(header) > 10 {
		return ctx, func() {}, &Error{Code: CodeInvalidArgument, Message: "invalid " + timeoutHeader + " " + strconv.Quote(header)}
	}
	ctx, cancel := context.WithTimeout(ctx, time.Duration(ms)*time.Millisecond)
	return ctx, cancel, nil
}
