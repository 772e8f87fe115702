package rpc

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"go-chi-calculator/internal/calculator"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Code is a Connect error code as it appears on the wire.
type Code string

const (
	CodeCanceled          Code = "canceled"
	CodeUnknown           Code = "unknown"
	CodeInvalidArgument   Code = "invalid_argument"
	CodeDeadlineExceeded  Code = "deadline_exceeded"
	CodeNotFound          Code = "not_found"
	CodeResourceExhausted Code = "resource_exhausted"
	CodeUnimplemented     Code = "unimplemented"
	CodeInternal          Code = "internal"
	CodeUnavailable       Code = "unavailable"
)

var codeInfo = map[Code]struct {
	http int
	grpc codes.Code
}{
	CodeCanceled:          {499, codes.Canceled},
	CodeUnknown:           {http.StatusInternalServerError, codes.Unknown},
	CodeInvalidArgument:   {http.StatusBadRequest, codes.InvalidArgument},
	CodeDeadlineExceeded:  {http.StatusGatewayTimeout, codes.DeadlineExceeded},
	CodeNotFound:          {http.StatusNotFound, codes.NotFound},
	CodeResourceExhausted: {http.StatusTooManyRequests, codes.ResourceExhausted},
	CodeUnimplemented:     {http.StatusNotImplemented, codes.Unimplemented},
	CodeInternal:          {http.StatusInternalServerError, codes.Internal},
	CodeUnavailable:       {http.StatusServiceUnavailable, codes.Unavailable},
}

// HTTPStatus returns the HTTP status the Connect protocol pairs with c.
func (c Code) HTTPStatus() int {
	if info, ok := codeInfo[c]; ok {
		return info.http
	}
	return http.StatusInternalServerError
}

func (c Code) grpcCode() codes.Code {
	if info, ok := codeInfo[c]; ok {
		return info.grpc
	}
	return codes.Unknown
}

// codeFromHTTPStatus infers a code for error responses without a Connect body,
// e.g. from a proxy in front of the service.
func codeFromHTTPStatus(status int) Code {
	switch status {
	case http.StatusBadRequest:
		return CodeInvalidArgument
	case http.StatusNotFound:
		return CodeUnimplemented
	case http.StatusTooManyRequests, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return CodeUnavailable
	case http.StatusRequestTimeout:
		return CodeDeadlineExceeded
	}
	return CodeUnknown
}

func codeFromGRPC(c codes.Code) Code {
	for code, info := range codeInfo {
		if info.grpc == c {
			return code
		}
	}
	return CodeUnknown
}

// Error is a protocol-level RPC failure. It never carries service-level
// errors such as division by zero; those travel inside CalcResponse.
type Error struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	if e.Message == "" {
		return string(e.Code)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// GRPCStatus lets status.FromError and status.Code see through Error.
func (e *Error) GRPCStatus() *status.Status {
	return status.New(e.Code.grpcCode(), e.Message)
}

// CodeOf returns the Code of err, CodeUnknown when err is not an *Error.
func CodeOf(err error) Code {
	var rpcErr *Error
	if errors.As(err, &rpcErr) {
		return rpcErr.Code
	}
	return CodeUnknown
}

// errorFromService maps an error returned by a calculator.Calculator onto
// an RPC error.
func errorFromService(err error) *Error {
	var rpcErr *Error
	switch {
	case errors.As(err, &rpcErr):
		return rpcErr
	case errors.Is(err, calculator.ErrInvalidOperand), errors.Is(err, calculator.ErrUnknownOperator):
		return &Error{Code: CodeInvalidArgument, Message: err.Error()}
	case errors.Is(err, context.DeadlineExceeded):
		return &Error{Code: CodeDeadlineExceeded, Message: err.Error()}
	case errors.Is(err, context.Canceled):
		return &Error{Code: CodeCanceled, Message: err.Error()}
	}
	return &Error{Code: CodeInternal, Message: err.Error()}
}
