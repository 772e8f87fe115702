package rpc

import (
	"context"
	"encoding/json"
	"fmt"

	"go-chi-calculator/internal/calculator"
	"go-chi-calculator/internal/observability"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/encoding"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// codecName is the gRPC content subtype: messages travel as
// application/grpc+json using the same JSON shape as the Connect transport.
const codecName = "json"

type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error)      { return json.Marshal(v) }
func (jsonCodec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }
func (jsonCodec) Name() string                       { return codecName }

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*calculator.Calculator)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: calculator.OpAdd.Method(), Handler: grpcUnary(calculator.OpAdd)},
		{MethodName: calculator.OpSubtract.Method(), Handler: grpcUnary(calculator.OpSubtract)},
		{MethodName: calculator.OpMultiply.Method(), Handler: grpcUnary(calculator.OpMultiply)},
		{MethodName: calculator.OpDivide.Method(), Handler: grpcUnary(calculator.OpDivide)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "calculator/v1/calculator.proto",
}

func grpcUnary(op calculator.Operator) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(calculator.CalcRequest)
		if err := dec(in); err != nil {
			return nil, err
		}
		call := func(ctx context.Context, req any) (any, error) {
			r := req.(*calculator.CalcRequest)
			resp, err := calculator.Invoke(ctx, srv.(calculator.Calculator), op, r.A, r.B)
			if err != nil {
				return nil, errorFromService(err).GRPCStatus().Err()
			}
			return &resp, nil
		}
		if interceptor == nil {
			return call(ctx, in)
		}
		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: Procedure(op),
		}
		return interceptor(ctx, in, info, call)
	}
}

// RegisterGRPC registers svc as calculator.v1.CalculatorService on s.
func RegisterGRPC(s grpc.ServiceRegistrar, svc calculator.Calculator) {
	s.RegisterService(&serviceDesc, svc)
}

// NewGRPCServer returns a gRPC server with the observability interceptor
// installed and svc registered.
func NewGRPCServer(svc calculator.Calculator, opts ...grpc.ServerOption) *grpc.Server {
	opts = append([]grpc.ServerOption{
		grpc.ChainUnaryInterceptor(observability.UnaryServerInterceptor),
	}, opts...)
	s := grpc.NewServer(opts...)
	RegisterGRPC(s, svc)
	return s
}

// GRPCClient calls the calculator over gRPC. Status errors are converted to
// *Error so both clients report transport failures the same way.
type GRPCClient struct {
	conn *grpc.ClientConn
}

var _ calculator.Calculator = (*GRPCClient)(nil)

// DialGRPC creates a client for target. The connection is established lazily
// on the first call.
func DialGRPC(target string, opts ...grpc.DialOption) (*GRPCClient, error) {
	opts = append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(codecName)),
	}, opts...)
	conn, err := grpc.NewClient(target, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating grpc client for %s: %w", target, err)
	}
	return &GRPCClient{conn: conn}, nil
}

func (c *GRPCClient) Close() error {
	return c.conn.Close()
}

func (c *GRPCClient) Add(ctx context.Context, a, b float64) (calculator.CalcResponse, error) {
	return c.call(ctx, calculator.OpAdd, a, b)
}

func (c *GRPCClient) Subtract(ctx context.Context, a, b float64) (calculator.CalcResponse, error) {
	return c.call(ctx, calculator.OpSubtract, a, b)
}

func (c *GRPCClient) Multiply(ctx context.Context, a, b float64) (calculator.CalcResponse, error) {
	return c.call(ctx, calculator.OpMultiply, a, b)
}

func (c *GRPCClient) Divide(ctx context.Context, a, b float64) (calculator.CalcResponse, error) {
	return c.call(ctx, calculator.OpDivide, a, b)
}

func (c *GRPCClient) call(ctx context.Context, op calculator.Operator, a, b float64) (calculator.CalcResponse, error) {
	if id := observability.RequestIDFromContext(ctx); id != "" {
		ctx = metadata.AppendToOutgoingContext(ctx, observability.GRPCRequestIDKey, id)
	}

	var out calculator.CalcResponse
	if err := c.conn.Invoke(ctx, Procedure(op), &calculator.CalcRequest{A: a, B: b}, &out); err != nil {
		return calculator.CalcResponse{}, fmt.Errorf("calling %s: %w", Procedure(op), errorFromStatus(err))
	}
	return out, nil
}

func errorFromStatus(err error) error {
	st, ok := status.FromError(err)
	if !ok {
		return err
	}
	return &Error{Code: codeFromGRPC(st.Code()), Message: st.Message()}
}
