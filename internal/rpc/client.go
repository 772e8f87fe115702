package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go-chi-calculator/internal/calculator"
	"go-chi-calculator/internal/observability"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const maxResponseBytes = 64 << 10

// Client calls the calculator over the Connect unary JSON protocol. Any
// returned error is a transport failure; service-level errors are reported
// in CalcResponse.Error.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

var _ calculator.Calculator = (*Client)(nil)

type ClientOption func(*Client)

// WithHTTPClient replaces the default otelhttp-instrumented client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// NewClient returns a Client for the service rooted at baseURL, for example
// "http://localhost:8080".
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Add(ctx context.Context, a, b float64) (calculator.CalcResponse, error) {
	return c.call(ctx, calculator.OpAdd, a, b)
}

func (c *Client) Subtract(ctx context.Context, a, b float64) (calculator.CalcResponse, error) {
	return c.call(ctx, calculator.OpSubtract, a, b)
}

func (c *Client) Multiply(ctx context.Context, a, b float64) (calculator.CalcResponse, error) {
	return c.call(ctx, calculator.OpMultiply, a, b)
}

func (c *Client) Divide(ctx context.Context, a, b float64) (calculator.CalcResponse, error) {
	return c.call(ctx, calculator.OpDivide, a, b)
}

func (c *Client) call(ctx context.Context, op calculator.Operator, a, b float64) (calculator.CalcResponse, error) {
	procedure := Procedure(op)

	body, err := json.Marshal(calculator.CalcRequest{A: a, B: b})
	if err != nil {
		return calculator.CalcResponse{}, fmt.Errorf("encoding %s request: %w", procedure, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+procedure, bytes.NewReader(body))
	if err != nil {
		return calculator.CalcResponse{}, fmt.Errorf("building %s request: %w", procedure, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(protocolVersionHeader, "1")
	if deadline, ok := ctx.Deadline(); ok {
		if ms := time.Until(deadline).Milliseconds(); ms > 0 {
			req.Header.Set(timeoutHeader, strconv.FormatInt(ms, 10))
		}
	}
	if id := observability.RequestIDFromContext(ctx); id != "" {
		req.Header.Set(observability.RequestIDHeader, id)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return calculator.CalcResponse{}, fmt.Errorf("calling %s: %w", procedure, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return calculator.CalcResponse{}, fmt.Errorf("calling %s: %w", procedure, decodeError(resp))
	}

	var out calculator.CalcResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&out); err != nil {
		return calculator.CalcResponse{}, fmt.Errorf("decoding %s response: %w", procedure, err)
	}
	return out, nil
}

// decodeError reads a Connect error body, falling back to the HTTP status
// when the body is missing or not Connect-shaped.
func decodeError(resp *http.Response) *Error {
	var e Error
	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err := json.Unmarshal(data, &e); err != nil || e.Code == "" {
		return &Error{
			Code:    codeFromHTTPStatus(resp.StatusCode),
			Message: strings.TrimSpace(resp.Status),
		}
	}
	return &e
}
