package server

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go-chi-calculator/internal/calculator"
	"go-chi-calculator/internal/observability"
	"go-chi-calculator/internal/ratelimit"
	"go-chi-calculator/internal/testutil"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

const addPath = "/calculator.v1.CalculatorService/Add"

func newTestRouter(t *testing.T, opts Options) http.Handler {
	t.Helper()
	svc, err := calculator.NewService()
	if err != nil {
		t.Fatalf("NewService() error = %v", err)
	}
	return NewRouter(svc, opts)
}

func TestNewRouterHealthEndpoint(t *testing.T) {
	router := newTestRouter(t, Options{})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := testutil.ExecuteRequest(req, router)

	testutil.CheckResponseCode(t, http.StatusOK, w.Code)
	if body := w.Body.String(); body != "ok" {
		t.Fatalf("expected body %q, got %q", "ok", body)
	}
}

func TestNewRouterMetricsEndpoint(t *testing.T) {
	router := newTestRouter(t, Options{})

	_ = testutil.ExecuteRequest(testutil.NewJSONRequest(t, addPath, `{"a":1,"b":2}`), router)

	w := testutil.ExecuteRequest(httptest.NewRequest(http.MethodGet, "/metrics", nil), router)
	testutil.CheckResponseCode(t, http.StatusOK, w.Code)
	if !strings.Contains(w.Body.String(), "calculator_rpc_requests_total") {
		t.Fatal("expected calculator_rpc_requests_total in /metrics output")
	}
}

func TestNewRouterAddEndpoint(t *testing.T) {
	router := newTestRouter(t, Options{})

	w := testutil.ExecuteRequest(testutil.NewJSONRequest(t, addPath, `{"a":2,"b":3}`), router)
	testutil.CheckResponseCode(t, http.StatusOK, w.Code)

	var got calculator.CalcResponse
	testutil.DecodeJSONBody(t, w.Body, &got)
	if got.Result != 5 || got.Error != "" {
		t.Fatalf("expected result 5, got %+v", got)
	}

	requestID := w.Result().Header.Get(observability.RequestIDHeader)
	if _, err := uuid.Parse(requestID); err != nil {
		t.Fatalf("expected X-Request-ID UUID, got %q: %v", requestID, err)
	}
}

func TestNewRouterDivideByZeroIsInBand(t *testing.T) {
	router := newTestRouter(t, Options{})

	w := testutil.ExecuteRequest(
		testutil.NewJSONRequest(t, "/calculator.v1.CalculatorService/Divide", `{"a":5,"b":0}`),
		router,
	)
	testutil.CheckResponseCode(t, http.StatusOK, w.Code)

	var got calculator.CalcResponse
	testutil.DecodeJSONBody(t, w.Body, &got)
	if got.Error != calculator.DivideByZeroMessage {
		t.Fatalf("expected error %q, got %+v", calculator.DivideByZeroMessage, got)
	}
}

func TestNewRouterRejectsNonJSON(t *testing.T) {
	router := newTestRouter(t, Options{})

	req := testutil.NewJSONRequest(t, addPath, `{"a":2,"b":3}`)
	req.Header.Set("Content-Type", "text/plain")
	w := testutil.ExecuteRequest(req, router)

	testutil.CheckResponseCode(t, http.StatusUnsupportedMediaType, w.Code)
}

func TestNewRouterRateLimit(t *testing.T) {
	router := newTestRouter(t, Options{Limiter: ratelimit.New(0.001, 1, time.Minute)})

	w := testutil.ExecuteRequest(testutil.NewJSONRequest(t, addPath, `{"a":1,"b":1}`), router)
	testutil.CheckResponseCode(t, http.StatusOK, w.Code)

	w = testutil.ExecuteRequest(testutil.NewJSONRequest(t, addPath, `{"a":1,"b":1}`), router)
	testutil.CheckResponseCode(t, http.StatusTooManyRequests, w.Code)

	var body map[string]string
	testutil.DecodeJSONBody(t, w.Body, &body)
	if body["code"] != "resource_exhausted" {
		t.Fatalf("expected code resource_exhausted, got %#v", body)
	}

	// Health checks are never throttled.
	w = testutil.ExecuteRequest(httptest.NewRequest(http.MethodGet, "/health", nil), router)
	testutil.CheckResponseCode(t, http.StatusOK, w.Code)
}

func TestNewRouterCORSPreflight(t *testing.T) {
	router := newTestRouter(t, Options{AllowedOrigins: []string{"http://localhost:5173"}})

	req := httptest.NewRequest(http.MethodOptions, addPath, nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	// Browsers send the requested headers lower-cased and sorted.
	req.Header.Set("Access-Control-Request-Headers", "connect-protocol-version,content-type,x-request-id")
	w := testutil.ExecuteRequest(req, router)

	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:5173" {
		t.Fatalf("expected allowed origin header, got %q", got)
	}

	req = httptest.NewRequest(http.MethodOptions, addPath, nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "authorization")
	w = testutil.ExecuteRequest(req, router)

	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Fatalf("expected preflight with a header outside the allow list to be refused, got %q", got)
	}

	req = httptest.NewRequest(http.MethodOptions, addPath, nil)
	req.Header.Set("Origin", "http://evil.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w = testutil.ExecuteRequest(req, router)

	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Fatalf("expected no allowed origin for foreign site, got %q", got)
	}
}

func TestNewRouterLogsRequests(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	oldLogger := observability.Logger
	observability.Logger = zap.New(core)
	t.Cleanup(func() { observability.Logger = oldLogger })

	router := newTestRouter(t, Options{})
	_ = testutil.ExecuteRequest(testutil.NewJSONRequest(t, addPath, `{"a":2,"b":3}`), router)

	entries := logs.FilterMessage("request completed").All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 request log, got %d", len(entries))
	}
	if got := entries[0].ContextMap()["path"]; got != addPath {
		t.Fatalf("expected path %q, got %#v", addPath, got)
	}
	if logs.FilterMessage("calculator operation completed").Len() != 1 {
		t.Fatal("expected calculator completion log")
	}
}

func TestClientKey(t *testing.T) {
	tests := []struct {
		remote string
		want   string
	}{
		{"192.0.2.1:1234", "ip:192.0.2.1"},
		{"[2001:db8::1]:80", "ip:2001:db8::1"},
		{"unix", "ip:unix"},
		{"", "ip:unknown"},
	}

	for _, tc := range tests {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.RemoteAddr = tc.remote
		if got := clientKey(r); got != tc.want {
			t.Fatalf("clientKey(%q) = %q, want %q", tc.remote, got, tc.want)
		}
	}
}
