package server

import (
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/cors"

	"go-chi-calculator/internal/calculator"
	"go-chi-calculator/internal/handlers"
	"go-chi-calculator/internal/observability"
	"go-chi-calculator/internal/ratelimit"
	"go-chi-calculator/internal/rpc"
)

// Options configures the HTTP surface.
type Options struct {
	// AllowedOrigins for CORS; empty means "*".
	AllowedOrigins []string
	// Limiter throttles RPC routes per client IP; nil disables throttling.
	Limiter *ratelimit.Limiter
}

func NewRouter(svc calculator.Calculator, opts Options) http.Handler {

	r := chi.NewRouter()

	r.Use(observability.RequestIDMiddleware)
	r.Use(observability.TracingMiddleware)
	r.Use(observability.LoggingMiddleware)
	r.Use(corsMiddleware(opts.AllowedOrigins))

	r.Get("/health", handlers.Health)

	r.Handle("/metrics", observability.PrometheusHandler())

	r.Group(func(r chi.Router) {
		r.Use(rateLimitMiddleware(opts.Limiter))
		rpc.NewHandler(svc).RegisterRoutes(r)
	})

	return r
}

// corsMiddleware lets browser clients call the Connect endpoints directly.
func corsMiddleware(origins []string) func(http.Handler) http.Handler {
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	c := cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{
			"Content-Type",
			"Connect-Protocol-Version",
			"Connect-Timeout-Ms",
			observability.RequestIDHeader,
		},
		ExposedHeaders: []string{
			"Connect-Protocol-Version",
			"Connect-Timeout-Ms",
			observability.RequestIDHeader,
		},
		MaxAge: int((2 * time.Hour).Seconds()),
	})
	return c.Handler
}

func rateLimitMiddleware(l *ratelimit.Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if l == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !l.Allow(clientKey(r), time.Now()) {
				handlers.WriteError(w, http.StatusTooManyRequests, string(rpc.CodeResourceExhausted), "rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func clientKey(r *http.Request) string {
	remote := strings.TrimSpace(r.RemoteAddr)
	if remote == "" {
		return "ip:unknown"
	}
	host, _, err := net.SplitHostPort(remote)
	if err != nil || host == "" {
		return "ip:" + remote
	}
	return "ip:" + host
}
