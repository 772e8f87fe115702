package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go-chi-calculator/internal/calculator"
	"go-chi-calculator/internal/config"
	"go-chi-calculator/internal/observability"
	"go-chi-calculator/internal/ratelimit"
	"go-chi-calculator/internal/rpc"
	"go-chi-calculator/internal/server"

	"go.uber.org/zap"
	"google.golang.org/grpc"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file (default "+config.DefaultPath+" when present)")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintln(os.Stderr, "calculator-api:", err)
		os.Exit(1)
	}
}

func run(configPath string) error {

	ctx := context.Background()

	if err := config.LoadDotEnv(); err != nil {
		return err
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	// Logger
	if err := observability.InitLogger(); err != nil {
		return err
	}
	defer observability.SyncLogger()

	// Tracing, metrics and OTLP logs
	telemetryShutdown, err := initTelemetry(ctx, cfg.Telemetry)
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer flushTelemetry(ctx, telemetryShutdown)

	svc, err := calculator.NewService()
	if err != nil {
		return fmt.Errorf("init calculator: %w", err)
	}

	// Router
	router := server.NewRouter(svc, server.Options{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Limiter:        ratelimit.New(cfg.Server.RateLimitRPS, cfg.Server.RateLimitBurst, 0),
	})

	// Bind everything before serving so a bad address fails the start-up
	// without leaving a listener running.
	httpLis, grpcLis, err := listen(cfg.Server.HTTPAddr, cfg.Server.GRPCAddr)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 2)

	go func() {
		observability.Logger.Info("server started",
			zap.String("addr", httpLis.Addr().String()),
			zap.String("transport", "connect"),
		)

		if err := srv.Serve(httpLis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	var grpcSrv *grpc.Server
	if grpcLis != nil {
		grpcSrv = rpc.NewGRPCServer(svc)

		go func() {
			observability.Logger.Info("server started",
				zap.String("addr", grpcLis.Addr().String()),
				zap.String("transport", "grpc"),
			)

			if err := grpcSrv.Serve(grpcLis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
				errCh <- fmt.Errorf("grpc server: %w", err)
			}
		}()
	}

	return waitForShutdown(srv, grpcSrv, cfg.Server.ShutdownTimeout, errCh)
}

// listen binds the HTTP listener and, when grpcAddr is set, the gRPC one.
// On error nothing is left open.
func listen(httpAddr, grpcAddr string) (httpLis, grpcLis net.Listener, err error) {
	httpLis, err = net.Listen("tcp", httpAddr)
	if err != nil {
		return nil, nil, fmt.Errorf("http listen %s: %w", httpAddr, err)
	}
	if grpcAddr == "" {
		return httpLis, nil, nil
	}

	grpcLis, err = net.Listen("tcp", grpcAddr)
	if err != nil {
		_ = httpLis.Close()
		return nil, nil, fmt.Errorf("grpc listen %s: %w", grpcAddr, err)
	}
	return httpLis, grpcLis, nil
}

// flushTelemetry runs shutdown and logs a failed exporter flush.
func flushTelemetry(ctx context.Context, shutdown func(context.Context) error) {
	if err := shutdown(ctx); err != nil {
		observability.Logger.Error("telemetry shutdown failed", zap.Error(err))
	}
}

func waitForShutdown(srv *http.Server, grpcSrv *grpc.Server, timeout time.Duration, errCh <-chan error) error {

	stop := make(chan os.Signal, 1)

	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(stop)

	var serveErr error
	select {
	case sig := <-stop:
		observability.Logger.Info("shutting down", zap.String("signal", sig.String()))
	case serveErr = <-errCh:
		observability.Logger.Error("server failed", zap.Error(serveErr))
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if grpcSrv != nil {
		done := make(chan struct{})
		go func() {
			grpcSrv.GracefulStop()
			close(done)
		}()
		select {
		case <-done:
		case <-ctx.Done():
			grpcSrv.Stop()
		}
	}

	if err := srv.Shutdown(ctx); err != nil {
		return errors.Join(serveErr, fmt.Errorf("http shutdown: %w", err))
	}
	return serveErr
}
