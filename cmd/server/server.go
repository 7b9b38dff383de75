package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	grpc_logging "github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors/logging"
	grpc_recovery "github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors/recovery"

	"github.com/KirkDiggler/cyber-arena/internal/app"
	"github.com/KirkDiggler/cyber-arena/internal/config"
	"github.com/KirkDiggler/cyber-arena/internal/services/arena"
)

const (
	shutdownTimeout = 30 * time.Second
	// arenaService is the health status name of the duel server
	arenaService = "cyberarena.Arena"
)

var (
	httpAddr string
	grpcPort int
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the arena server",
	Long:  `Start the websocket duel server, the HTTP API and the gRPC health service.`,
	RunE:  runServer,
}

func init() {
	serverCmd.Flags().StringVar(&httpAddr, "http-addr", "", "HTTP listen address (overrides CYBER_ARENA_HTTP_ADDR)")
	serverCmd.Flags().IntVar(&grpcPort, "port", 0, "gRPC health port (overrides CYBER_ARENA_GRPC_PORT)")
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if httpAddr != "" {
		cfg.HTTPAddr = httpAddr
	}
	if grpcPort != 0 {
		cfg.GRPCPort = grpcPort
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	setupLogging(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		slog.Info("received shutdown signal, gracefully stopping")
		cancel()
	}()

	a, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	manager, err := arena.NewManager(&arena.ManagerConfig{
		Clock:   a.Clock,
		RoomTTL: cfg.RoomTTL,
	})
	if err != nil {
		return err
	}
	hub, err := arena.NewHub(&arena.HubConfig{
		Manager: manager,
		Client:  a.Redis,
		Clock:   a.Clock,
	})
	if err != nil {
		return err
	}

	httpSrv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           arena.NewRouter(hub, a.Progress),
		ReadHeaderTimeout: 10 * time.Second,
	}

	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.GRPCPort))
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}

	grpcSrv := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			grpc_logging.UnaryServerInterceptor(grpc_logging.LoggerFunc(logFunc)),
			grpc_recovery.UnaryServerInterceptor(),
		),
		grpc.ChainStreamInterceptor(
			grpc_logging.StreamServerInterceptor(grpc_logging.LoggerFunc(logFunc)),
			grpc_recovery.StreamServerInterceptor(),
		),
	)

	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(grpcSrv, healthServer)
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus(arenaService, grpc_health_v1.HealthCheckResponse_SERVING)
	reflection.Register(grpcSrv)

	errChan := make(chan error, 4)
	go func() {
		if err := a.Run(ctx); err != nil {
			errChan <- fmt.Errorf("progression stack stopped: %w", err)
		}
	}()
	go func() {
		_ = hub.Run(ctx)
	}()
	go func() {
		slog.Info("gRPC health server starting", "port", cfg.GRPCPort)
		if err := grpcSrv.Serve(lis); err != nil {
			errChan <- fmt.Errorf("failed to serve grpc: %w", err)
		}
	}()
	go func() {
		slog.Info("arena server starting", "addr", cfg.HTTPAddr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("failed to serve http: %w", err)
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-errChan:
		cancel()
	}

	slog.Info("shutting down arena server")
	healthServer.Shutdown()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		slog.Warn("http shutdown incomplete", "error", err)
	}

	stopped := make(chan struct{})
	go func() {
		grpcSrv.GracefulStop()
		close(stopped)
	}()

	select {
	case <-shutdownCtx.Done():
		slog.Warn("graceful shutdown timeout exceeded, forcing stop")
		grpcSrv.Stop()
	case <-stopped:
		slog.Info("server stopped gracefully")
	}

	return runErr
}

// setupLogging installs the default slog handler
func setupLogging(cfg *config.Config) {
	slog.SetDefault(slog.New(cfg.LogHandler(os.Stderr)))
}

// logFunc forwards gRPC middleware logs to slog; the levels share values
func logFunc(ctx context.Context, level grpc_logging.Level, msg string, fields ...any) {
	slog.Log(ctx, slog.Level(level), msg, fields...)
}
