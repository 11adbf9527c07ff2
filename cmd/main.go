package main

import (
	"chat-hub/contract"
	"chat-hub/moderation"
	"chat-hub/repositories"
	"chat-hub/runtime"
	"chat-hub/runtime/workers"
	"chat-hub/transport"
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

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

const healthService = "chat"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

// run wires every component and owns their lifecycle, so deferred cleanups always execute.
func run() error {
	// 1. Configuration & Logger
	// A missing .env is fine, the environment alone is enough
	_ = godotenv.Load()
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	// 2. Theme storage, badger when a path is configured
	themes, closeStore, err := openThemeStore(config, log)
	if err != nil {
		return err
	}
	defer closeStore()

	// 3. Text filters
	filter, err := buildFilter(config, log)
	if err != nil {
		return err
	}

	// 4. Coordinator under supervision
	coordinator := runtime.NewCoordinator(log, runtime.CoordinatorConfig{
		HistoryLimit:     config.HistoryLimit,
		MaxContentLength: config.MaxContentLength,
		CommandBuffer:    config.CommandBufferSize,
	}, runtime.NewChannelRegistry(), themes, filter, nil)

	sup := workers.NewSupervisor(log, config.RestartInterval)
	sup.Add(
		coordinator,
		workers.NewStatsWorker(log, coordinator, config.MetricInterval),
		workers.NewChannelCapacityWorker(log, []workers.NamedChannel{
			{Name: "coordinator_commands", Channel: coordinator.Queue()},
		}, config.MetricInterval),
	)

	// 5. Context & Signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go sup.Run(ctx)

	// 6. Admin gRPC health service
	adminAddress := fmt.Sprintf("%s:%d", config.Host, config.AdminPort)
	listener, err := net.Listen("tcp", adminAddress)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", adminAddress, err)
	}
	grpcServer := grpc.NewServer()
	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus(healthService, healthpb.HealthCheckResponse_SERVING)

	errChan := make(chan error, 2)
	go func() {
		log.Info("Starting admin gRPC server", "address", adminAddress)
		if err := grpcServer.Serve(listener); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			errChan <- fmt.Errorf("gRPC server error: %w", err)
		}
	}()

	// 7. HTTP & websocket server
	gateway := transport.NewGateway(log, coordinator, transport.GatewayConfig{
		ConnectionBufferSize: config.ConnectionBufferSize,
		MaxMessageSize:       config.MaxMessageSize,
		AllowedOrigins:       config.Origins(),
	})
	address := fmt.Sprintf("%s:%d", config.Host, config.Port)
	httpServer := &http.Server{
		Addr:              address,
		Handler:           transport.NewRouter(log, coordinator, gateway),
		ReadHeaderTimeout: 5 * time.Second,
		// Websocket handlers inherit the signal context and close on shutdown
		BaseContext: func(net.Listener) context.Context { return ctx },
	}
	go func() {
		log.Info("Starting HTTP server", "address", address, "at", time.Now().UTC())
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	// 8. Wait for Stop or Error
	var runErr error
	select {
	case <-ctx.Done():
		log.Info("Shutting down gracefully...")
	case runErr = <-errChan:
		log.Error("Server failure, shutting down", "error", runErr)
	}

	// 9. Final Cleanup
	healthServer.Shutdown()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Warn("HTTP shutdown incomplete", "error", err)
	}
	sup.Stop()
	grpcServer.GracefulStop()
	log.Info("Program stopped cleanly")

	return runErr
}

func openThemeStore(config Config, log *slog.Logger) (contract.ThemeStore, func(), error) {
	if config.BadgerFilepath == "" {
		log.Info("Theme preferences kept in memory")
		return repositories.NewMemoryThemeStore(), func() {}, nil
	}
	db, err := badger.Open(badger.DefaultOptions(config.BadgerFilepath).
		WithLoggingLevel(badger.WARNING))
	if err != nil {
		return nil, nil, fmt.Errorf("database opening failed: %w", err)
	}
	closeDB := func() {
		log.Info("Closing BadgerDB...")
		_ = db.Close()
	}
	return repositories.NewThemeRepository(db, log), closeDB, nil
}

func buildFilter(config Config, log *slog.Logger) (contract.TextFilter, error) {
	filters := []contract.TextFilter{moderation.NewSanitizer()}
	if config.EnableCensorship {
		data, err := runtime.NewCensoredLoader(runtime.CensoredFolder).LoadAll(runtime.CensoredDir)
		if err != nil {
			return nil, fmt.Errorf("censored words loading failed: %w", err)
		}
		moderator, err := moderation.NewModerator(data.Words, config.CensorRune(), log)
		if err != nil {
			return nil, fmt.Errorf("moderator init failed: %w", err)
		}
		log.Info("Censorship enabled", "languages", data.Languages, "words", len(data.Words))
		filters = append(filters, moderator)
	}
	return moderation.NewPipeline(filters...), nil
}
