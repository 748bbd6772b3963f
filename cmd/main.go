package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/akylbek/payment-system/pix-lifecycle/internal/api"
	"github.com/akylbek/payment-system/pix-lifecycle/internal/config"
	"github.com/akylbek/payment-system/pix-lifecycle/internal/repository"
	"github.com/akylbek/payment-system/pix-lifecycle/internal/telemetry"
)

const shutdownTimeout = 5 * time.Second

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string
	var cfg *config.Config

	root := &cobra.Command{
		Use:          "pix-lifecycle",
		Short:        "Pix payment, devolution, refund, infraction and fraud detection lifecycle service",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			loaded, err := config.Load(configPath)
			if err != nil {
				return err
			}
			cfg = loaded
			return telemetry.InitTelemetry(cfg.ServiceName, cfg.Env, cfg.JaegerEndpoint)
		},
		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := telemetry.Shutdown(ctx); err != nil {
				fmt.Fprintln(os.Stderr, "telemetry shutdown:", err)
			}
		},
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", os.Getenv("CONFIG_PATH"), "path to the YAML config file")

	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Consume transition events, run scheduled reconciliation and serve the ops API",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return serve(cmd.Context(), cfg)
			},
		},
		&cobra.Command{
			Use:   "sync <job>",
			Short: "Run one reconciliation pass of a sync job and exit",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return runSync(cmd.Context(), cfg, args[0])
			},
		},
		&cobra.Command{
			Use:   "migrate",
			Short: "Create the lifecycle tables",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return migrate(cmd.Context(), cfg)
			},
		},
	)

	return root
}

func serve(ctx context.Context, cfg *config.Config) error {
	telemetry.Logger.Info("Starting Pix lifecycle service")

	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.close()

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pingCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	err = a.ping(pingCtx)
	cancel()
	if err != nil {
		return err
	}

	consumerDone := make(chan struct{})
	go func() {
		defer close(consumerDone)
		a.consumer.Run(ctx)
	}()

	a.scheduler.Start()

	gin.SetMode(gin.ReleaseMode)
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: api.NewRouter(cfg.ServiceName, a.scheduler),
	}
	go func() {
		telemetry.Logger.Info("HTTP server starting", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			telemetry.Logger.Error("HTTP server failed", zap.Error(err))
			stop()
		}
	}()

	healthServer := health.NewServer()
	grpcServer := grpc.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthServer)
	lis, err := net.Listen("tcp", ":"+cfg.GRPCPort)
	if err != nil {
		stop()
		return fmt.Errorf("failed to listen on gRPC port %s: %w", cfg.GRPCPort, err)
	}
	go func() {
		telemetry.Logger.Info("gRPC health server starting", zap.String("port", cfg.GRPCPort))
		if err := grpcServer.Serve(lis); err != nil {
			telemetry.Logger.Error("gRPC server failed", zap.Error(err))
		}
	}()
	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)

	<-ctx.Done()
	telemetry.Logger.Info("Shutting down...")
	healthServer.Shutdown()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		telemetry.Logger.Error("Server forced to shutdown", zap.Error(err))
	}
	grpcServer.GracefulStop()
	a.scheduler.Stop(shutdownCtx)

	select {
	case <-consumerDone:
	case <-shutdownCtx.Done():
		telemetry.Logger.Warn("Consumer did not stop before timeout")
	}

	telemetry.Logger.Info("Server exited")
	return nil
}

func runSync(ctx context.Context, cfg *config.Config, job string) error {
	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.close()

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	result, err := a.scheduler.RunNow(ctx, job)
	if err != nil {
		return err
	}
	if result.Skipped {
		telemetry.Logger.Info("Sync job is already running elsewhere", zap.String("job", job))
	}
	return nil
}

func migrate(ctx context.Context, cfg *config.Config) error {
	db, err := openDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := repository.InitDB(ctx, db); err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	telemetry.Logger.Info("Database initialized")
	return nil
}
