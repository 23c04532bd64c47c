package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/qualidan/kubernetes-shell/internal/api"
	"github.com/qualidan/kubernetes-shell/internal/config"
	"github.com/qualidan/kubernetes-shell/internal/driver"
	"github.com/qualidan/kubernetes-shell/internal/k8s"
	"github.com/qualidan/kubernetes-shell/internal/operations"
	"github.com/qualidan/kubernetes-shell/internal/redisclient"
	"github.com/qualidan/kubernetes-shell/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	if err := logger.InitLogger(cfg.LogLevel, cfg.LogFormat); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("Starting Kubernetes Shell Driver",
		zap.String("version", cfg.AppVersion),
		zap.String("log_level", cfg.LogLevel),
	)

	// Create Kubernetes clientset
	clientset, err := k8s.NewClientset(cfg.K8sInCluster, cfg.K8sKubeConfigPath)
	if err != nil {
		logger.Fatal("Failed to create kubernetes client", zap.Error(err))
	}

	// Optional Redis-backed per-app lock
	var redis *redisclient.Client
	var locker operations.AppLocker
	if cfg.RedisURL != "" {
		redis, err = redisclient.NewClient(cfg.RedisURL)
		if err != nil {
			logger.Fatal("Failed to connect to redis", zap.Error(err))
		}
		defer redis.Close()
		locker = redis
		logger.Info("Redis app lock enabled")
	} else {
		logger.Info("Redis app lock disabled (REDIS_URL not set)")
	}

	// Build the driver and router
	d := driver.New(clientset, locker, driver.Options{
		PollInterval:   cfg.PollInterval(),
		DeleteTimeout:  cfg.DeleteTimeout(),
		CleanupTimeout: cfg.CleanupTimeout(),
	}, logger.L())

	router := api.NewRouter(d, clientset, redis, logger.L())

	httpServer := &http.Server{
		Addr:         cfg.GetServerAddress(),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 10 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		logger.Info("Shutdown signal received", zap.String("signal", sig.String()))
		cancel()
	}()

	logger.Info("Driver is ready to accept requests",
		zap.String("address", cfg.GetServerAddress()),
	)

	if err := serve(ctx, httpServer); err != nil {
		logger.Fatal("Server failed", zap.Error(err))
	}

	logger.Info("Driver shutdown complete")
}

// serve runs the HTTP server until ctx is cancelled, then drains it.
func serve(ctx context.Context, srv *http.Server) error {
	errChan := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("server failed to start: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}
		return nil
	case err := <-errChan:
		return err
	}
}
