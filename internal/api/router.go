package api

import (
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"k8s.io/client-go/kubernetes"

	"github.com/qualidan/kubernetes-shell/internal/api/handlers"
	"github.com/qualidan/kubernetes-shell/internal/api/middleware"
	"github.com/qualidan/kubernetes-shell/internal/driver"
	"github.com/qualidan/kubernetes-shell/internal/redisclient"
)

// NewRouter creates a new Chi router with all routes and middleware configured
func NewRouter(
	d *driver.Driver,
	client kubernetes.Interface,
	redis *redisclient.Client,
	logger *zap.Logger,
) chi.Router {
	r := chi.NewRouter()

	// Apply middleware stack
	r.Use(middleware.Recovery(logger))
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Metrics)
	r.Use(chimiddleware.Timeout(10 * time.Minute))

	// Initialize handlers
	commandHandler := handlers.NewCommandHandler(d, logger)
	healthHandler := handlers.NewHealthHandler(client, redis, logger)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		// Lifecycle endpoints
		r.Post("/deploy", commandHandler.HandleDeploy)
		r.Post("/power/on", commandHandler.HandlePowerOn)
		r.Post("/power/off", commandHandler.HandlePowerOff)
		r.Post("/instance/delete", commandHandler.HandleDeleteInstance)

		// Detail and discovery endpoints
		r.Post("/vm-details", commandHandler.HandleVMDetails)
		r.Get("/inventory", commandHandler.HandleGetInventory)

		// Sandbox infra endpoints
		r.Post("/sandbox/prepare", commandHandler.HandlePrepareSandboxInfra)
		r.Post("/sandbox/cleanup", commandHandler.HandleCleanupSandboxInfra)

		// Health and readiness endpoints
		r.Get("/health", healthHandler.HandleHealth)
		r.Get("/ready", healthHandler.HandleReady)

		// Metrics endpoint
		r.Get("/metrics", promhttp.Handler().ServeHTTP)
	})

	return r
}
