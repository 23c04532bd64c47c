package handlers

import (
	"net/http"

	"go.uber.org/zap"
	"k8s.io/client-go/kubernetes"

	"github.com/qualidan/kubernetes-shell/internal/models"
	"github.com/qualidan/kubernetes-shell/internal/redisclient"
)

// HealthHandler handles health and readiness checks
type HealthHandler struct {
	client kubernetes.Interface
	redis  *redisclient.Client
	logger *zap.Logger
}

// NewHealthHandler creates a new health handler. redis may be nil when the
// driver runs without the cross-process lock.
func NewHealthHandler(client kubernetes.Interface, redis *redisclient.Client, logger *zap.Logger) *HealthHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HealthHandler{
		client: client,
		redis:  redis,
		logger: logger,
	}
}

// HandleHealth handles GET /api/v1/health (liveness probe)
// Returns 200 unconditionally — the process is alive.
// K8s liveness should NOT depend on external services,
// otherwise an outage cascades into pod restarts.
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	response := models.HealthResponse{
		Status: "ok",
	}
	respondWithJSON(w, http.StatusOK, response)
}

// HandleReady handles GET /api/v1/ready (readiness probe)
// Checks cluster and Redis connectivity — only mark ready if commands can
// actually be served.
func (h *HealthHandler) HandleReady(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if _, err := h.client.Discovery().ServerVersion(); err != nil {
		h.logger.Error("readiness check failed: cluster unreachable", zap.Error(err))
		respondWithError(w, http.StatusServiceUnavailable, "service unavailable")
		return
	}

	if h.redis != nil {
		if err := h.redis.Ping(ctx); err != nil {
			h.logger.Error("readiness check failed: redis unavailable", zap.Error(err))
			respondWithError(w, http.StatusServiceUnavailable, "service unavailable")
			return
		}
	}

	response := map[string]string{
		"status": "ready",
	}
	respondWithJSON(w, http.StatusOK, response)
}
