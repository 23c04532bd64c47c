package operations

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/qualidan/kubernetes-shell/internal/api/middleware"
	"github.com/qualidan/kubernetes-shell/internal/models"
	"github.com/qualidan/kubernetes-shell/internal/services"
)

// CleanupSandboxInfraOperation tears down the per-sandbox namespace,
// cascading to every app deployed into it.
type CleanupSandboxInfraOperation struct {
	namespaces   *services.NamespaceService
	pollInterval time.Duration
	waitTimeout  time.Duration
	logger       *zap.Logger
}

// NewCleanupSandboxInfraOperation creates a new cleanup operation.
// waitTimeout bounds how long cleanup waits for namespace termination;
// zero disables the wait.
func NewCleanupSandboxInfraOperation(
	namespaces *services.NamespaceService,
	pollInterval time.Duration,
	waitTimeout time.Duration,
	logger *zap.Logger,
) *CleanupSandboxInfraOperation {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CleanupSandboxInfraOperation{
		namespaces:   namespaces,
		pollInterval: pollInterval,
		waitTimeout:  waitTimeout,
		logger:       logger,
	}
}

// Cleanup deletes the sandbox namespace and waits for its termination.
// A namespace that is already gone is success.
func (o *CleanupSandboxInfraOperation) Cleanup(ctx context.Context, sandboxID string, action models.Action) (models.ActionResult, error) {
	outcome, err := o.namespaces.Delete(ctx, sandboxID)
	if err != nil {
		middleware.SandboxCleanupsTotal.WithLabelValues("failure").Inc()
		return models.ActionResult{}, err
	}

	if outcome == services.Deleted && o.waitTimeout > 0 {
		if err := o.namespaces.WaitUntilGone(ctx, sandboxID, o.pollInterval, o.waitTimeout); err != nil {
			middleware.SandboxCleanupsTotal.WithLabelValues("failure").Inc()
			return models.ActionResult{}, err
		}
	}

	o.logger.Info("cleaned up sandbox infra",
		zap.String("sandbox_id", sandboxID),
		zap.String("outcome", outcome.String()),
	)
	middleware.SandboxCleanupsTotal.WithLabelValues("success").Inc()

	return models.ActionResult{
		ActionID: action.ID,
		Type:     string(models.ActionCleanupNetwork),
		Success:  true,
	}, nil
}
