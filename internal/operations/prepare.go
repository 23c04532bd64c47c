package operations

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/qualidan/kubernetes-shell/internal/api/middleware"
	"github.com/qualidan/kubernetes-shell/internal/models"
	"github.com/qualidan/kubernetes-shell/internal/services"
)

// PrepareSandboxInfraOperation provisions the per-sandbox namespace.
type PrepareSandboxInfraOperation struct {
	namespaces *services.NamespaceService
	logger     *zap.Logger
}

// NewPrepareSandboxInfraOperation creates a new prepare operation.
func NewPrepareSandboxInfraOperation(namespaces *services.NamespaceService, logger *zap.Logger) *PrepareSandboxInfraOperation {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PrepareSandboxInfraOperation{
		namespaces: namespaces,
		logger:     logger,
	}
}

// Prepare ensures the sandbox namespace exists and answers every incoming
// prepare action. The namespace is created once; an existing namespace is
// reused, so prepare is safe to repeat.
func (o *PrepareSandboxInfraOperation) Prepare(ctx context.Context, sandboxID string, actions []models.Action) ([]interface{}, error) {
	namespace, err := o.namespaces.Ensure(ctx, sandboxID)
	if err != nil {
		middleware.SandboxPreparesTotal.WithLabelValues("failure").Inc()
		return nil, err
	}

	o.logger.Info("prepared sandbox infra",
		zap.String("sandbox_id", sandboxID),
		zap.String("namespace", namespace.Name),
	)

	results := make([]interface{}, 0, len(actions))
	for _, action := range actions {
		switch action.Kind {
		case models.ActionPrepareCloudInfra, models.ActionPrepareSubnet, models.ActionCreateKeys:
			results = append(results, models.ActionResult{
				ActionID:    action.ID,
				Type:        string(action.Kind),
				Success:     true,
				InfoMessage: fmt.Sprintf("namespace %s ready", namespace.Name),
			})
		default:
			results = append(results, models.ActionResult{
				ActionID:     action.ID,
				Type:         string(action.Kind),
				Success:      false,
				ErrorMessage: fmt.Sprintf("unsupported action %q in PrepareSandboxInfra", action.Kind),
			})
		}
	}

	middleware.SandboxPreparesTotal.WithLabelValues("success").Inc()
	return results, nil
}
